package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "chargeswitch/internal/adapter/actor"
	"chargeswitch/internal/adapter/actuator"
	"chargeswitch/internal/adapter/source"
	"chargeswitch/internal/config"
	"chargeswitch/internal/core/actor"
	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/service"
	"chargeswitch/internal/metrics"
	"chargeswitch/internal/server"
	"chargeswitch/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/carlmjohnson/versioninfo"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, v, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	logger.Info("starting chargeswitch", zap.String("version", versioninfo.Short()))

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// control settings are read from the store on every sample
	store := config.NewStore(v, logger)
	if err := store.Watch(appCtx); err != nil {
		logger.Warn("config file watch disabled", zap.Error(err))
	}

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	eventStream := &eventstream.EventStream{}
	lifecycle := actor.NewLifecycle()
	logic := &service.HysteresisChargeControlLogic{Logger: logger}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(cfg, logic, store, lifecycle, eventStream, m,
			dispatcherActorProvider(cfg, eventStream, m, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Error("could not spawn master actor", zap.Error(err))
		return
	}

	// samples from outside the actor system
	relay := actor.NewSampleRelay(ctx, pid, actor.DefaultRelayBuffer, logger)
	go relay.Run(appCtx)

	if cfg.Source.SysfsEnable {
		scheduler, err := source.StartSysfsPoller(appCtx, afero.NewReadOnlyFs(afero.NewOsFs()), cfg.Source, relay, logger)
		if err != nil {
			logger.Error("could not start sysfs poller", zap.Error(err))
			return
		}
		defer scheduler.Stop()
	}

	server := server.NewServer(*cfg, ctx, pid, lifecycle, relay, registry, logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Debug("sd_notify failed", zap.Error(err))
	}

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	cancelApp()
	_ = ctx.StopFuture(pid).Wait()
	as.Shutdown()
}

func initConfig() (*config.Config, *viper.Viper, error) {

	// alias PORT => CHARGESWITCH_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("CHARGESWITCH_PORT", port)
	}

	v := viper.New()
	config.SetDefaults(v)
	config.ConfigureEnv(v)

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			v.SetConfigFile(cfgFile)

			err = v.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, nil, err
	}

	// parse log level
	switch v.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

func dispatcherActorProvider(cfg *config.Config, eventStream *eventstream.EventStream, m *metrics.Metrics, logger *zap.Logger) adactor.DispatcherActorProvider {
	timeout := time.Duration(cfg.Dispatch.TimeoutMillis) * time.Millisecond
	// shared so workers reuse connections to the plug
	httpSwitch := actuator.NewHTTPSwitch(timeout)
	return func() *adactor.DispatcherActor {
		return adactor.NewDispatcherActor(httpSwitch, timeout, eventStream, m, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	if !cfg.MQTT.Enabled() {
		return nil
	}
	return func(eventStream *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, eventStream, logger)
	}
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
