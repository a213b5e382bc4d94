package server

import (
	"fmt"
	"net/http"
	"time"

	"chargeswitch/internal/config"
	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/port"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type LifecycleView interface {
	State() domain.LifecycleState
	Since() time.Time
}

type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	lifecycle   LifecycleView
	samples     port.SampleSink
	gatherer    prometheus.Gatherer
	logger      *zap.Logger
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, lifecycle LifecycleView,
	samples port.SampleSink, gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	NewServer := &Server{
		port:        cfg.Port,
		rootContext: rootContext,
		masterActor: masterActor,
		httpLog:     cfg.HttpLog,
		lifecycle:   lifecycle,
		samples:     samples,
		gatherer:    gatherer,
		logger:      logger.With(zap.String("component", "http")),
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
