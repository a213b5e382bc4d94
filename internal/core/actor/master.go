package actor

import (
	"fmt"
	"log"
	"time"

	adactor "chargeswitch/internal/adapter/actor"
	"chargeswitch/internal/config"
	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/events"
	"chargeswitch/internal/core/port"
	"chargeswitch/internal/metrics"
	. "chargeswitch/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/router"
	"go.uber.org/zap"
)

const healthCheckTimeout = 500 * time.Millisecond

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

// MasterOfPuppetsActor supervises every other actor, routes samples to the
// charge control actor and is the only writer of the Lifecycle.
type MasterOfPuppetsActor struct {
	config   *config.Config
	behavior actor.Behavior
	stash    *Stash

	logic              port.ChargeControlLogic
	store              port.ControlConfigStore
	lifecycle          *Lifecycle
	metrics            *metrics.Metrics
	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	dispatcherActor    *actor.PID
	chargeControlActor *actor.PID
	mqttActor          *actor.PID
	dispatcherProvider adactor.DispatcherActorProvider
	mqttActorProvider  MQTTActorProvider
	pendingStop        []*actor.PID
	logger             *zap.Logger
}

type healthCheckResult struct {
	expected  map[string]bool
	healthy   map[string]bool
	respondTo *actor.PID
}

func NewMasterOfPuppetsActor(config *config.Config, logic port.ChargeControlLogic, store port.ControlConfigStore,
	lifecycle *Lifecycle, eventStream *eventstream.EventStream, m *metrics.Metrics,
	dispatcherProvider adactor.DispatcherActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:             config,
		behavior:           actor.NewBehavior(),
		stash:              &Stash{},
		logic:              logic,
		store:              store,
		lifecycle:          lifecycle,
		metrics:            m,
		eventStream:        eventStream,
		dispatcherProvider: dispatcherProvider,
		mqttActorProvider:  mqttActorProvider,
		logger:             ActorLogger(domain.ACTOR_ID_MASTER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// start dispatcher pool
		dispatcherPID, err := state.startDispatcherPool(ctx)
		if err != nil {
			panic(err)
		}
		state.dispatcherActor = dispatcherPID

		// start MQTT child
		if state.mqttActorProvider != nil {
			mqttActorPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttActorPID

			// start HA Discovery
			if state.config.MQTT.HADiscoveryEnable {
				_, err := state.startHADiscoveryActor(ctx)
				if err != nil {
					panic(err)
				}
			}
		}

		// start the control loop
		if err := state.startChargeControl(ctx); err != nil {
			panic(err)
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.BatterySampleReceived:
		state.routeSample(ctx, msg)
	case domain.ControllerEnableRequest:
		state.logger.Debug("master@default ControllerEnableRequest", zap.Bool("enable", msg.Enable))
		state.onEnable(ctx, msg.Enable, ForRequest(msg).ReplyTo(ctx))
	case domain.ControllerStatusRequest:
		state.logger.Debug("master@default ControllerStatusRequest")
		state.onStatus(ctx, ForRequest(msg).ReplyTo(ctx))
	case adactor.ParsedCommand:
		// redirect parsedCommand to actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err == nil && cmd != nil {
				switch pcmd := cmd.(type) {
				case domain.ControllerEnableRequest:
					state.onEnable(ctx, pcmd.Enable, nil)
				}
			}
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()

		state.askPoolHealth(ctx, state.dispatcherActor, domain.ACTOR_ID_DISPATCHER)
		if state.chargeControlActor != nil {
			state.askHealth(ctx, state.chargeControlActor, domain.ACTOR_ID_CHARGE_CONTROL)
		}
		if state.mqttActor != nil {
			state.askHealth(ctx, state.mqttActor, domain.ACTOR_ID_MQTT)
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case *actor.Terminated:
		state.logger.Warn("master@default child terminated", zap.String("who", msg.Who.Id))
	case *actor.Stopping:
		state.lifecycle.stopped()
		state.metrics.SetRunning(false)
	default:
		state.logger.Debug("master@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.logger.Warn("master@healthcheck timeout")
		state.finishHealthCheck(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if state.currentHealthCheck.expected[msg.Id] {
			state.currentHealthCheck.healthy[msg.Id] = msg.Healthy
		}
		if state.currentHealthCheck.allReceived() {
			state.finishHealthCheck(ctx)
		}
	case domain.BatterySampleReceived:
		// stashing would move the sample behind newer ones
		state.routeSample(ctx, msg)
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// StoppingReceive waits for the charge control actor to terminate. Samples
// arriving meanwhile are dropped like in the stopped state.
func (state *MasterOfPuppetsActor) StoppingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Terminated:
		if state.chargeControlActor == nil || !msg.Who.Equal(state.chargeControlActor) {
			state.logger.Warn("master@stopping child terminated", zap.String("who", msg.Who.Id))
			return
		}
		state.chargeControlActor = nil
		state.lifecycle.stopped()
		state.metrics.SetRunning(false)
		state.eventStream.Publish(events.ChargeControlSwitchUpdateEvent(false))
		state.logger.Info("master@stopping controller stopped")
		for _, pid := range state.pendingStop {
			ctx.Send(pid, domain.ControllerEnableResponse{Changed: true, Running: false})
		}
		state.pendingStop = nil
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.BatterySampleReceived:
		state.metrics.Samples.WithLabelValues(metrics.SAMPLE_RESULT_DROPPED).Inc()
	default:
		state.logger.Debug("master@stopping stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) onEnable(ctx actor.Context, enable bool, replyTo *actor.PID) {
	running := state.chargeControlActor != nil
	if enable == running {
		if replyTo != nil {
			ctx.Send(replyTo, domain.ControllerEnableResponse{Changed: false, Running: running})
		}
		return
	}

	if enable {
		err := state.startChargeControl(ctx)
		if err != nil {
			state.logger.Error("master@default could not start controller", zap.Error(err))
		}
		if replyTo != nil {
			ctx.Send(replyTo, domain.ControllerEnableResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
				Changed:            err == nil,
				Running:            state.chargeControlActor != nil,
			})
		}
		return
	}

	state.logger.Info("master@default stopping controller")
	state.lifecycle.stopping()
	if replyTo != nil {
		state.pendingStop = append(state.pendingStop, replyTo)
	}
	ctx.Stop(state.chargeControlActor)
	state.behavior.BecomeStacked(state.StoppingReceive)
}

func (state *MasterOfPuppetsActor) onStatus(ctx actor.Context, replyTo *actor.PID) {
	if state.chargeControlActor == nil {
		ctx.Send(replyTo, domain.ControllerStatusResponse{
			Lifecycle: state.lifecycle.State(),
		})
		return
	}
	future := ctx.RequestFuture(state.chargeControlActor, domain.ChargeControlStatusRequest{}, healthCheckTimeout)
	ctx.ReenterAfter(future, func(res any, err error) {
		resp := domain.ControllerStatusResponse{
			Lifecycle: state.lifecycle.State(),
		}
		if err != nil {
			resp.ResponseError = err
		} else if cs, ok := res.(domain.ChargeControlStatusResponse); ok {
			resp.Control = &cs
		}
		ctx.Send(replyTo, resp)
	})
}

func (state *MasterOfPuppetsActor) routeSample(ctx actor.Context, msg domain.BatterySampleReceived) {
	if state.chargeControlActor == nil || !state.lifecycle.IsRunning() {
		state.metrics.Samples.WithLabelValues(metrics.SAMPLE_RESULT_DROPPED).Inc()
		state.logger.Debug("master sample dropped, controller not running", zap.Stringer("sample", msg.Sample))
		return
	}
	ctx.Send(state.chargeControlActor, msg)
}

// askPoolHealth asks the router itself for its routees. Workers may be busy
// with a slow plug for longer than the health timeout.
func (state *MasterOfPuppetsActor) askPoolHealth(ctx actor.Context, pid *actor.PID, id string) {
	state.currentHealthCheck.expected[id] = true
	future := ctx.RequestFuture(pid, &router.GetRoutees{}, healthCheckTimeout)
	ctx.ReenterAfter(future, func(res any, err error) {
		routees, ok := res.(*router.Routees)
		ctx.Send(ctx.Self(), domain.ActorHealthResponse{
			Id:      id,
			Healthy: err == nil && ok && len(routees.PIDs) > 0,
			State:   "idle",
		})
	})
}

func (state *MasterOfPuppetsActor) askHealth(ctx actor.Context, pid *actor.PID, id string) {
	state.currentHealthCheck.expected[id] = true
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, healthCheckTimeout), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      id,
			Healthy: false,
		}
	})
}

func (state *MasterOfPuppetsActor) finishHealthCheck(ctx actor.Context) {
	ctx.CancelReceiveTimeout()
	state.currentHealthCheck.respond(ctx, state.lifecycle.State())
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *MasterOfPuppetsActor) startDispatcherPool(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for dispatcher. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(10, 10*time.Second, decider)

	props := adactor.DispatcherPoolProps(state.config.Dispatch.Workers, state.dispatcherProvider, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(props, domain.ACTOR_ID_DISPATCHER)
}

func (state *MasterOfPuppetsActor) startChargeControl(ctx actor.Context) error {
	state.lifecycle.starting()

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for charge control. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewChargeControlActor(state.logic, state.store, state.dispatcherActor, state.eventStream, state.metrics, state.logger)
	}, actor.WithSupervisor(supervisor))
	// unnamed: a restarted controller must not collide with the previous one
	// while it is still being torn down
	pid := ctx.Spawn(props)
	if pid == nil {
		state.lifecycle.stopped()
		return fmt.Errorf("could not spawn %s", domain.ACTOR_ID_CHARGE_CONTROL)
	}
	state.chargeControlActor = pid
	state.lifecycle.running()
	state.metrics.SetRunning(true)
	state.eventStream.Publish(events.ChargeControlSwitchUpdateEvent(true))
	state.logger.Info("master@default controller running")
	return nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(state.config, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *healthCheckResult) reset() {
	state.expected = map[string]bool{}
	state.healthy = map[string]bool{}
	state.respondTo = nil
}

func (state *healthCheckResult) allReceived() bool {
	return len(state.healthy) == len(state.expected)
}

func (state *healthCheckResult) allHealthy() bool {
	for id := range state.expected {
		if !state.healthy[id] {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context, lifecycle domain.LifecycleState) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
		State:   lifecycle.String(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
