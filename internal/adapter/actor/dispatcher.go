package actor

import (
	"context"
	"fmt"
	"time"

	"chargeswitch/internal/adapter/actuator"
	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/events"
	"chargeswitch/internal/core/port"
	"chargeswitch/internal/metrics"
	"chargeswitch/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/router"
	"go.uber.org/zap"
)

// extra time granted to the actuator before the task itself is abandoned
const dispatchTimeoutGrace = 500 * time.Millisecond

type DispatcherActorProvider func() *DispatcherActor

// DispatcherActor is a pool worker. Each DispatchRequest results in exactly
// one actuator call; the result is logged, counted and published, never
// returned to the sender.
type DispatcherActor struct {
	actuator    port.Actuator
	timeout     time.Duration
	eventStream *eventstream.EventStream
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

type switchResult struct {
	statusCode int
	err        error
	timedOut   bool
}

func NewDispatcherActor(act port.Actuator, timeout time.Duration, eventStream *eventstream.EventStream, m *metrics.Metrics, logger *zap.Logger) *DispatcherActor {
	return &DispatcherActor{
		actuator:    act,
		timeout:     timeout,
		eventStream: eventStream,
		metrics:     m,
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_DISPATCHER, logger),
	}
}

// DispatcherPoolProps builds a round robin pool of dispatcher workers so a
// slow actuator never blocks more than one worker.
func DispatcherPoolProps(workers int, provider DispatcherActorProvider, opts ...actor.PropsOption) *actor.Props {
	if workers < 1 {
		workers = 1
	}
	opts = append(opts, actor.WithProducer(func() actor.Actor {
		return provider()
	}))
	return router.NewRoundRobinPool(workers, opts...)
}

func (state *DispatcherActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("dispatcher@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("dispatcher@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DISPATCHER,
			Healthy: true,
			State:   "idle",
		})
	case domain.DispatchRequest:
		state.dispatch(msg)
	default:
		state.logger.Debug("dispatcher@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DispatcherActor) dispatch(req domain.DispatchRequest) {
	state.logger.Debug("dispatcher@default DispatchRequest",
		zap.String("id", req.Id), zap.Stringer("action", req.Action), zap.String("url", req.URL))

	start := time.Now()
	actorutil.NewBackgroundTaskNoError(func() *switchResult {
		reqCtx, cancel := context.WithTimeout(context.Background(), state.timeout)
		defer cancel()
		code, err := state.actuator.Switch(reqCtx, req.URL)
		return &switchResult{statusCode: code, err: err}
	}).WithTimeout(state.timeout + dispatchTimeoutGrace).
		Recover(func(err error) switchResult {
			return switchResult{err: err, timedOut: true}
		}).
		OnSuccess(func(res switchResult) {
			state.complete(req, res, time.Since(start))
		}).
		Run()
}

func (state *DispatcherActor) complete(req domain.DispatchRequest, res switchResult, elapsed time.Duration) {
	outcome := actuator.Outcome(res.err)
	if res.timedOut {
		outcome = domain.DISPATCH_OUTCOME_TIMEOUT
	}

	ev := domain.DispatchCompletedEvent{
		Id:         req.Id,
		Action:     req.Action,
		URL:        req.URL,
		Outcome:    outcome,
		StatusCode: res.statusCode,
		Error:      res.err,
		Duration:   elapsed,
	}

	fields := []zap.Field{
		zap.String("id", req.Id),
		zap.Stringer("action", req.Action),
		zap.String("url", req.URL),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	}
	switch outcome {
	case domain.DISPATCH_OUTCOME_SUCCESS:
		state.logger.Info("dispatcher@default actuator switched", append(fields, zap.Int("status", res.statusCode))...)
	case domain.DISPATCH_OUTCOME_SKIPPED:
		state.logger.Warn("dispatcher@default dispatch skipped", append(fields, zap.Error(res.err))...)
	case domain.DISPATCH_OUTCOME_HTTP_ERROR:
		state.logger.Error("dispatcher@default actuator rejected request", append(fields, zap.Int("status", res.statusCode), zap.Error(res.err))...)
	default:
		state.logger.Error("dispatcher@default actuator unreachable", append(fields, zap.Error(res.err))...)
	}

	if state.metrics != nil {
		state.metrics.ObserveDispatch(ev)
	}
	if state.eventStream != nil {
		state.eventStream.Publish(ev)
		state.eventStream.Publish(events.LastDispatchUpdateEvent(ev))
	}
}
