package actor

import (
	"fmt"

	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/events"
	"chargeswitch/internal/core/port"
	"chargeswitch/internal/core/service"
	"chargeswitch/internal/metrics"
	. "chargeswitch/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChargeControlActor owns the debouncer and the last commanded actuation
// state. Samples are handled one at a time in mailbox order; dispatches are
// fire and forget.
type ChargeControlActor struct {
	ActorWithStates
	stash       *Stash
	logic       port.ChargeControlLogic
	store       port.ControlConfigStore
	dispatcher  *actor.PID
	eventStream *eventstream.EventStream
	metrics     *metrics.Metrics

	debouncer        service.Debouncer
	actuation        domain.ActuationState
	samplesAccepted  uint64
	samplesDebounced uint64
	dispatches       uint64

	logger *zap.Logger
}

func NewChargeControlActor(logic port.ChargeControlLogic, store port.ControlConfigStore, dispatcher *actor.PID,
	eventStream *eventstream.EventStream, m *metrics.Metrics, logger *zap.Logger) *ChargeControlActor {
	act := &ChargeControlActor{
		logic:       logic,
		store:       store,
		dispatcher:  dispatcher,
		eventStream: eventStream,
		metrics:     m,
		stash:       &Stash{},
		actuation:   domain.ActuationUnknown,
		logger:      ActorLogger(domain.ACTOR_ID_CHARGE_CONTROL, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(CCStartingState{
		actor: act,
	})
	return act
}

func (state *ChargeControlActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type CCStartingState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCStartingState) Name() string {
	return "starting"
}

func (state CCStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("charge_control@starting started")
		state.actor.Become(CCActiveState{
			actor: state.actor,
		}.OnEnter(ctx))
		state.actor.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("charge_control@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Active state

type CCActiveState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCActiveState) Name() string {
	return "active"
}

func (state CCActiveState) OnEnter(ctx actor.Context) CCActiveState {
	state.actor.publishActuationState()
	return state
}

func (state CCActiveState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.BatterySampleReceived:
		state.actor.onSample(ctx, msg)
	case domain.ChargeControlStatusRequest:
		state.actor.logger.Debug("charge_control@active ChargeControlStatusRequest")
		ForRequest(msg).Respond(ctx, state.actor.status())
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("charge_control@active ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CHARGE_CONTROL,
			Healthy: true,
			State:   state.Name(),
		})
	case *actor.Stopping:
		state.actor.logger.Info("charge_control@active stopping", zap.Stringer("actuation", state.actor.actuation))
	default:
		state.actor.logger.Debug("charge_control@active recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ChargeControlActor) onSample(ctx actor.Context, msg domain.BatterySampleReceived) {
	sample := msg.Sample
	if !state.debouncer.Accept(sample) {
		state.samplesDebounced++
		state.metrics.Samples.WithLabelValues(metrics.SAMPLE_RESULT_DEBOUNCED).Inc()
		state.logger.Debug("charge_control@active sample debounced", zap.Stringer("sample", sample))
		return
	}
	state.samplesAccepted++
	state.metrics.ObserveSample(sample)
	for _, ev := range events.BatterySampleToUpdateEvents(sample) {
		state.eventStream.Publish(ev)
	}

	thresholds := state.store.Thresholds()
	decision := state.logic.Decide(sample, thresholds, state.actuation)
	if decision.Action == domain.ActionNoOp {
		state.logger.Debug("charge_control@active no action",
			zap.Stringer("sample", sample), zap.String("source", msg.Source), zap.Stringer("actuation", state.actuation))
		return
	}

	// the state is committed before the request is even sent and is not
	// rolled back if the actuator fails
	previous := state.actuation
	state.actuation = decision.NextState
	state.dispatches++

	req := domain.DispatchRequest{
		Id:     uuid.NewString(),
		Action: decision.Action,
		URL:    state.store.ActuatorURLs().For(decision.Action),
	}
	ctx.Send(state.dispatcher, req)

	state.logger.Info("charge_control@active switching charger",
		zap.String("id", req.Id),
		zap.Stringer("action", decision.Action),
		zap.Stringer("from", previous),
		zap.Stringer("to", state.actuation),
		zap.Stringer("sample", sample),
		zap.String("source", msg.Source))

	state.metrics.Decisions.WithLabelValues(decision.Action.String()).Inc()
	state.publishActuationState()
}

func (state *ChargeControlActor) publishActuationState() {
	state.metrics.ActuationState.Set(float64(state.actuation))
	state.eventStream.Publish(events.ActuationStateUpdateEvent(state.actuation))
}

func (state *ChargeControlActor) status() domain.ChargeControlStatusResponse {
	resp := domain.ChargeControlStatusResponse{
		State:            state.actuation,
		SamplesAccepted:  state.samplesAccepted,
		SamplesDebounced: state.samplesDebounced,
		Dispatches:       state.dispatches,
	}
	if last, ok := state.debouncer.Previous(); ok {
		resp.LastSample = &last
	}
	return resp
}
