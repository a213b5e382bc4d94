package actor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chargeswitch/internal/adapter/actuator"
	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/port"
	"chargeswitch/internal/metrics"
	"chargeswitch/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeActuator struct {
	mu    sync.Mutex
	calls []string
	code  int
	err   error
}

func (f *fakeActuator) Switch(ctx context.Context, url string) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	code, err := f.code, f.err
	f.mu.Unlock()
	if url == "slow" {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return code, err
}

func (f *fakeActuator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func spawnDispatcher(t *testing.T, act *fakeActuator, timeout time.Duration) (*actor.ActorSystem, *actor.PID, chan domain.DispatchCompletedEvent, *metrics.Metrics) {
	t.Helper()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	es := &eventstream.EventStream{}
	m := metrics.Noop()

	completed := make(chan domain.DispatchCompletedEvent, 16)
	es.Subscribe(func(evt any) {
		if ev, ok := evt.(domain.DispatchCompletedEvent); ok {
			completed <- ev
		}
	})

	var a port.Actuator = actuator.NewHTTPSwitch(timeout)
	if act != nil {
		a = act
	}
	props := DispatcherPoolProps(2, func() *DispatcherActor {
		return NewDispatcherActor(a, timeout, es, m, logger)
	})
	pid := as.Root.Spawn(props)
	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Shutdown()
	})
	return as, pid, completed, m
}

func awaitDispatch(t *testing.T, completed chan domain.DispatchCompletedEvent) domain.DispatchCompletedEvent {
	t.Helper()
	select {
	case ev := <-completed:
		return ev
	case <-time.After(3 * time.Second):
		require.FailNow(t, "no dispatch completed")
	}
	return domain.DispatchCompletedEvent{}
}

func TestDispatcherSuccess(t *testing.T) {
	act := &fakeActuator{code: 200}
	as, pid, completed, m := spawnDispatcher(t, act, time.Second)

	as.Root.Send(pid, domain.DispatchRequest{Id: "1", Action: domain.ActionTurnOn, URL: "http://plug/on"})

	ev := awaitDispatch(t, completed)
	assert.Equal(t, "1", ev.Id)
	assert.Equal(t, domain.DISPATCH_OUTCOME_SUCCESS, ev.Outcome)
	assert.Equal(t, 200, ev.StatusCode)
	assert.Equal(t, []string{"http://plug/on"}, act.Calls())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Dispatches.WithLabelValues("turn_on", domain.DISPATCH_OUTCOME_SUCCESS)))
}

func TestDispatcherFailureDoesNotStopPool(t *testing.T) {
	act := &fakeActuator{err: errors.New("connection refused")}
	as, pid, completed, _ := spawnDispatcher(t, act, time.Second)

	as.Root.Send(pid, domain.DispatchRequest{Id: "1", Action: domain.ActionTurnOff, URL: "http://plug/off"})
	ev := awaitDispatch(t, completed)
	assert.Equal(t, domain.DISPATCH_OUTCOME_TRANSPORT_ERROR, ev.Outcome)
	assert.Error(t, ev.Error)

	as.Root.Send(pid, domain.DispatchRequest{Id: "2", Action: domain.ActionTurnOn, URL: "http://plug/on"})
	ev = awaitDispatch(t, completed)
	assert.Equal(t, "2", ev.Id)

	// exactly one attempt per request
	assert.Len(t, act.Calls(), 2)
}

func TestDispatcherTimeout(t *testing.T) {
	act := &fakeActuator{}
	as, pid, completed, _ := spawnDispatcher(t, act, 100*time.Millisecond)

	as.Root.Send(pid, domain.DispatchRequest{Id: "1", Action: domain.ActionTurnOn, URL: "slow"})
	ev := awaitDispatch(t, completed)
	assert.Equal(t, domain.DISPATCH_OUTCOME_TIMEOUT, ev.Outcome)
}

func TestDispatcherHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	as, pid, completed, _ := spawnDispatcher(t, nil, time.Second)

	as.Root.Send(pid, domain.DispatchRequest{Id: "1", Action: domain.ActionTurnOn, URL: srv.URL + "/cm?cmnd=Power%20ON"})
	assert.Equal(t, domain.DISPATCH_OUTCOME_SUCCESS, awaitDispatch(t, completed).Outcome)

	as.Root.Send(pid, domain.DispatchRequest{Id: "2", Action: domain.ActionTurnOff, URL: srv.URL + "/fail"})
	ev := awaitDispatch(t, completed)
	assert.Equal(t, domain.DISPATCH_OUTCOME_HTTP_ERROR, ev.Outcome)
	assert.Equal(t, http.StatusInternalServerError, ev.StatusCode)

	as.Root.Send(pid, domain.DispatchRequest{Id: "3", Action: domain.ActionTurnOff, URL: ""})
	assert.Equal(t, domain.DISPATCH_OUTCOME_SKIPPED, awaitDispatch(t, completed).Outcome)
}

func TestDispatcherHealth(t *testing.T) {
	as, pid, _, _ := spawnDispatcher(t, &fakeActuator{}, time.Second)

	res, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.True(t, resp.Healthy)
	assert.Equal(t, domain.ACTOR_ID_DISPATCHER, resp.Id)
}
