package actor

import (
	"context"
	"sync"
	"testing"
	"time"

	"chargeswitch/internal/config"
	"chargeswitch/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/require"
)

const (
	testOnURL  = "http://plug.test/cm?cmnd=Power%20ON"
	testOffURL = "http://plug.test/cm?cmnd=Power%20OFF"
)

type testStore struct {
	mu         sync.Mutex
	thresholds domain.Thresholds
	urls       domain.ActuatorURLs
}

func newTestStore() *testStore {
	return &testStore{
		thresholds: domain.Thresholds{
			ChargeOffTemp:  config.DefaultChargeOffTemperature,
			ChargeOffLevel: config.DefaultChargeOffBatteryLevel,
			ChargeOnTemp:   config.DefaultChargeOnTemperature,
			ChargeOnLevel:  config.DefaultChargeOnBatteryLevel,
		},
		urls: domain.ActuatorURLs{On: testOnURL, Off: testOffURL},
	}
}

func (s *testStore) Thresholds() domain.Thresholds {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thresholds
}

func (s *testStore) ActuatorURLs() domain.ActuatorURLs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urls
}

func (s *testStore) SetThresholds(t domain.Thresholds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = t
}

// recordingActuator records every call and fails or blocks on demand.
type recordingActuator struct {
	mu    sync.Mutex
	calls []string
	err   error
	block bool
}

func (a *recordingActuator) Switch(ctx context.Context, url string) (int, error) {
	a.mu.Lock()
	a.calls = append(a.calls, url)
	err, block := a.err, a.block
	a.mu.Unlock()
	if block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if err != nil {
		return 0, err
	}
	return 200, nil
}

func (a *recordingActuator) SetBlocking(block bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.block = block
}

func (a *recordingActuator) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// collectorProps returns an actor that pushes every DispatchRequest it gets
// into the returned channel.
func collectorProps() (*actor.Props, chan domain.DispatchRequest) {
	ch := make(chan domain.DispatchRequest, 32)
	return actor.PropsFromFunc(func(ctx actor.Context) {
		if req, ok := ctx.Message().(domain.DispatchRequest); ok {
			ch <- req
		}
	}), ch
}

func expectDispatch(t *testing.T, ch chan domain.DispatchRequest) domain.DispatchRequest {
	t.Helper()
	select {
	case req := <-ch:
		return req
	case <-time.After(2 * time.Second):
		require.FailNow(t, "expected a dispatch request")
	}
	return domain.DispatchRequest{}
}

func expectNoDispatch(t *testing.T, ch chan domain.DispatchRequest) {
	t.Helper()
	select {
	case req := <-ch:
		require.FailNow(t, "unexpected dispatch request", "%+v", req)
	case <-time.After(200 * time.Millisecond):
	}
}

func sampleMsg(level int, temp float64) domain.BatterySampleReceived {
	return domain.BatterySampleReceived{
		Sample: domain.BatterySample{Level: level, Temperature: temp},
		Source: "test",
	}
}
