package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/metrics"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLifecycle struct {
	mu    sync.Mutex
	state domain.LifecycleState
	since time.Time
}

func (l *fakeLifecycle) State() domain.LifecycleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *fakeLifecycle) Since() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.since
}

func (l *fakeLifecycle) set(state domain.LifecycleState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = state
}

type fakeSink struct {
	mu      sync.Mutex
	samples []domain.BatterySample
	full    bool
}

func (s *fakeSink) Submit(sample domain.BatterySample, _ string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.samples = append(s.samples, sample)
	return true
}

func newTestServer(t *testing.T, healthy bool) (*Server, *fakeLifecycle, *fakeSink) {
	t.Helper()

	as := actor.NewActorSystem()
	t.Cleanup(as.Shutdown)

	lifecycle := &fakeLifecycle{state: domain.LifecycleRunning, since: time.Now().Add(-time.Hour)}
	last := domain.BatterySample{Level: 42, Temperature: 21.5}

	master := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.ActorHealthRequest:
			ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: healthy})
		case domain.ControllerStatusRequest:
			ctx.Respond(domain.ControllerStatusResponse{
				Lifecycle: lifecycle.State(),
				Control: &domain.ChargeControlStatusResponse{
					State:           domain.ActuationOff,
					LastSample:      &last,
					SamplesAccepted: 3,
					Dispatches:      1,
				},
			})
		case domain.ControllerEnableRequest:
			changed := msg.Enable != (lifecycle.State() == domain.LifecycleRunning)
			if msg.Enable {
				lifecycle.set(domain.LifecycleRunning)
			} else {
				lifecycle.set(domain.LifecycleStopped)
			}
			ctx.Respond(domain.ControllerEnableResponse{Changed: changed, Running: msg.Enable})
		}
	}))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.SetRunning(true)

	sink := &fakeSink{}
	return &Server{
		rootContext: as.Root,
		masterActor: master,
		lifecycle:   lifecycle,
		samples:     sink,
		gatherer:    reg,
		logger:      zap.NewNop(),
	}, lifecycle, sink
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	rec := do(t, s.RegisterRoutes(), http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK", rec.Body.String())

	s, _, _ = newTestServer(t, false)
	rec = do(t, s.RegisterRoutes(), http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatus(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	rec := do(t, s.RegisterRoutes(), http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "running", resp.Lifecycle)
	assert.Equal(t, "off", resp.Actuation)
	assert.Equal(t, "1 hour ago", resp.SinceHuman)
	require.NotNil(t, resp.LastSample)
	assert.Equal(t, 42, resp.LastSample.Level)
	assert.Equal(t, uint64(3), resp.SamplesAccepted)
	assert.Equal(t, uint64(1), resp.Dispatches)
}

func TestPostSample(t *testing.T) {
	s, _, sink := newTestServer(t, true)
	h := s.RegisterRoutes()

	rec := do(t, h, http.MethodPost, "/api/samples", `{"level":55,"temperature":24.5}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []domain.BatterySample{{Level: 55, Temperature: 24.5}}, sink.samples)

	for _, body := range []string{`{"level":55}`, `{"level":101,"temperature":20}`, `not json`} {
		rec = do(t, h, http.MethodPost, "/api/samples", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	sink.full = true
	rec = do(t, h, http.MethodPost, "/api/samples", `{"level":56,"temperature":24.5}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestControlStartStop(t *testing.T) {
	s, lifecycle, _ := newTestServer(t, true)
	h := s.RegisterRoutes()

	rec := do(t, h, http.MethodPost, "/api/control/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp controlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
	assert.False(t, resp.Running)
	assert.Equal(t, "stopped", resp.Lifecycle)
	assert.Equal(t, domain.LifecycleStopped, lifecycle.State())

	rec = do(t, h, http.MethodPost, "/api/control/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Running)
	assert.Equal(t, "running", resp.Lifecycle)

	rec = do(t, h, http.MethodGet, "/api/control/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	rec := do(t, s.RegisterRoutes(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chargeswitch_controller_running 1")
}
