package server

import (
	"io"
	"net/http"
	"time"

	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/mqtt"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	SAMPLE_SOURCE_HTTP = "http"
	maxSampleBodyBytes = 4 << 10
	requestTimeout     = 2 * time.Second
)

type statusResponse struct {
	Lifecycle        string                `json:"lifecycle"`
	Since            time.Time             `json:"since"`
	SinceHuman       string                `json:"since_human"`
	Actuation        string                `json:"actuation,omitempty"`
	LastSample       *domain.BatterySample `json:"last_sample,omitempty"`
	SamplesAccepted  uint64                `json:"samples_accepted"`
	SamplesDebounced uint64                `json:"samples_debounced"`
	Dispatches       uint64                `json:"dispatches"`
}

type controlResponse struct {
	Changed   bool   `json:"changed"`
	Running   bool   `json:"running"`
	Lifecycle string `json:"lifecycle"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.GET("/status", s.StatusHandler)
	api.POST("/samples", s.SampleHandler)
	api.POST("/control/start", s.ControlHandler(true))
	api.POST("/control/stop", s.ControlHandler(false))

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) StatusHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ControllerStatusRequest{}, requestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	status, ok := res.(domain.ControllerStatusResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
	}

	since := s.lifecycle.Since()
	resp := statusResponse{
		Lifecycle:  status.Lifecycle.String(),
		Since:      since,
		SinceHuman: humanize.Time(since),
	}
	if status.HasResponseError() {
		s.logger.Warn("status: controller did not answer", zap.Error(status.GetResponseError()))
	}
	if status.Control != nil {
		resp.Actuation = status.Control.State.String()
		resp.LastSample = status.Control.LastSample
		resp.SamplesAccepted = status.Control.SamplesAccepted
		resp.SamplesDebounced = status.Control.SamplesDebounced
		resp.Dispatches = status.Control.Dispatches
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) SampleHandler(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSampleBodyBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	sample, err := mqtt.ParseSamplePayload(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if !s.samples.Submit(sample, SAMPLE_SOURCE_HTTP) {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "sample queue full"})
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) ControlHandler(enable bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := s.rootContext.RequestFuture(s.masterActor, domain.ControllerEnableRequest{Enable: enable}, requestTimeout).Result()
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		}
		resp, ok := res.(domain.ControllerEnableResponse)
		if !ok {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "unexpected response"})
		}
		if resp.HasResponseError() {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: resp.GetResponseError().Error()})
		}
		s.logger.Info("control: enable requested", zap.Bool("enable", enable), zap.Bool("changed", resp.Changed))
		return c.JSON(http.StatusOK, controlResponse{
			Changed:   resp.Changed,
			Running:   resp.Running,
			Lifecycle: s.lifecycle.State().String(),
		})
	}
}
