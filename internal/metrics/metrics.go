package metrics

import (
	"chargeswitch/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chargeswitch"

const (
	SAMPLE_RESULT_ACCEPTED  = "accepted"
	SAMPLE_RESULT_DEBOUNCED = "debounced"
	SAMPLE_RESULT_DROPPED   = "dropped"
)

type Metrics struct {
	Samples            *prometheus.CounterVec
	Decisions          *prometheus.CounterVec
	Dispatches         *prometheus.CounterVec
	DispatchDuration   *prometheus.HistogramVec
	ActuationState     prometheus.Gauge
	BatteryLevel       prometheus.Gauge
	BatteryTemperature prometheus.Gauge
	ControllerRunning  prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Samples: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Battery samples received by the controller, by result.",
		}, []string{"result"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Decisions taken for novel samples, by action.",
		}, []string{"action"}),
		Dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Actuator requests, by action and outcome.",
		}, []string{"action", "outcome"}),
		DispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of actuator requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"action"}),
		ActuationState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actuation_state",
			Help:      "Last commanded plug state: 0 unknown, 1 on, 2 off.",
		}),
		BatteryLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_level_percent",
			Help:      "Battery level of the last accepted sample.",
		}),
		BatteryTemperature: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_temperature_celsius",
			Help:      "Battery temperature of the last accepted sample.",
		}),
		ControllerRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_running",
			Help:      "1 while the control loop is running.",
		}),
	}
}

// Noop returns collectors registered nowhere, for tests and tools.
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) ObserveSample(sample domain.BatterySample) {
	m.Samples.WithLabelValues(SAMPLE_RESULT_ACCEPTED).Inc()
	m.BatteryLevel.Set(float64(sample.Level))
	m.BatteryTemperature.Set(sample.Temperature)
}

func (m *Metrics) ObserveDispatch(ev domain.DispatchCompletedEvent) {
	m.Dispatches.WithLabelValues(ev.Action.String(), ev.Outcome).Inc()
	if ev.Outcome != domain.DISPATCH_OUTCOME_SKIPPED {
		m.DispatchDuration.WithLabelValues(ev.Action.String()).Observe(ev.Duration.Seconds())
	}
}

func (m *Metrics) SetRunning(running bool) {
	if running {
		m.ControllerRunning.Set(1)
	} else {
		m.ControllerRunning.Set(0)
	}
}
