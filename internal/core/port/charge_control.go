package port

import (
	"context"

	"chargeswitch/internal/core/domain"
)

type ChargeControlLogic interface {
	Decide(sample domain.BatterySample, thresholds domain.Thresholds,
		current domain.ActuationState) domain.Decision
}

// ControlConfigStore is read on every decision; implementations must be safe
// for concurrent readers and must never fail (defaults fill the gaps).
type ControlConfigStore interface {
	Thresholds() domain.Thresholds
	ActuatorURLs() domain.ActuatorURLs
}

// Actuator issues one request to a switch URL and reports the HTTP status.
type Actuator interface {
	Switch(ctx context.Context, url string) (int, error)
}
