package service

import (
	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/port"

	"go.uber.org/zap"
)

type HysteresisChargeControlLogic struct {
	Logger *zap.Logger
}

// Decide maps a sample to an action. The off band is evaluated first so that
// overlapping bands always stop charging. An action is only returned when it
// changes the current actuation state.
func (l *HysteresisChargeControlLogic) Decide(sample domain.BatterySample, thresholds domain.Thresholds,
	current domain.ActuationState) domain.Decision {

	if thresholds.OffConditionMet(sample) {
		if current != domain.ActuationOff {
			l.debug("off band reached", sample, thresholds)
			return domain.Decision{Action: domain.ActionTurnOff, NextState: domain.ActuationOff}
		}
		return domain.Decision{Action: domain.ActionNoOp, NextState: current}
	}

	if thresholds.OnConditionMet(sample) {
		if current != domain.ActuationOn {
			l.debug("on band reached", sample, thresholds)
			return domain.Decision{Action: domain.ActionTurnOn, NextState: domain.ActuationOn}
		}
		return domain.Decision{Action: domain.ActionNoOp, NextState: current}
	}

	// dead zone
	return domain.Decision{Action: domain.ActionNoOp, NextState: current}
}

func (l *HysteresisChargeControlLogic) debug(msg string, sample domain.BatterySample, thresholds domain.Thresholds) {
	if l.Logger == nil {
		return
	}
	l.Logger.Debug("charge_control@logic: "+msg,
		zap.Int("level", sample.Level),
		zap.Float64("temperature", sample.Temperature),
		zap.Any("thresholds", thresholds))
}

// ensure interface compliance
var _ port.ChargeControlLogic = (*HysteresisChargeControlLogic)(nil)
