package service

import (
	"testing"

	"chargeswitch/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var defaultThresholds = domain.Thresholds{
	ChargeOffTemp:  30,
	ChargeOffLevel: 20,
	ChargeOnTemp:   15,
	ChargeOnLevel:  80,
}

// well-formed bands: on below off on both axes
var bandThresholds = domain.Thresholds{
	ChargeOffTemp:  40,
	ChargeOffLevel: 90,
	ChargeOnTemp:   30,
	ChargeOnLevel:  40,
}

var allStates = []domain.ActuationState{domain.ActuationUnknown, domain.ActuationOn, domain.ActuationOff}

func TestScenarioSequence(t *testing.T) {

	require := require.New(t)

	var debouncer Debouncer
	state := domain.ActuationUnknown

	// A: hot and above off level
	a := sample(10, 36.0)
	require.True(debouncer.Accept(a))
	d := ctrl.Decide(a, defaultThresholds, state)
	require.Equal(domain.ActionTurnOff, d.Action)
	require.Equal(domain.ActuationOff, d.NextState)
	state = d.NextState

	// B: identical sample never reaches the engine
	require.False(debouncer.Accept(a), "identical sample must be debounced")
	require.Equal(domain.ActuationOff, state)

	// C: cold and low
	c := sample(5, 10.0)
	require.True(debouncer.Accept(c))
	d = ctrl.Decide(c, defaultThresholds, state)
	require.Equal(domain.ActionTurnOn, d.Action)
	require.Equal(domain.ActuationOn, d.NextState)
	state = d.NextState

	// D: dead zone keeps the previous state. With the default off level of
	// 20 the dead zone only exists below that level.
	dz := sample(10, 22.0)
	require.True(debouncer.Accept(dz))
	d = ctrl.Decide(dz, defaultThresholds, state)
	require.Equal(domain.ActionNoOp, d.Action)
	require.Equal(domain.ActuationOn, d.NextState)
}

func TestLevelAboveDefaultOffLevelStopsCharging(t *testing.T) {
	// level 50 is above the default off level, so off priority applies even
	// though the temperature sits between the bands
	d := ctrl.Decide(sample(50, 22.0), defaultThresholds, domain.ActuationOn)
	assert.Equal(t, domain.ActionTurnOff, d.Action)
	assert.Equal(t, domain.ActuationOff, d.NextState)

	// with wider bands the same sample is in the dead zone
	d = ctrl.Decide(sample(50, 22.0), bandThresholds, domain.ActuationOn)
	assert.Equal(t, domain.ActionNoOp, d.Action)
	assert.Equal(t, domain.ActuationOn, d.NextState)
}

func TestOffBandDominatesOverlappingBands(t *testing.T) {

	// misconfigured: on level above off level and on temp above off temp
	overlap := domain.Thresholds{
		ChargeOffTemp:  20,
		ChargeOffLevel: 50,
		ChargeOnTemp:   35,
		ChargeOnLevel:  90,
	}

	for level := 0; level <= 100; level += 5 {
		for temp := -10.0; temp <= 50; temp += 2.5 {
			s := sample(level, temp)
			if !(overlap.OffConditionMet(s) && overlap.OnConditionMet(s)) {
				continue
			}
			for _, st := range allStates {
				d := ctrl.Decide(s, overlap, st)
				assert.NotEqual(t, domain.ActionTurnOn, d.Action, "sample %s state %s", s, st)
				if st != domain.ActuationOff {
					assert.Equal(t, domain.ActionTurnOff, d.Action, "sample %s state %s", s, st)
				}
			}
		}
	}
}

func TestOnlyActsOnStateChange(t *testing.T) {

	for _, th := range []domain.Thresholds{defaultThresholds, bandThresholds} {
		for level := 0; level <= 100; level++ {
			for temp := -5.0; temp <= 50; temp += 0.5 {
				s := sample(level, temp)

				d := ctrl.Decide(s, th, domain.ActuationOff)
				assert.NotEqual(t, domain.ActionTurnOff, d.Action)

				d = ctrl.Decide(s, th, domain.ActuationOn)
				assert.NotEqual(t, domain.ActionTurnOn, d.Action)

				for _, st := range allStates {
					d = ctrl.Decide(s, th, st)
					if d.Action == domain.ActionNoOp {
						assert.Equal(t, st, d.NextState, "noop must keep state")
					}
				}
			}
		}
	}
}

func TestDeadZoneNeverOscillates(t *testing.T) {

	require := require.New(t)

	for _, initial := range []domain.BatterySample{sample(95, 20), sample(10, 20)} {
		var debouncer Debouncer
		state := domain.ActuationUnknown
		dispatches := 0

		step := func(s domain.BatterySample) {
			if !debouncer.Accept(s) {
				return
			}
			d := ctrl.Decide(s, bandThresholds, state)
			if d.Action != domain.ActionNoOp {
				dispatches++
				state = d.NextState
			}
		}

		step(initial)
		require.Equal(1, dispatches)

		// strictly inside the dead zone: 40 < level < 90 or 30 < temp < 40
		for level := 41; level < 90; level += 3 {
			for temp := 31.0; temp < 40; temp += 1.5 {
				step(sample(level, temp))
			}
			step(sample(level, 20))
		}
		require.Equal(1, dispatches, "dead zone must not produce a second dispatch")
	}
}

func TestBoundariesAreInclusive(t *testing.T) {

	require := require.New(t)

	d := ctrl.Decide(sample(0, 30.0), defaultThresholds, domain.ActuationUnknown)
	require.Equal(domain.ActionTurnOff, d.Action, "temp == off temp stops charging")

	d = ctrl.Decide(sample(20, 0), defaultThresholds, domain.ActuationOn)
	require.Equal(domain.ActionTurnOff, d.Action, "level == off level stops charging")

	d = ctrl.Decide(sample(40, 15.0), bandThresholds, domain.ActuationOff)
	require.Equal(domain.ActionTurnOn, d.Action, "level == on level and temp <= on temp resumes charging")
}

func TestUnknownStateAlwaysActsOutsideDeadZone(t *testing.T) {

	require := require.New(t)

	d := ctrl.Decide(sample(95, 20), bandThresholds, domain.ActuationUnknown)
	require.Equal(domain.Decision{Action: domain.ActionTurnOff, NextState: domain.ActuationOff}, d)

	d = ctrl.Decide(sample(10, 20), bandThresholds, domain.ActuationUnknown)
	require.Equal(domain.Decision{Action: domain.ActionTurnOn, NextState: domain.ActuationOn}, d)

	d = ctrl.Decide(sample(60, 20), bandThresholds, domain.ActuationUnknown)
	require.Equal(domain.Decision{Action: domain.ActionNoOp, NextState: domain.ActuationUnknown}, d)
}

func sample(level int, temp float64) domain.BatterySample {
	return domain.BatterySample{Level: level, Temperature: temp}
}

var ctrl = &HysteresisChargeControlLogic{
	Logger: zap.Must(zap.NewDevelopment()),
}
