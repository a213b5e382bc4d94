package domain

import "fmt"

// BatterySample is a single (level, temperature) reading. It is comparable and
// two samples are the same reading only when both fields are equal.
type BatterySample struct {
	Level       int     `json:"level"`
	Temperature float64 `json:"temperature"`
}

func (s BatterySample) String() string {
	return fmt.Sprintf("level=%d%% temp=%.1fC", s.Level, s.Temperature)
}

// Validate checks the sample is physically plausible.
func (s BatterySample) Validate() error {
	if s.Level < 0 || s.Level > 100 {
		return fmt.Errorf("battery level %d out of range [0,100]", s.Level)
	}
	return nil
}

type Thresholds struct {
	ChargeOffTemp  float64
	ChargeOffLevel int
	ChargeOnTemp   float64
	ChargeOnLevel  int
}

// OffConditionMet reports whether charging must stop for the sample.
func (t Thresholds) OffConditionMet(s BatterySample) bool {
	return s.Temperature >= t.ChargeOffTemp || s.Level >= t.ChargeOffLevel
}

// OnConditionMet reports whether charging may resume for the sample.
func (t Thresholds) OnConditionMet(s BatterySample) bool {
	return s.Temperature <= t.ChargeOnTemp && s.Level <= t.ChargeOnLevel
}

type ActuatorURLs struct {
	On  string
	Off string
}

// For returns the URL implementing the action, or "" for NoOp.
func (u ActuatorURLs) For(action Action) string {
	switch action {
	case ActionTurnOn:
		return u.On
	case ActionTurnOff:
		return u.Off
	default:
		return ""
	}
}

type ActuationState int

const (
	ActuationUnknown ActuationState = iota
	ActuationOn
	ActuationOff
)

func (s ActuationState) String() string {
	switch s {
	case ActuationOn:
		return "on"
	case ActuationOff:
		return "off"
	default:
		return "unknown"
	}
}

type Action int

const (
	ActionNoOp Action = iota
	ActionTurnOn
	ActionTurnOff
)

func (a Action) String() string {
	switch a {
	case ActionTurnOn:
		return "turn_on"
	case ActionTurnOff:
		return "turn_off"
	default:
		return "noop"
	}
}

// Decision is the outcome of evaluating one sample. NextState equals the
// current state whenever Action is NoOp.
type Decision struct {
	Action    Action
	NextState ActuationState
}
