package service

import "chargeswitch/internal/core/domain"

// Debouncer drops a sample identical to the previously accepted one.
// Not safe for concurrent use; owned by the charge control actor.
type Debouncer struct {
	previous *domain.BatterySample
}

// Accept reports whether the sample is novel and, if so, remembers it.
func (d *Debouncer) Accept(sample domain.BatterySample) bool {
	if d.previous != nil && *d.previous == sample {
		return false
	}
	d.previous = &sample
	return true
}

// Previous returns the last accepted sample, if any.
func (d *Debouncer) Previous() (domain.BatterySample, bool) {
	if d.previous == nil {
		return domain.BatterySample{}, false
	}
	return *d.previous, true
}
