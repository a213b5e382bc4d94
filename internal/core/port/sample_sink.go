package port

import "chargeswitch/internal/core/domain"

// SampleSink accepts samples from sources living outside the actor system.
// Submit never blocks; it reports false when the sample was not queued.
type SampleSink interface {
	Submit(sample domain.BatterySample, source string) bool
}
