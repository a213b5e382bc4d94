package actor

import (
	"context"

	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/port"
	"chargeswitch/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const DefaultRelayBuffer = 64

// SampleRelay moves samples from the HTTP server and pollers into the
// master actor, preserving submission order.
type SampleRelay struct {
	root    *actor.RootContext
	master  *actor.PID
	samples chan domain.BatterySampleReceived
	logger  *zap.Logger
}

func NewSampleRelay(root *actor.RootContext, master *actor.PID, buffer int, logger *zap.Logger) *SampleRelay {
	if buffer < 1 {
		buffer = DefaultRelayBuffer
	}
	return &SampleRelay{
		root:    root,
		master:  master,
		samples: make(chan domain.BatterySampleReceived, buffer),
		logger:  actorutil.ActorLogger("relay", logger),
	}
}

func (r *SampleRelay) Submit(sample domain.BatterySample, source string) bool {
	select {
	case r.samples <- domain.BatterySampleReceived{Sample: sample, Source: source}:
		return true
	default:
		r.logger.Warn("relay buffer full, sample dropped", zap.Stringer("sample", sample), zap.String("source", source))
		return false
	}
}

// Run forwards queued samples until ctx is done.
func (r *SampleRelay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("relay stopped")
			return
		case msg := <-r.samples:
			r.root.Send(r.master, msg)
		}
	}
}

// ensure interface compliance
var _ port.SampleSink = (*SampleRelay)(nil)
