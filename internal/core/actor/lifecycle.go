package actor

import (
	"sync/atomic"
	"time"

	"chargeswitch/internal/core/domain"
)

// Lifecycle tracks whether the control loop is running. Only the master
// actor moves it between states; HTTP handlers and MQTT read it.
type Lifecycle struct {
	state atomic.Int32
	since atomic.Int64
}

func NewLifecycle() *Lifecycle {
	l := &Lifecycle{}
	l.set(domain.LifecycleStopped)
	return l
}

func (l *Lifecycle) State() domain.LifecycleState {
	return domain.LifecycleState(l.state.Load())
}

func (l *Lifecycle) IsRunning() bool {
	return l.State() == domain.LifecycleRunning
}

// Since returns when the current state was entered.
func (l *Lifecycle) Since() time.Time {
	return time.Unix(0, l.since.Load())
}

func (l *Lifecycle) set(state domain.LifecycleState) {
	l.since.Store(time.Now().UnixNano())
	l.state.Store(int32(state))
}

func (l *Lifecycle) starting() {
	l.set(domain.LifecycleStarting)
}

func (l *Lifecycle) running() {
	l.set(domain.LifecycleRunning)
}

func (l *Lifecycle) stopping() {
	l.set(domain.LifecycleStopping)
}

func (l *Lifecycle) stopped() {
	l.set(domain.LifecycleStopped)
}
