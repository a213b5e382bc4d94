package domain

type LifecycleState int32

const (
	LifecycleStopped LifecycleState = iota
	LifecycleStarting
	LifecycleRunning
	LifecycleStopping
)

func (s LifecycleState) String() string {
	switch s {
	case LifecycleStarting:
		return "starting"
	case LifecycleRunning:
		return "running"
	case LifecycleStopping:
		return "stopping"
	default:
		return "stopped"
	}
}
