package domain

import "fmt"

// ControllerRequest

type ControllerRequest interface {
	ActorRequest
	ControllerCommand() string
}

type ControllerRequestMixIn struct {
	ActorRequestMixIn
}

func (r ControllerRequestMixIn) ControllerCommand() string {
	return fmt.Sprintf("%T", r)
}

// Controller commands

type ControllerEnableRequest struct {
	ControllerRequestMixIn
	Enable bool
}

type ControllerEnableResponse struct {
	ActorResponseMixIn
	Changed bool
	Running bool
}

type ControllerStatusRequest struct {
	ControllerRequestMixIn
}

type ControllerStatusResponse struct {
	ActorResponseMixIn
	Lifecycle LifecycleState
	Control   *ChargeControlStatusResponse
}

// ensure interface compliance
var _ ControllerRequest = (*ControllerEnableRequest)(nil)
var _ ControllerRequest = (*ControllerStatusRequest)(nil)
