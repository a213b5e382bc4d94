package domain

import "time"

const (
	ACTOR_ID_MASTER         = "master"
	ACTOR_ID_CHARGE_CONTROL = "charge_control"
	ACTOR_ID_DISPATCHER     = "dispatcher"
	ACTOR_ID_MQTT           = "mqtt"
	ACTOR_ID_HA_DISCOVERY   = "hadiscovery"
)

type BatterySampleReceived struct {
	Sample BatterySample
	Source string
}

type DispatchRequest struct {
	ActorRequestMixIn
	Id     string
	Action Action
	URL    string
}

const (
	DISPATCH_OUTCOME_SUCCESS         = "success"
	DISPATCH_OUTCOME_HTTP_ERROR      = "http_error"
	DISPATCH_OUTCOME_TRANSPORT_ERROR = "transport_error"
	DISPATCH_OUTCOME_TIMEOUT         = "timeout"
	DISPATCH_OUTCOME_SKIPPED         = "skipped"
)

// DispatchCompletedEvent is published on the event stream once a dispatch
// attempt has finished, whatever its outcome.
type DispatchCompletedEvent struct {
	Id         string
	Action     Action
	URL        string
	Outcome    string
	StatusCode int
	Error      error
	Duration   time.Duration
}

type ChargeControlStatusRequest struct {
	ActorRequestMixIn
}

type ChargeControlStatusResponse struct {
	ActorResponseMixIn
	State            ActuationState
	LastSample       *BatterySample
	SamplesAccepted  uint64
	SamplesDebounced uint64
	Dispatches       uint64
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors  []GenericSensor
	Switches []GenericSwitch
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
