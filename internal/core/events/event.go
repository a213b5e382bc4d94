package events

import (
	. "chargeswitch/internal/core/domain"
)

func BatterySampleToUpdateEvents(sample BatterySample) []any {
	var events []any

	// Battery level
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_LEVEL,
		},
		Value:    float64(sample.Level),
		Decimals: 0,
	})
	// Battery temperature
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_TEMPERATURE,
		},
		Value:    sample.Temperature,
		Decimals: 1,
	})

	return events
}

func ActuationStateUpdateEvent(state ActuationState) TextSensorUpdateEvent {
	return TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_ACTUATION_STATE,
		},
		Value: state.String(),
	}
}

func LastDispatchUpdateEvent(ev DispatchCompletedEvent) TextSensorUpdateEvent {
	return TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_LAST_DISPATCH,
		},
		Value: ev.Action.String() + ":" + ev.Outcome,
	}
}

func ChargeControlSwitchUpdateEvent(running bool) SwitchSensorUpdateEvent {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_CHARGE_CONTROL,
		},
		Value: running,
	}
}

func BridgeStateUpdate(online bool) BridgeStateUpdateEvent {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
