package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE        = "bridge"
	SENSOR_ID_BATTERY_LEVEL       = "battery_level"
	SENSOR_ID_BATTERY_TEMPERATURE = "battery_temperature"
	SENSOR_ID_ACTUATION_STATE     = "actuation_state"
	SENSOR_ID_LAST_DISPATCH       = "last_dispatch"
	SWITCH_ID_CHARGE_CONTROL      = "charge_control"
	STATE_CLASS_MEASUREMENT       = "measurement"
	DEVICE_CLASS_BATTERY          = "battery"
	DEVICE_CLASS_TEMPERATURE      = "temperature"
	DEVICE_CLASS_CONNECTIVITY     = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC       = "diagnostic"
	SENSOR_TYPE_SENSOR            = "sensor"
	SENSOR_TYPE_BINARY            = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("chargeswitch_%s", md5HashShort(baseTopic)),
		Manufacturer: "chargeswitch",
		Model:        "Charge Switch",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Charge Switch %s", md5HashShort(baseTopic)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id: device.Id,
	}
}

func BridgeSensors(device Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         device,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Bridge state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(device.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

func ChargeControlSensors(device Device) []GenericSensor {

	var sensors []GenericSensor

	// Battery level
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_BATTERY_LEVEL,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery level",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_BATTERY_LEVEL),
	})

	// Battery temperature
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_BATTERY_TEMPERATURE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery temperature",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_TEMPERATURE,
		UnitOfMeasurement: "°C",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_BATTERY_TEMPERATURE),
	})

	// Plug state as last commanded
	sensors = append(sensors, GenericSensor{
		Device:     device,
		Id:         SENSOR_ID_ACTUATION_STATE,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Charger plug state",
		Icon:       "mdi:power-plug",
		UniqueId:   uniqueId(device.Id, SENSOR_ID_ACTUATION_STATE),
	})

	// Last dispatch outcome
	sensors = append(sensors, GenericSensor{
		Device:         device,
		Id:             SENSOR_ID_LAST_DISPATCH,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Last plug command",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:web",
		UniqueId:       uniqueId(device.Id, SENSOR_ID_LAST_DISPATCH),
	})

	return sensors
}

func ChargeControlSwitches(device Device) []GenericSwitch {
	return []GenericSwitch{
		{
			Device:   device,
			Id:       SWITCH_ID_CHARGE_CONTROL,
			Name:     "Charge control",
			Icon:     "mdi:battery-charging",
			UniqueId: uniqueId(device.Id, SWITCH_ID_CHARGE_CONTROL),
		},
	}
}

func uniqueId(deviceId, sensorId string) string {
	return fmt.Sprintf("%s_%s", deviceId, sensorId)
}

func md5HashShort(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])[0:8]
}
