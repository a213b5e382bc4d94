package util

import (
	"chargeswitch/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Control: config.ControlConfig{
			ChargeOffTemperature:  config.DefaultChargeOffTemperature,
			ChargeOffBatteryLevel: config.DefaultChargeOffBatteryLevel,
			ChargeOnTemperature:   config.DefaultChargeOnTemperature,
			ChargeOnBatteryLevel:  config.DefaultChargeOnBatteryLevel,
			HttpOnUrl:             config.DefaultHttpOnUrl,
			HttpOffUrl:            config.DefaultHttpOffUrl,
		},
		Dispatch: config.DispatchConfig{
			Workers:       2,
			TimeoutMillis: 1000,
		},
		Source: config.SourceConfig{
			PowerSupplyPath:    "/sys/class/power_supply",
			Battery:            "BAT0",
			PollIntervalMillis: 1000,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "chargeswitch",
		},
		Port: 8080,
	}
}
