package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyChargeOffTemperature  = "control.charge_off_temperature"
	KeyChargeOffBatteryLevel = "control.charge_off_battery_level"
	KeyChargeOnTemperature   = "control.charge_on_temperature"
	KeyChargeOnBatteryLevel  = "control.charge_on_battery_level"
	KeyHttpOnUrl             = "control.http_on_url"
	KeyHttpOffUrl            = "control.http_off_url"
)

const (
	DefaultChargeOffTemperature  = 30.0
	DefaultChargeOffBatteryLevel = 20
	DefaultChargeOnTemperature   = 15.0
	DefaultChargeOnBatteryLevel  = 80
	DefaultHttpOnUrl             = "http://192.168.1.242/cm?cmnd=Power%20ON"
	DefaultHttpOffUrl            = "http://192.168.1.242/cm?cmnd=Power%20OFF"
)

const MinPollInterval = time.Second

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("port", 8080)
	v.SetDefault(KeyChargeOffTemperature, DefaultChargeOffTemperature)
	v.SetDefault(KeyChargeOffBatteryLevel, DefaultChargeOffBatteryLevel)
	v.SetDefault(KeyChargeOnTemperature, DefaultChargeOnTemperature)
	v.SetDefault(KeyChargeOnBatteryLevel, DefaultChargeOnBatteryLevel)
	v.SetDefault(KeyHttpOnUrl, DefaultHttpOnUrl)
	v.SetDefault(KeyHttpOffUrl, DefaultHttpOffUrl)
	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.timeout_millis", 5000)
	v.SetDefault("source.sysfs_enable", false)
	v.SetDefault("source.power_supply_path", "/sys/class/power_supply")
	v.SetDefault("source.battery", "BAT0")
	v.SetDefault("source.temperature_sensor", "")
	v.SetDefault("source.poll_interval_millis", 10000)
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.ha_discovery_enable", false)
	v.SetDefault("mqtt.base_topic", "chargeswitch")
	v.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// ConfigureEnv binds every key to CHARGESWITCH_<SECTION>_<KEY>.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix("chargeswitch")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
}
