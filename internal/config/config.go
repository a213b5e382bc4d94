package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Control  ControlConfig  `mapstructure:"control"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Source   SourceConfig   `mapstructure:"source"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Port     uint           `mapstructure:"port"`
	HttpLog  bool           `mapstructure:"http_log"`
}

// ControlConfig is a startup snapshot used for validation and logging only.
// The control loop reads these values through Store on every sample.
type ControlConfig struct {
	ChargeOffTemperature  float64 `mapstructure:"charge_off_temperature"`
	ChargeOffBatteryLevel int     `mapstructure:"charge_off_battery_level"`
	ChargeOnTemperature   float64 `mapstructure:"charge_on_temperature"`
	ChargeOnBatteryLevel  int     `mapstructure:"charge_on_battery_level"`
	HttpOnUrl             string  `mapstructure:"http_on_url"`
	HttpOffUrl            string  `mapstructure:"http_off_url"`
}

type DispatchConfig struct {
	Workers       int    `mapstructure:"workers"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type SourceConfig struct {
	SysfsEnable        bool   `mapstructure:"sysfs_enable"`
	PowerSupplyPath    string `mapstructure:"power_supply_path"`
	Battery            string `mapstructure:"battery"`
	TemperatureSensor  string `mapstructure:"temperature_sensor"`
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c MQTTConfig) Enabled() bool {
	return c.Host != ""
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// Validate checks bounds that would make the daemon misbehave. Threshold
// values are deliberately not cross-checked: overlapping bands are resolved
// in favour of stopping the charge.
func (c *Config) Validate() error {
	if c.Dispatch.Workers <= 0 {
		return errors.New("config param dispatch.workers should be > 0")
	}
	if c.Dispatch.TimeoutMillis < 100 {
		return errors.New("config param dispatch.timeout_millis should be >= 100")
	}
	if c.Source.SysfsEnable && time.Duration(c.Source.PollIntervalMillis)*time.Millisecond < MinPollInterval {
		return errors.New("config param source.poll_interval_millis should be >= 1000")
	}
	if c.Source.SysfsEnable && c.Source.Battery == "" {
		return errors.New("config param source.battery must be set when source.sysfs_enable is true")
	}
	return nil
}
