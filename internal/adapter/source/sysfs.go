package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"chargeswitch/internal/config"
	"chargeswitch/internal/core/domain"

	"github.com/shirou/gopsutil/v4/sensors"
	"github.com/spf13/afero"
)

var ErrNoTemperature = errors.New("no battery temperature available")

type TemperatureProvider func(ctx context.Context) ([]sensors.TemperatureStat, error)

// SysfsBatteryReader reads the Linux power supply class attributes of one
// battery. capacity is a percentage, temp is in tenths of a degree Celsius.
// Batteries that do not expose temp fall back to the hwmon/thermal sensors
// reported by gopsutil.
type SysfsBatteryReader struct {
	fs           afero.Fs
	dir          string
	sensorKey    string
	temperatures TemperatureProvider
}

func NewSysfsBatteryReader(filesystem afero.Fs, cfg config.SourceConfig) *SysfsBatteryReader {
	return &SysfsBatteryReader{
		fs:           filesystem,
		dir:          path.Join(cfg.PowerSupplyPath, cfg.Battery),
		sensorKey:    cfg.TemperatureSensor,
		temperatures: sensors.TemperaturesWithContext,
	}
}

func (r *SysfsBatteryReader) WithTemperatureProvider(provider TemperatureProvider) *SysfsBatteryReader {
	r.temperatures = provider
	return r
}

func (r *SysfsBatteryReader) Read(ctx context.Context) (domain.BatterySample, error) {
	level, err := r.readInt("capacity")
	if err != nil {
		return domain.BatterySample{}, fmt.Errorf("read battery capacity: %w", err)
	}
	temp, err := r.readTemperature(ctx)
	if err != nil {
		return domain.BatterySample{}, fmt.Errorf("read battery temperature: %w", err)
	}
	sample := domain.BatterySample{
		Level:       level,
		Temperature: temp,
	}
	if err := sample.Validate(); err != nil {
		return domain.BatterySample{}, err
	}
	return sample, nil
}

func (r *SysfsBatteryReader) readTemperature(ctx context.Context) (float64, error) {
	tenths, err := r.readInt("temp")
	if err == nil {
		return float64(tenths) / 10, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}
	if r.temperatures == nil {
		return 0, ErrNoTemperature
	}

	stats, err := r.temperatures(ctx)
	if len(stats) == 0 {
		if err != nil {
			return 0, err
		}
		return 0, ErrNoTemperature
	}
	for _, stat := range stats {
		if r.matchesSensor(stat.SensorKey) {
			return stat.Temperature, nil
		}
	}
	return 0, fmt.Errorf("%w: no sensor matching %q", ErrNoTemperature, r.sensorKey)
}

func (r *SysfsBatteryReader) matchesSensor(key string) bool {
	key = strings.ToLower(key)
	if r.sensorKey != "" {
		return strings.Contains(key, strings.ToLower(r.sensorKey))
	}
	return strings.Contains(key, "bat")
}

func (r *SysfsBatteryReader) readInt(attr string) (int, error) {
	raw, err := afero.ReadFile(r.fs, path.Join(r.dir, attr))
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", attr, err)
	}
	return value, nil
}
