package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chargeswitch/internal/config"
	"chargeswitch/internal/core/domain"

	"github.com/shirou/gopsutil/v4/sensors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSourceConfig = config.SourceConfig{
	SysfsEnable:        true,
	PowerSupplyPath:    "/sys/class/power_supply",
	Battery:            "BAT0",
	PollIntervalMillis: 1000,
}

func writeAttr(t *testing.T, fs afero.Fs, attr, value string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, "/sys/class/power_supply/BAT0/"+attr, []byte(value), 0o644))
}

func noSensors(context.Context) ([]sensors.TemperatureStat, error) {
	return nil, nil
}

func TestSysfsReadCapacityAndTemp(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeAttr(t, fs, "capacity", "57\n")
	writeAttr(t, fs, "temp", "253\n")

	sample, err := NewSysfsBatteryReader(fs, testSourceConfig).WithTemperatureProvider(noSensors).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.BatterySample{Level: 57, Temperature: 25.3}, sample)
}

func TestSysfsFallsBackToSensors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeAttr(t, fs, "capacity", "80")

	provider := func(context.Context) ([]sensors.TemperatureStat, error) {
		return []sensors.TemperatureStat{
			{SensorKey: "coretemp_package_id_0", Temperature: 55},
			{SensorKey: "acpitz", Temperature: 31.5},
		}, nil
	}

	cfg := testSourceConfig
	cfg.TemperatureSensor = "acpitz"
	sample, err := NewSysfsBatteryReader(fs, cfg).WithTemperatureProvider(provider).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.BatterySample{Level: 80, Temperature: 31.5}, sample)

	// without a configured key only battery sensors qualify
	_, err = NewSysfsBatteryReader(fs, testSourceConfig).WithTemperatureProvider(provider).Read(context.Background())
	assert.ErrorIs(t, err, ErrNoTemperature)
}

func TestSysfsReadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	reader := NewSysfsBatteryReader(fs, testSourceConfig).WithTemperatureProvider(noSensors)

	_, err := reader.Read(context.Background())
	assert.Error(t, err, "missing capacity")

	writeAttr(t, fs, "capacity", "abc")
	writeAttr(t, fs, "temp", "250")
	_, err = reader.Read(context.Background())
	assert.Error(t, err, "unparsable capacity")

	writeAttr(t, fs, "capacity", "150")
	_, err = reader.Read(context.Background())
	assert.Error(t, err, "capacity out of range")

	require.NoError(t, fs.Remove("/sys/class/power_supply/BAT0/temp"))
	writeAttr(t, fs, "capacity", "50")
	_, err = reader.Read(context.Background())
	assert.ErrorIs(t, err, ErrNoTemperature)
}

type recordingSink struct {
	mu      sync.Mutex
	samples []domain.BatterySample
	sources []string
}

func (s *recordingSink) Submit(sample domain.BatterySample, source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	s.sources = append(s.sources, source)
	return true
}

type stubReader struct {
	sample domain.BatterySample
	err    error
}

func (r stubReader) Read(context.Context) (domain.BatterySample, error) {
	return r.sample, r.err
}

func TestSysfsPollJob(t *testing.T) {
	sink := &recordingSink{}
	logger := zap.Must(zap.NewDevelopment())

	job := NewSysfsPollJob(stubReader{sample: domain.BatterySample{Level: 42, Temperature: 20}}, sink, logger)
	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, []domain.BatterySample{{Level: 42, Temperature: 20}}, sink.samples)
	assert.Equal(t, []string{SAMPLE_SOURCE_SYSFS}, sink.sources)
	assert.NotEmpty(t, job.Description())

	failing := NewSysfsPollJob(stubReader{err: errors.New("read failed")}, sink, logger)
	assert.Error(t, failing.Execute(context.Background()))
	assert.Len(t, sink.samples, 1, "failed read must not submit")
}

func TestStartSysfsPollerRejectsShortInterval(t *testing.T) {
	cfg := testSourceConfig
	cfg.PollIntervalMillis = 200
	_, err := StartSysfsPoller(context.Background(), afero.NewMemMapFs(), cfg, &recordingSink{}, zap.NewNop())
	assert.Error(t, err)
}

func TestStartSysfsPollerReadsImmediately(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeAttr(t, fs, "capacity", "64")
	writeAttr(t, fs, "temp", "215")
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler, err := StartSysfsPoller(ctx, fs, testSourceConfig, sink, zap.NewNop())
	require.NoError(t, err)
	defer scheduler.Stop()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotEmpty(t, sink.samples)
	assert.Equal(t, domain.BatterySample{Level: 64, Temperature: 21.5}, sink.samples[0])
}

func TestStartSysfsPollerSchedulesReads(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeAttr(t, fs, "capacity", "64")
	writeAttr(t, fs, "temp", "215")
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler, err := StartSysfsPoller(ctx, fs, testSourceConfig, sink, zap.NewNop())
	require.NoError(t, err)
	defer scheduler.Stop()
	assert.True(t, scheduler.IsStarted())

	writeAttr(t, fs, "capacity", "65")

	assert.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		for _, sample := range sink.samples {
			if sample.Level == 65 {
				return true
			}
		}
		return false
	}, 3*time.Second, 50*time.Millisecond)
}
