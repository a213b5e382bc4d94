package source

import (
	"context"
	"fmt"
	"time"

	"chargeswitch/internal/config"
	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/port"
	"chargeswitch/internal/util/actorutil"

	"github.com/reugn/go-quartz/quartz"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	SAMPLE_SOURCE_SYSFS = "sysfs"
	sysfsPollJobKey     = "sysfs_battery_poll"
)

type SampleReader interface {
	Read(ctx context.Context) (domain.BatterySample, error)
}

// SysfsPollJob reads one sample per execution and hands it to the sink. A
// failed read skips the tick.
type SysfsPollJob struct {
	reader SampleReader
	sink   port.SampleSink
	logger *zap.Logger
}

func NewSysfsPollJob(reader SampleReader, sink port.SampleSink, logger *zap.Logger) *SysfsPollJob {
	return &SysfsPollJob{
		reader: reader,
		sink:   sink,
		logger: actorutil.ActorLogger(SAMPLE_SOURCE_SYSFS, logger),
	}
}

func (j *SysfsPollJob) Execute(ctx context.Context) error {
	sample, err := j.reader.Read(ctx)
	if err != nil {
		j.logger.Warn("sysfs@poll read failed, tick skipped", zap.Error(err))
		return err
	}
	j.logger.Debug("sysfs@poll sample", zap.Stringer("sample", sample))
	j.sink.Submit(sample, SAMPLE_SOURCE_SYSFS)
	return nil
}

func (j *SysfsPollJob) Description() string {
	return sysfsPollJobKey
}

// StartSysfsPoller reads a first sample right away and then schedules the
// poll job every source.poll_interval_millis until ctx is done.
func StartSysfsPoller(ctx context.Context, filesystem afero.Fs, cfg config.SourceConfig, sink port.SampleSink, logger *zap.Logger) (quartz.Scheduler, error) {
	interval := time.Duration(cfg.PollIntervalMillis) * time.Millisecond
	if interval < config.MinPollInterval {
		return nil, fmt.Errorf("poll interval %s below minimum %s", interval, config.MinPollInterval)
	}

	job := NewSysfsPollJob(NewSysfsBatteryReader(filesystem, cfg), sink, logger)
	_ = job.Execute(ctx)

	scheduler := quartz.NewStdScheduler()
	scheduler.Start(ctx)

	jobDetail := quartz.NewJobDetail(job, quartz.NewJobKey(sysfsPollJobKey))
	if err := scheduler.ScheduleJob(jobDetail, quartz.NewSimpleTrigger(interval)); err != nil {
		scheduler.Stop()
		return nil, fmt.Errorf("schedule sysfs poll: %w", err)
	}
	return scheduler, nil
}
