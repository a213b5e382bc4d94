package config

import (
	"context"
	"path/filepath"
	"sync"

	"chargeswitch/internal/core/domain"
	"chargeswitch/internal/core/port"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Store serves control settings straight from viper on every read so that
// edits to the config file or environment apply to the next sample.
// All access to the viper instance goes through mu, including reloads.
type Store struct {
	mu     sync.RWMutex
	v      *viper.Viper
	logger *zap.Logger
}

func NewStore(v *viper.Viper, logger *zap.Logger) *Store {
	return &Store{
		v:      v,
		logger: logger.With(zap.String("component", "config_store")),
	}
}

func (s *Store) Thresholds() domain.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Thresholds{
		ChargeOffTemp:  s.float(KeyChargeOffTemperature, DefaultChargeOffTemperature),
		ChargeOffLevel: s.int(KeyChargeOffBatteryLevel, DefaultChargeOffBatteryLevel),
		ChargeOnTemp:   s.float(KeyChargeOnTemperature, DefaultChargeOnTemperature),
		ChargeOnLevel:  s.int(KeyChargeOnBatteryLevel, DefaultChargeOnBatteryLevel),
	}
}

func (s *Store) ActuatorURLs() domain.ActuatorURLs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ActuatorURLs{
		On:  s.string(KeyHttpOnUrl, DefaultHttpOnUrl),
		Off: s.string(KeyHttpOffUrl, DefaultHttpOffUrl),
	}
}

// Watch re-reads the config file whenever it changes until ctx is done.
// It is a no-op when no config file is in use.
func (s *Store) Watch(ctx context.Context) error {
	s.mu.RLock()
	file := s.v.ConfigFileUsed()
	s.mu.RUnlock()
	if file == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// watch the directory, editors usually replace the file
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(file) {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					s.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("config_store@watch error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (s *Store) reload() {
	s.mu.Lock()
	err := s.v.ReadInConfig()
	s.mu.Unlock()
	if err != nil {
		// keep serving the previous values, missing keys still fall back to defaults
		s.logger.Error("config_store@reload could not read config", zap.Error(err))
		return
	}
	s.logger.Info("config_store@reload config reloaded", zap.String("file", s.v.ConfigFileUsed()))
}

func (s *Store) float(key string, def float64) float64 {
	raw := s.v.Get(key)
	if raw == nil {
		return def
	}
	value, err := cast.ToFloat64E(raw)
	if err != nil {
		s.logger.Warn("config_store@read invalid value, using default", zap.String("key", key), zap.Any("value", raw), zap.Float64("default", def))
		return def
	}
	return value
}

func (s *Store) int(key string, def int) int {
	raw := s.v.Get(key)
	if raw == nil {
		return def
	}
	value, err := cast.ToIntE(raw)
	if err != nil {
		s.logger.Warn("config_store@read invalid value, using default", zap.String("key", key), zap.Any("value", raw), zap.Int("default", def))
		return def
	}
	return value
}

func (s *Store) string(key string, def string) string {
	raw := s.v.Get(key)
	if raw == nil {
		return def
	}
	value, err := cast.ToStringE(raw)
	if err != nil {
		s.logger.Warn("config_store@read invalid value, using default", zap.String("key", key), zap.Any("value", raw), zap.String("default", def))
		return def
	}
	return value
}

// ensure interface compliance
var _ port.ControlConfigStore = (*Store)(nil)
