// Package app assembles stores, directory and notifiers from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"davinci-allocation/internal/common/database"
	commonmqtt "davinci-allocation/internal/common/mqtt"
	commonredis "davinci-allocation/internal/common/redis"
	"davinci-allocation/internal/config"
	"davinci-allocation/internal/directory"
	"davinci-allocation/internal/notify"
	"davinci-allocation/internal/repository"

	"go.uber.org/zap"
)

// Resources owns the connections opened while wiring. Close releases them in reverse order.
type Resources struct {
	closers []func() error
	redis   *commonredis.Client
}

func (r *Resources) add(fn func() error) { r.closers = append(r.closers, fn) }

func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// redisClient connects lazily; the store and the stream notifier share one client.
func (r *Resources) redisClient(ctx context.Context, cfg *config.Config) (*commonredis.Client, error) {
	if r.redis != nil {
		return r.redis, nil
	}
	c, err := commonredis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	r.redis = c
	r.add(c.Close)
	return c, nil
}

// OpenStore builds the allocation store selected by cfg.Store.Backend.
func OpenStore(ctx context.Context, cfg *config.Config, res *Resources, logger *zap.Logger) (repository.AllocationStore, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return repository.NewMemoryAllocationStore(), nil
	case config.StoreFile, "":
		return repository.NewFileAllocationStore(cfg.Store.DataDir, logger), nil
	case config.StoreSQLite:
		s, err := repository.NewSQLiteAllocationStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		res.add(s.Close)
		return s, nil
	case config.StorePostgres:
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		res.add(db.Close)
		s := repository.NewPostgresAllocationStore(db, logger)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreRedis:
		c, err := res.redisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisAllocationStore(c, cfg.Store.AllocationsKey), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// OpenDirectory returns the mock directory when the API key is the test key, otherwise the HTTP client.
func OpenDirectory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (directory.Directory, error) {
	if !cfg.Directory.Mock() {
		return directory.NewHTTPDirectory(cfg.Directory.BaseURL, cfg.Directory.APIKey, cfg.Directory.Timeout, logger), nil
	}
	teachers, err := directory.LoadMockTeachers(ctx, cfg.Directory.MockTeachersFile, cfg.CompatibilitySeed, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Using mock teacher directory", zap.Int("teachers", len(teachers)))
	return directory.NewMockDirectory(teachers, logger), nil
}

// OpenNotifier always includes email; the Redis stream and MQTT sinks are added when configured.
func OpenNotifier(ctx context.Context, cfg *config.Config, res *Resources, logger *zap.Logger) (notify.Notifier, error) {
	sinks := notify.MultiNotifier{notify.NewEmailNotifier(cfg.Email, logger)}

	if cfg.Notify.Stream != "" {
		c, err := res.redisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notify.NewStreamNotifier(c, cfg.Notify.Stream, logger))
	}

	if cfg.Notify.MQTT.Enabled {
		m := cfg.Notify.MQTT
		client, err := commonmqtt.NewClient(&commonmqtt.Config{
			Broker:   m.Broker,
			ClientID: m.ClientID,
			Username: m.Username,
			Password: m.Password,
		})
		if err != nil {
			return nil, err
		}
		res.add(func() error { client.Disconnect(); return nil })
		sinks = append(sinks, notify.NewMQTTNotifier(client, m.Topic, logger))
	}
	return sinks, nil
}
