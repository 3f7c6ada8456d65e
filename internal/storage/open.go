package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Driver names a Store backend.
type Driver string

const (
	DriverBadger   Driver = "badger"
	DriverMemory   Driver = "memory"
	DriverRedis    Driver = "redis"
	DriverPostgres Driver = "postgres"
)

// Options selects and configures a backend for Open.
type Options struct {
	Driver        Driver
	BadgerPath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PostgresDSN   string
}

// Open builds the Store selected by opts.Driver.
func Open(ctx context.Context, opts Options, logger logrus.FieldLogger) (Store, error) {
	log := logger.WithField("driver", string(opts.Driver))

	switch opts.Driver {
	case DriverBadger:
		s, err := NewBadgerStore(opts.BadgerPath, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMemory:
		log.Warn("Using in-memory store; links will not survive a restart")
		return NewMemoryStore(), nil
	case DriverRedis:
		s, err := NewRedisStore(ctx, &redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		}, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgresStore(ctx, opts.PostgresDSN, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
