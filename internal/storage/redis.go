package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore implements Store with plain GET/SET and SETNX for the
// conditional write. Keys never expire.
type RedisStore struct {
	client *redis.Client
	log    logrus.FieldLogger
}

// NewRedisStore connects to addr and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts *redis.Options, logger logrus.FieldLogger) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", opts.Addr, err)
	}
	logger.WithField("addr", opts.Addr).Info("Redis connection established")

	return &RedisStore{
		client: client,
		log:    logger.WithField("component", "store"),
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to read key")
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to write key")
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	ok, err := s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to conditionally write key")
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	if !ok {
		return ErrKeyExists
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
