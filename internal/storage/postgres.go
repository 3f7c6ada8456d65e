package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS kv_store (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// PostgresStore implements Store as a two-column key/value table. Values are
// kept as TEXT so reads return the bytes that were written.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

// NewPostgresStore connects to dsn and creates the kv_store table if needed.
func NewPostgresStore(ctx context.Context, dsn string, logger logrus.FieldLogger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createKVTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}
	logger.Info("Postgres connection established")

	return &PostgresStore{
		pool: pool,
		log:  logger.WithField("component", "store"),
	}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to read key")
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_store (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, string(value))
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to write key")
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO kv_store (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		key, string(value))
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to conditionally write key")
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyExists
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
