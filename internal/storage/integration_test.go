package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The network-backed stores run only when a server is provided through the
// environment, e.g. QUICKLOOK_TEST_REDIS_ADDR=localhost:6379.

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("QUICKLOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("QUICKLOOK_TEST_REDIS_ADDR not set")
	}

	store, err := NewRedisStore(context.Background(), &redis.Options{Addr: addr}, testLogger())
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.Close()) }()

	runStoreSuite(t, &prefixedStore{Store: store, prefix: "test:" + uuid.NewString() + ":"})
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("QUICKLOOK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("QUICKLOOK_TEST_POSTGRES_DSN not set")
	}

	store, err := NewPostgresStore(context.Background(), dsn, testLogger())
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.Close()) }()

	runStoreSuite(t, &prefixedStore{Store: store, prefix: "test:" + uuid.NewString() + ":"})
}

// prefixedStore isolates a test run on a shared server.
type prefixedStore struct {
	Store
	prefix string
}

func (p *prefixedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return p.Store.Get(ctx, p.prefix+key)
}

func (p *prefixedStore) Put(ctx context.Context, key string, value []byte) error {
	return p.Store.Put(ctx, p.prefix+key, value)
}

func (p *prefixedStore) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	return p.Store.PutIfAbsent(ctx, p.prefix+key, value)
}
