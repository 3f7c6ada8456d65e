package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("storage: key not found")
	// ErrKeyExists is returned by PutIfAbsent when the key is already taken.
	ErrKeyExists = errors.New("storage: key already exists")
)

// Store is a durable mapping from string keys to JSON values.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// PutIfAbsent stores value under key only if the key is unused.
	// It returns ErrKeyExists otherwise. The check and the write are atomic.
	PutIfAbsent(ctx context.Context, key string, value []byte) error

	// Close releases the underlying connection or database handle.
	Close() error
}

// LinkKey returns the namespaced key for a short code.
func LinkKey(code string) string {
	return "link:" + code
}
