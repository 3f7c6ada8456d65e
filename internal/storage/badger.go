package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// BadgerStore implements Store on top of an embedded BadgerDB.
type BadgerStore struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerStore opens (or creates) the database at dbPath.
func NewBadgerStore(dbPath string, logger logrus.FieldLogger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	// Route Badger's internal logging through logrus.
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}
	logger.WithField("path", dbPath).Info("BadgerDB opened")

	return &BadgerStore{
		db:  db,
		log: logger.WithField("component", "store"),
	}, nil
}

// Close closes the BadgerDB database.
func (s *BadgerStore) Close() error {
	s.log.Info("Closing BadgerDB...")
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	s.log.Info("BadgerDB closed.")
	return nil
}

// Get reads the value stored under key.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to read key")
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Put writes value under key, overwriting any previous value.
func (s *BadgerStore) Put(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value))
	})
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to write key")
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// PutIfAbsent writes value under key inside a single transaction that first
// checks the key. Badger's optimistic concurrency aborts the commit with
// ErrConflict if another transaction wrote the key meanwhile; that is
// reported as ErrKeyExists.
func (s *BadgerStore) PutIfAbsent(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		switch {
		case err == nil:
			return ErrKeyExists
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.SetEntry(badger.NewEntry([]byte(key), value))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrKeyExists), errors.Is(err, badger.ErrConflict):
		return ErrKeyExists
	default:
		s.log.WithError(err).WithField("key", key).Error("Failed to conditionally write key")
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
}

// RunGC reclaims value-log space every interval until ctx is cancelled.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.7)
			switch {
			case err == nil:
				s.log.Info("BadgerDB GC completed")
			case errors.Is(err, badger.ErrNoRewrite):
				s.log.Debug("BadgerDB GC: no rewrite needed")
			case errors.Is(err, badger.ErrDBClosed):
				return
			default:
				s.log.WithError(err).Error("BadgerDB GC failed")
			}
		case <-ctx.Done():
			s.log.Info("Stopping BadgerDB GC routine")
			return
		}
	}
}

// --- BadgerDB Internal Logger ---

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
