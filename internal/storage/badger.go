package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
)

var _ domain.PreferenceStore = (*BadgerStore)(nil)

const prefPrefix = "pref:"

// BadgerStore keeps preferences in a badger database directory. Keys are
// stored as "pref:<key>".
type BadgerStore struct {
	db  *badger.DB
	log *logger.Logger
}

// OpenBadgerStore opens (or creates) the database at dir.
func OpenBadgerStore(dir string, log *logger.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store %s: %w", dir, err)
	}
	log.Debug("badger preference store opened at %s", dir)
	return &BadgerStore{db: db, log: log}, nil
}

// Get returns the value stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) (string, error) {
	var out string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading preference %s: %w", key, err)
	}
	return out, nil
}

// Set stores value under key.
func (s *BadgerStore) Set(ctx context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefPrefix+key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("writing preference %s: %w", key, err)
	}
	s.log.Debug("saved preference %s=%q", key, value)
	return nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error { return s.db.Close() }
