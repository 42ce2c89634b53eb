// Package settings provides a small synchronous key-value store for
// app-level flags such as first-launch and onboarding state.
package settings

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Well-known keys.
const (
	KeyFirstLaunchAt      = "first_launch_at"
	KeyOnboardingComplete = "onboarding_complete"
)

// keyPrefix namespaces settings inside the Badger keyspace.
const keyPrefix = "setting:"

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Options configures where settings live.
type Options struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// Open opens (or creates) the settings store.
func Open(opts Options, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(opts.Path)
		bopts.SyncWrites = true // Flags are tiny; durability beats throughput.
	}
	bopts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.Debug("settings store opened", "path", opts.Path, "in_memory", opts.InMemory)

	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Shutdown implements do.ShutdownerWithError.
func (s *Store) Shutdown() error {
	return s.Close()
}

// Get returns the value for key and whether it was set.
func (s *Store) Get(key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return string(value), true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(storeKey(key))
	})
	if err != nil {
		return fmt.Errorf("remove setting %q: %w", key, err)
	}
	return nil
}

func storeKey(key string) []byte {
	return []byte(keyPrefix + key)
}
