// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package store persists Vigil's state in BadgerDB: behavioral events,
// per-user baselines, the latest risk assessment per user, emitted alerts,
// and the user/device records the background monitor iterates.
//
// Keys are prefix-partitioned per record type and per user. Event and alert
// keys embed an inverted timestamp so a forward prefix scan yields
// newest-first order without sorting:
//
//	event:<user>:<inverted-nanos>:<id>
//	alert:<user>:<inverted-nanos>:<id>
//	baseline:<user>
//	risk:<user>
//	user:<id>
//	device:<user>:<id>
package store

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/vigil/internal/logging"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Key prefixes for BadgerDB storage.
const (
	eventKeyPrefix    = "event:"
	baselineKeyPrefix = "baseline:"
	riskKeyPrefix     = "risk:"
	alertKeyPrefix    = "alert:"
	userKeyPrefix     = "user:"
	deviceKeyPrefix   = "device:"
)

// Store wraps a badger DB with Vigil's access patterns.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at the given directory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	logging.Info().Str("path", path).Msg("store opened")
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store, used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// invertedTimestamp encodes t so ascending key order is descending time.
func invertedTimestamp(t time.Time) string {
	return fmt.Sprintf("%020d", math.MaxInt64-t.UnixNano())
}
