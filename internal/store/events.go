// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/tomtom215/vigil/internal/models"
)

func eventKey(userID string, e *models.Event) []byte {
	return []byte(eventKeyPrefix + userID + ":" + invertedTimestamp(e.Timestamp) + ":" + e.ID.String())
}

// AppendEvent persists a behavioral event under its owner's prefix.
func (s *Store) AppendEvent(ctx context.Context, e *models.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(e.UserID, e), data)
	})
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events for the user, newest first.
// A limit <= 0 returns all events.
func (s *Store) RecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	prefix := []byte(eventKeyPrefix + userID + ":")
	var events []models.Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if limit > 0 && len(events) >= limit {
				break
			}
			var e models.Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recent events for %s: %w", userID, err)
	}
	return events, nil
}

// AllEvents returns every stored event for the user, newest first.
func (s *Store) AllEvents(ctx context.Context, userID string) ([]models.Event, error) {
	return s.RecentEvents(ctx, userID, 0)
}
