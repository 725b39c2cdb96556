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

func alertKey(a *models.Alert) []byte {
	return []byte(alertKeyPrefix + a.UserID + ":" + invertedTimestamp(a.CreatedAt) + ":" + a.ID.String())
}

// SaveAlert persists an emitted alert under its owner's prefix.
func (s *Store) SaveAlert(ctx context.Context, a *models.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(alertKey(a), data)
	})
	if err != nil {
		return fmt.Errorf("save alert for %s: %w", a.UserID, err)
	}
	return nil
}

// ListAlerts returns up to limit alerts for the user, newest first.
// A limit <= 0 returns all alerts.
func (s *Store) ListAlerts(ctx context.Context, userID string, limit int) ([]models.Alert, error) {
	prefix := []byte(alertKeyPrefix + userID + ":")
	var alerts []models.Alert
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if limit > 0 && len(alerts) >= limit {
				break
			}
			var a models.Alert
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			})
			if err != nil {
				return fmt.Errorf("decode alert: %w", err)
			}
			alerts = append(alerts, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts for %s: %w", userID, err)
	}
	return alerts, nil
}
