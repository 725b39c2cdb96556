// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/tomtom215/vigil/internal/models"
)

// SaveBaseline stores the user's behavioral baseline, replacing any prior one.
func (s *Store) SaveBaseline(ctx context.Context, b *models.Baseline) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(baselineKeyPrefix+b.UserID), data)
	})
	if err != nil {
		return fmt.Errorf("save baseline for %s: %w", b.UserID, err)
	}
	return nil
}

// GetBaseline returns the user's baseline, or nil when none has been
// computed yet. A missing baseline is a normal condition for new users,
// not an error.
func (s *Store) GetBaseline(ctx context.Context, userID string) (*models.Baseline, error) {
	var b *models.Baseline
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(baselineKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		b = &models.Baseline{}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, b)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get baseline for %s: %w", userID, err)
	}
	return b, nil
}

// SaveAssessment stores the user's latest risk assessment.
func (s *Store) SaveAssessment(ctx context.Context, a *models.RiskAssessment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(riskKeyPrefix+a.UserID), data)
	})
	if err != nil {
		return fmt.Errorf("save assessment for %s: %w", a.UserID, err)
	}
	return nil
}

// GetAssessment returns the user's most recent risk assessment, or
// ErrNotFound when the user has never been scored.
func (s *Store) GetAssessment(ctx context.Context, userID string) (*models.RiskAssessment, error) {
	var a models.RiskAssessment
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(riskKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment for %s: %w", userID, err)
	}
	return &a, nil
}
