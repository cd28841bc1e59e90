// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/campusatlas/campusatlas/internal/models"
)

// LocationStore is the system of record for current locations: one record
// per user, fully replaced on every write. Entries carry a badger TTL
// matching ExpiresAt; Get additionally checks ExpiresAt so a record is
// never served stale even before badger purges it.
type LocationStore struct {
	db *badger.DB
}

// NewLocationStore creates a LocationStore on the given database.
func NewLocationStore(db *badger.DB) *LocationStore {
	return &LocationStore{db: db}
}

// Upsert replaces the user's current location record.
func (s *LocationStore) Upsert(ctx context.Context, rec *models.LocationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal location record: %w", err)
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("location record for %s already expired", rec.UserID)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(locationKeyPrefix+rec.UserID), data).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set location record: %w", err)
		}
		return nil
	})
}

// Get returns the user's current location record, or ErrLocationNotFound
// when the record is missing or past its expiry.
func (s *LocationStore) Get(ctx context.Context, userID string) (*models.LocationRecord, error) {
	var rec models.LocationRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(locationKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrLocationNotFound
		}
		if err != nil {
			return fmt.Errorf("get location record: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}

	if rec.Expired(time.Now()) {
		return nil, ErrLocationNotFound
	}
	return &rec, nil
}

// Delete removes the user's current location record. Missing records are a
// no-op.
func (s *LocationStore) Delete(ctx context.Context, userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(locationKeyPrefix + userID))
	})
}
