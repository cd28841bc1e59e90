// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/campusatlas/campusatlas/internal/models"
)

// UserStore persists user profiles, their visited-point sets, and named
// stat counters.
type UserStore struct {
	db *badger.DB
}

// NewUserStore creates a UserStore on the given database.
func NewUserStore(db *badger.DB) *UserStore {
	return &UserStore{db: db}
}

// Put stores a user profile.
func (s *UserStore) Put(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(userKeyPrefix+user.ID), data)
	})
}

// User returns the profile for the given id, or ErrUserNotFound.
func (s *UserStore) User(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKeyPrefix+id, &user, ErrUserNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// PrivacySetting returns the user's location-sharing configuration.
func (s *UserStore) PrivacySetting(ctx context.Context, id string) (models.PrivacySetting, error) {
	user, err := s.User(ctx, id)
	if err != nil {
		return models.PrivacySetting{}, err
	}
	return user.Privacy, nil
}

// MarkVisited appends a point id to the user's visited set. Returns true
// when the point was newly added, false when it was already present.
func (s *UserStore) MarkVisited(ctx context.Context, userID, poiID string) (bool, error) {
	added := false
	err := s.db.Update(func(txn *badger.Txn) error {
		var user models.User
		if err := getJSON(txn, userKeyPrefix+userID, &user, ErrUserNotFound); err != nil {
			return err
		}
		if user.HasVisited(poiID) {
			return nil
		}
		user.Visited = append(user.Visited, poiID)
		added = true

		data, err := json.Marshal(&user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return txn.Set([]byte(userKeyPrefix+userID), data)
	})
	return added, err
}

// IncrementStat adds delta to a named counter on the user.
func (s *UserStore) IncrementStat(ctx context.Context, userID, name string, delta int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var user models.User
		if err := getJSON(txn, userKeyPrefix+userID, &user, ErrUserNotFound); err != nil {
			return err
		}
		if user.Stats == nil {
			user.Stats = make(map[string]int64)
		}
		user.Stats[name] += delta

		data, err := json.Marshal(&user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return txn.Set([]byte(userKeyPrefix+userID), data)
	})
}

// getJSON loads and unmarshals a JSON value, mapping a missing key to the
// given sentinel.
func getJSON(txn *badger.Txn, key string, dst any, notFound error) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}
