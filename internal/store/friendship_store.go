// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/campusatlas/campusatlas/internal/models"
)

// FriendshipStore persists friendship edges. Each edge is written under
// both direction keys (edge:<a>:<b> and edge:<b>:<a>) so pair lookup and
// per-user listing are single-prefix operations.
type FriendshipStore struct {
	db *badger.DB
}

// NewFriendshipStore creates a FriendshipStore on the given database.
func NewFriendshipStore(db *badger.DB) *FriendshipStore {
	return &FriendshipStore{db: db}
}

func edgeKey(a, b string) []byte {
	return []byte(edgeKeyPrefix + a + ":" + b)
}

// Put stores an edge under both direction keys.
func (s *FriendshipStore) Put(ctx context.Context, edge *models.FriendshipEdge) error {
	data, err := json.Marshal(edge)
	if err != nil {
		return fmt.Errorf("marshal edge: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(edgeKey(edge.UserID, edge.FriendID), data); err != nil {
			return fmt.Errorf("set edge: %w", err)
		}
		if err := txn.Set(edgeKey(edge.FriendID, edge.UserID), data); err != nil {
			return fmt.Errorf("set reverse edge: %w", err)
		}
		return nil
	})
}

// Edge returns the friendship edge between two users regardless of which
// side initiated it, or ErrEdgeNotFound.
func (s *FriendshipStore) Edge(ctx context.Context, userID, friendID string) (*models.FriendshipEdge, error) {
	var edge models.FriendshipEdge
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, edgeKeyPrefix+userID+":"+friendID, &edge, ErrEdgeNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// AcceptedSharing returns the accepted edges for a user that have the
// shareLocation flag set. The returned edges are oriented so that the
// other party is the friend relative to userID.
func (s *FriendshipStore) AcceptedSharing(ctx context.Context, userID string) ([]models.FriendshipEdge, error) {
	var edges []models.FriendshipEdge

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(edgeKeyPrefix + userID + ":")
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var edge models.FriendshipEdge
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &edge)
			})
			if err != nil {
				return fmt.Errorf("unmarshal edge: %w", err)
			}
			if !edge.Accepted() || !edge.ShareLocation {
				continue
			}
			// Orient the edge from userID's perspective.
			if edge.UserID != userID {
				edge.UserID, edge.FriendID = edge.FriendID, edge.UserID
			}
			edges = append(edges, edge)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
}
