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

	"github.com/campusatlas/campusatlas/internal/geo"
	"github.com/campusatlas/campusatlas/internal/models"
)

// POIStore persists the point-of-interest catalog and keeps an in-memory
// spatial index over it for radius searches. The index is rebuilt from
// badger on startup via LoadIndex.
type POIStore struct {
	db    *badger.DB
	index *geo.SpatialIndex
}

// NewPOIStore creates a POIStore with a spatial index sized for
// campus-scale queries.
func NewPOIStore(db *badger.DB) *POIStore {
	return &POIStore{
		db:    db,
		index: geo.NewSpatialIndex(250),
	}
}

// LoadIndex rebuilds the spatial index from the persisted catalog.
func (s *POIStore) LoadIndex(ctx context.Context) (int, error) {
	loaded := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(poiKeyPrefix)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var poi models.PointOfInterest
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &poi)
			})
			if err != nil {
				return fmt.Errorf("unmarshal poi: %w", err)
			}
			s.index.Insert(poi.ID, poi.Latitude, poi.Longitude, poi)
			loaded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return loaded, nil
}

// Put stores a point of interest and indexes it.
func (s *POIStore) Put(ctx context.Context, poi *models.PointOfInterest) error {
	data, err := json.Marshal(poi)
	if err != nil {
		return fmt.Errorf("marshal poi: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(poiKeyPrefix+poi.ID), data)
	})
	if err != nil {
		return err
	}
	s.index.Insert(poi.ID, poi.Latitude, poi.Longitude, *poi)
	return nil
}

// Get returns a point of interest by id, or ErrPOINotFound.
func (s *POIStore) Get(ctx context.Context, id string) (*models.PointOfInterest, error) {
	var poi models.PointOfInterest
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, poiKeyPrefix+id, &poi, ErrPOINotFound)
	})
	if err != nil {
		return nil, err
	}
	return &poi, nil
}

// SearchNearby returns all points of interest within radiusMeters of the
// given coordinates.
func (s *POIStore) SearchNearby(ctx context.Context, lat, lon, radiusMeters float64) ([]models.PointOfInterest, error) {
	entries := s.index.QueryRadius(lat, lon, radiusMeters)
	pois := make([]models.PointOfInterest, 0, len(entries))
	for _, entry := range entries {
		poi, ok := entry.Data.(models.PointOfInterest)
		if !ok {
			continue
		}
		pois = append(pois, poi)
	}
	return pois, nil
}
