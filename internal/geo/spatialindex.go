// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package geo

import (
	"math"
	"sync"
)

// SpatialIndex divides geographic space into grid cells for fast radius
// queries over points of interest. Instead of O(n) comparisons per query it
// only inspects cells overlapping the search radius, reducing to O(k) where
// k = entries in nearby cells.
//
// Time complexity: Insert O(1), Remove O(1), QueryRadius O(k).
type SpatialIndex struct {
	mu       sync.RWMutex
	cells    map[cellKey][]*IndexEntry
	entries  map[string]*IndexEntry
	cellSize float64 // cell edge in degrees
}

type cellKey struct {
	x, y int
}

// IndexEntry is a point stored in the index.
type IndexEntry struct {
	ID   string
	Lat  float64
	Lon  float64
	Data any
	cell cellKey
}

// NewSpatialIndex creates an index with the given cell size in meters.
// Cell size should be on the order of the largest expected query radius;
// campus-scale proximity queries work well with 250m cells.
func NewSpatialIndex(cellSizeMeters float64) *SpatialIndex {
	if cellSizeMeters <= 0 {
		cellSizeMeters = 250
	}
	return &SpatialIndex{
		cells:    make(map[cellKey][]*IndexEntry),
		entries:  make(map[string]*IndexEntry),
		cellSize: MetersToDegreesLat(cellSizeMeters),
	}
}

func (s *SpatialIndex) keyFor(lat, lon float64) cellKey {
	// Normalize longitude to [-180, 180]
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return cellKey{
		x: int(math.Floor(lon / s.cellSize)),
		y: int(math.Floor(lat / s.cellSize)),
	}
}

// Insert adds or replaces an entry.
func (s *SpatialIndex) Insert(id string, lat, lon float64, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[id]; ok {
		s.removeFromCellLocked(existing)
	}

	key := s.keyFor(lat, lon)
	entry := &IndexEntry{ID: id, Lat: lat, Lon: lon, Data: data, cell: key}
	s.cells[key] = append(s.cells[key], entry)
	s.entries[id] = entry
}

// Remove deletes an entry by id. Returns false if the id is unknown.
func (s *SpatialIndex) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	s.removeFromCellLocked(entry)
	delete(s.entries, id)
	return true
}

func (s *SpatialIndex) removeFromCellLocked(entry *IndexEntry) {
	bucket := s.cells[entry.cell]
	for i, e := range bucket {
		if e.ID == entry.ID {
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			break
		}
	}
	if len(bucket) == 0 {
		delete(s.cells, entry.cell)
	} else {
		s.cells[entry.cell] = bucket
	}
}

// QueryRadius returns all entries within radiusMeters of the given point,
// verified by true haversine distance.
func (s *SpatialIndex) QueryRadius(lat, lon, radiusMeters float64) []*IndexEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reach := int(math.Ceil(MetersToDegreesLat(radiusMeters)/s.cellSize)) + 1
	center := s.keyFor(lat, lon)

	var results []*IndexEntry
	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			bucket, ok := s.cells[cellKey{x: center.x + dx, y: center.y + dy}]
			if !ok {
				continue
			}
			for _, entry := range bucket {
				if Distance(lat, lon, entry.Lat, entry.Lon) <= radiusMeters {
					entryCopy := *entry
					results = append(results, &entryCopy)
				}
			}
		}
	}
	return results
}

// Size returns the number of indexed entries.
func (s *SpatialIndex) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
