// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package proximity

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/campusatlas/campusatlas/internal/achievements"
	"github.com/campusatlas/campusatlas/internal/geo"
	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type fakePOIs struct {
	pois []models.PointOfInterest
	err  error
}

func (f *fakePOIs) SearchNearby(_ context.Context, lat, lon, radius float64) ([]models.PointOfInterest, error) {
	if f.err != nil {
		return nil, f.err
	}
	var within []models.PointOfInterest
	for _, p := range f.pois {
		if geo.Distance(lat, lon, p.Latitude, p.Longitude) <= radius {
			within = append(within, p)
		}
	}
	return within, nil
}

type fakeVisits struct {
	mu      sync.Mutex
	visited map[string]map[string]bool
	stats   map[string]map[string]int64
	markErr error
}

func newFakeVisits() *fakeVisits {
	return &fakeVisits{
		visited: make(map[string]map[string]bool),
		stats:   make(map[string]map[string]int64),
	}
}

func (f *fakeVisits) MarkVisited(_ context.Context, userID, poiID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return false, f.markErr
	}
	if f.visited[userID] == nil {
		f.visited[userID] = make(map[string]bool)
	}
	if f.visited[userID][poiID] {
		return false, nil
	}
	f.visited[userID][poiID] = true
	return true, nil
}

func (f *fakeVisits) IncrementStat(_ context.Context, userID, name string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stats[userID] == nil {
		f.stats[userID] = make(map[string]int64)
	}
	f.stats[userID][name] += delta
	return nil
}

func (f *fakeVisits) stat(userID, name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats[userID][name]
}

type fakeEvents struct {
	mu     sync.Mutex
	events []achievements.Event
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, ev achievements.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) byType(t string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

const (
	baseLat = 49.2827
	baseLon = -123.1207
)

func setupDetector(pois *fakePOIs) (*Detector, *fakeVisits, *fakeEvents) {
	visits := newFakeVisits()
	events := &fakeEvents{}
	return NewDetector(pois, visits, events, 100, 50), visits, events
}

func TestInspectCountsVisitWithinThreshold(t *testing.T) {
	pois := &fakePOIs{pois: []models.PointOfInterest{
		{ID: "lib", Latitude: baseLat, Longitude: baseLon, Category: "library"},
	}}
	d, visits, events := setupDetector(pois)

	d.Inspect(context.Background(), "u1", baseLat, baseLon)

	if visits.stat("u1", "locations_visited") != 1 {
		t.Errorf("locations_visited = %d, want 1", visits.stat("u1", "locations_visited"))
	}
	if visits.stat("u1", "libraries_visited") != 1 {
		t.Errorf("libraries_visited = %d, want 1", visits.stat("u1", "libraries_visited"))
	}
	if events.byType(achievements.TypeLocationVisit) != 1 {
		t.Errorf("generic visit events = %d, want 1", events.byType(achievements.TypeLocationVisit))
	}
	if events.byType(achievements.TypeLibraryVisit) != 1 {
		t.Errorf("library visit events = %d, want 1", events.byType(achievements.TypeLibraryVisit))
	}
}

func TestInspectSkipsBeyondVisitThreshold(t *testing.T) {
	// Inside the 100m coarse search radius but beyond the 50m threshold.
	pois := &fakePOIs{pois: []models.PointOfInterest{
		{ID: "lib", Latitude: baseLat + geo.MetersToDegreesLat(80), Longitude: baseLon, Category: "library"},
	}}
	d, visits, events := setupDetector(pois)

	d.Inspect(context.Background(), "u1", baseLat, baseLon)

	if visits.stat("u1", "locations_visited") != 0 {
		t.Error("point beyond visit threshold was counted")
	}
	if len(events.events) != 0 {
		t.Error("events fired for point beyond visit threshold")
	}
}

func TestInspectRevisitDoesNotRecount(t *testing.T) {
	pois := &fakePOIs{pois: []models.PointOfInterest{
		{ID: "cafe", Latitude: baseLat, Longitude: baseLon, Category: "cafe"},
	}}
	d, visits, events := setupDetector(pois)

	d.Inspect(context.Background(), "u1", baseLat, baseLon)
	d.Inspect(context.Background(), "u1", baseLat, baseLon)

	if got := visits.stat("u1", "locations_visited"); got != 1 {
		t.Errorf("locations_visited = %d after revisit, want 1", got)
	}
	if got := visits.stat("u1", "cafes_visited"); got != 1 {
		t.Errorf("cafes_visited = %d after revisit, want 1", got)
	}
	if got := events.byType(achievements.TypeCafeVisit); got != 1 {
		t.Errorf("cafe events = %d after revisit, want 1", got)
	}
}

func TestInspectUnrecognizedCategory(t *testing.T) {
	pois := &fakePOIs{pois: []models.PointOfInterest{
		{ID: "statue", Latitude: baseLat, Longitude: baseLon, Category: "monument"},
	}}
	d, visits, events := setupDetector(pois)

	d.Inspect(context.Background(), "u1", baseLat, baseLon)

	if visits.stat("u1", "locations_visited") != 1 {
		t.Error("generic visit not counted for unrecognized category")
	}
	if len(events.events) != 1 {
		t.Errorf("events = %d, want only the generic visit event", len(events.events))
	}
}

func TestInspectSearchFailureSuppressed(t *testing.T) {
	pois := &fakePOIs{err: errors.New("index offline")}
	d, _, _ := setupDetector(pois)

	// Must not panic or propagate.
	d.Inspect(context.Background(), "u1", baseLat, baseLon)
}

func TestInspectPublishFailureSuppressed(t *testing.T) {
	pois := &fakePOIs{pois: []models.PointOfInterest{
		{ID: "lib", Latitude: baseLat, Longitude: baseLon, Category: "library"},
	}}
	visits := newFakeVisits()
	events := &fakeEvents{err: errors.New("broker down")}
	d := NewDetector(pois, visits, events, 100, 50)

	d.Inspect(context.Background(), "u1", baseLat, baseLon)

	// Visit bookkeeping still happened despite publish failure.
	if visits.stat("u1", "locations_visited") != 1 {
		t.Error("visit not counted when event publish failed")
	}
}

func TestSpecializationSubtypeFallback(t *testing.T) {
	poi := &models.PointOfInterest{ID: "x", Category: "", Subtype: "library"}
	spec, ok := specializationFor(poi)
	if !ok || spec.stat != "libraries_visited" {
		t.Errorf("subtype fallback failed: %+v ok=%v", spec, ok)
	}
}
