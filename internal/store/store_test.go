// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/campusatlas/campusatlas/internal/config"
	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := Open(config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLocationStoreUpsertReplaces(t *testing.T) {
	db := openTestDB(t)
	s := NewLocationStore(db)
	ctx := context.Background()
	now := time.Now()

	first := &models.LocationRecord{
		UserID: "u1", Latitude: 49.1, Longitude: -123.1, AccuracyMeters: 10,
		Shared: true, CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	}
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &models.LocationRecord{
		UserID: "u1", Latitude: 49.2, Longitude: -123.2, AccuracyMeters: 5,
		Shared: true, CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	}
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Latitude != 49.2 || got.Longitude != -123.2 {
		t.Errorf("got (%f, %f), want replacement (49.2, -123.2)", got.Latitude, got.Longitude)
	}
}

func TestLocationStoreExpiredNotServed(t *testing.T) {
	db := openTestDB(t)
	s := NewLocationStore(db)
	ctx := context.Background()
	now := time.Now()

	rec := &models.LocationRecord{
		UserID: "u1", Latitude: 49.1, Longitude: -123.1,
		Shared: true, CreatedAt: now, ExpiresAt: now.Add(30 * time.Millisecond),
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, err := s.Get(ctx, "u1"); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("expired record served, err = %v", err)
	}
}

func TestLocationStoreMissing(t *testing.T) {
	db := openTestDB(t)
	s := NewLocationStore(db)

	if _, err := s.Get(context.Background(), "nobody"); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("err = %v, want ErrLocationNotFound", err)
	}
}

func TestUserStoreMarkVisited(t *testing.T) {
	db := openTestDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	if err := s.Put(ctx, &models.User{ID: "u1"}); err != nil {
		t.Fatalf("put user: %v", err)
	}

	added, err := s.MarkVisited(ctx, "u1", "poi-library")
	if err != nil {
		t.Fatalf("mark visited: %v", err)
	}
	if !added {
		t.Error("first visit not reported as added")
	}

	added, err = s.MarkVisited(ctx, "u1", "poi-library")
	if err != nil {
		t.Fatalf("second mark visited: %v", err)
	}
	if added {
		t.Error("revisit reported as newly added")
	}

	user, err := s.User(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if len(user.Visited) != 1 {
		t.Errorf("visited set has %d entries, want 1", len(user.Visited))
	}
}

func TestUserStoreIncrementStat(t *testing.T) {
	db := openTestDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	if err := s.Put(ctx, &models.User{ID: "u1"}); err != nil {
		t.Fatalf("put user: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.IncrementStat(ctx, "u1", "locations_visited", 1); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	user, err := s.User(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Stats["locations_visited"] != 3 {
		t.Errorf("counter = %d, want 3", user.Stats["locations_visited"])
	}
}

func TestUserStoreNotFound(t *testing.T) {
	db := openTestDB(t)
	s := NewUserStore(db)

	if _, err := s.User(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
	if _, err := s.MarkVisited(context.Background(), "ghost", "p1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("MarkVisited err = %v, want ErrUserNotFound", err)
	}
}

func TestFriendshipStoreBothDirections(t *testing.T) {
	db := openTestDB(t)
	s := NewFriendshipStore(db)
	ctx := context.Background()

	edge := &models.FriendshipEdge{
		UserID: "alice", FriendID: "bob",
		Status: models.FriendshipAccepted, ShareLocation: true,
	}
	if err := s.Put(ctx, edge); err != nil {
		t.Fatalf("put edge: %v", err)
	}

	if _, err := s.Edge(ctx, "alice", "bob"); err != nil {
		t.Errorf("forward lookup: %v", err)
	}
	if _, err := s.Edge(ctx, "bob", "alice"); err != nil {
		t.Errorf("reverse lookup: %v", err)
	}
	if _, err := s.Edge(ctx, "alice", "carol"); !errors.Is(err, ErrEdgeNotFound) {
		t.Errorf("unrelated pair err = %v, want ErrEdgeNotFound", err)
	}
}

func TestFriendshipStoreAcceptedSharing(t *testing.T) {
	db := openTestDB(t)
	s := NewFriendshipStore(db)
	ctx := context.Background()

	edges := []*models.FriendshipEdge{
		{UserID: "alice", FriendID: "bob", Status: models.FriendshipAccepted, ShareLocation: true},
		{UserID: "carol", FriendID: "alice", Status: models.FriendshipAccepted, ShareLocation: true},
		{UserID: "alice", FriendID: "dan", Status: models.FriendshipPending, ShareLocation: true},
		{UserID: "alice", FriendID: "erin", Status: models.FriendshipAccepted, ShareLocation: false},
	}
	for _, e := range edges {
		if err := s.Put(ctx, e); err != nil {
			t.Fatalf("put edge: %v", err)
		}
	}

	got, err := s.AcceptedSharing(ctx, "alice")
	if err != nil {
		t.Fatalf("accepted sharing: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d edges, want 2 (bob and carol)", len(got))
	}
	for _, e := range got {
		if e.UserID != "alice" {
			t.Errorf("edge not oriented to alice: %+v", e)
		}
		if e.FriendID != "bob" && e.FriendID != "carol" {
			t.Errorf("unexpected friend %s", e.FriendID)
		}
	}
}

func TestPOIStoreSearchNearby(t *testing.T) {
	db := openTestDB(t)
	s := NewPOIStore(db)
	ctx := context.Background()

	pois := []*models.PointOfInterest{
		{ID: "lib", Name: "Main Library", Latitude: 49.2827, Longitude: -123.1207, Category: "library"},
		{ID: "cafe", Name: "North Cafe", Latitude: 49.2830, Longitude: -123.1210, Category: "cafe"},
		{ID: "gym", Name: "Far Gym", Latitude: 49.3000, Longitude: -123.1000, Category: "gym"},
	}
	for _, p := range pois {
		if err := s.Put(ctx, p); err != nil {
			t.Fatalf("put poi: %v", err)
		}
	}

	near, err := s.SearchNearby(ctx, 49.2827, -123.1207, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(near) != 2 {
		t.Errorf("found %d pois within 100m, want 2", len(near))
	}
}

func TestPOIStoreLoadIndex(t *testing.T) {
	db := openTestDB(t)
	s := NewPOIStore(db)
	ctx := context.Background()

	if err := s.Put(ctx, &models.PointOfInterest{ID: "lib", Latitude: 49.28, Longitude: -123.12, Category: "library"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	// A fresh store over the same database starts with an empty index
	// until LoadIndex rebuilds it.
	reopened := NewPOIStore(db)
	if got, _ := reopened.SearchNearby(ctx, 49.28, -123.12, 100); len(got) != 0 {
		t.Fatalf("index unexpectedly populated before load")
	}

	n, err := reopened.LoadIndex(ctx)
	if err != nil {
		t.Fatalf("load index: %v", err)
	}
	if n != 1 {
		t.Errorf("loaded %d pois, want 1", n)
	}
	if got, _ := reopened.SearchNearby(ctx, 49.28, -123.12, 100); len(got) != 1 {
		t.Errorf("search after load found %d, want 1", len(got))
	}
}
