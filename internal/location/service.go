// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package location implements location-report ingest with privacy
// filtering, broadcast fan-out to tracking subscribers, and the on-demand
// friends-locations snapshot.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusatlas/campusatlas/internal/geo"
	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/metrics"
	"github.com/campusatlas/campusatlas/internal/models"
	"github.com/campusatlas/campusatlas/internal/store"
)

// UserSource resolves users and their privacy settings.
type UserSource interface {
	User(ctx context.Context, id string) (*models.User, error)
}

// LocationStore is the system of record for current locations.
type LocationStore interface {
	Upsert(ctx context.Context, rec *models.LocationRecord) error
	Get(ctx context.Context, userID string) (*models.LocationRecord, error)
}

// FriendshipLister returns a user's accepted, location-sharing edges.
type FriendshipLister interface {
	AcceptedSharing(ctx context.Context, userID string) ([]models.FriendshipEdge, error)
}

// SubscriberSource lists the users currently tracking a target.
type SubscriberSource interface {
	TrackersOf(target string) []string
}

// Broadcaster pushes a location update to a user's personal room.
// Delivery is fire-and-forget, at most once per report.
type Broadcaster interface {
	SendLocationUpdate(targetUserID string, update models.LocationUpdate)
}

// Detector runs proximity detection for a report. Implementations catch
// their own failures; Inspect never propagates errors.
type Detector interface {
	Inspect(ctx context.Context, userID string, lat, lon float64)
}

// Config holds the service's tunables.
type Config struct {
	// TTL is the location-record lifetime.
	TTL time.Duration
	// DefaultPrecisionMeters applies to approximate-mode users without a
	// configured precision.
	DefaultPrecisionMeters float64
}

// Service wires ingest, privacy filtering, proximity detection, and
// fan-out together.
type Service struct {
	users       UserSource
	locations   LocationStore
	friends     FriendshipLister
	subscribers SubscriberSource
	broadcaster Broadcaster
	detector    Detector
	jitter      *geo.Jitter

	cfg Config
	now func() time.Time
}

// NewService creates the location service.
func NewService(
	users UserSource,
	locations LocationStore,
	friends FriendshipLister,
	subscribers SubscriberSource,
	broadcaster Broadcaster,
	detector Detector,
	jitter *geo.Jitter,
	cfg Config,
) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &Service{
		users:       users,
		locations:   locations,
		friends:     friends,
		subscribers: subscribers,
		broadcaster: broadcaster,
		detector:    detector,
		jitter:      jitter,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Report ingests one location report: applies the user's sharing mode,
// fully replaces the current location record, runs proximity detection on
// the true coordinates, and fans the filtered update out to active
// trackers. The proximity side path can never fail the report.
func (s *Service) Report(ctx context.Context, userID string, lat, lon, accuracyMeters float64) (models.ReportResult, error) {
	user, err := s.users.User(ctx, userID)
	if err != nil {
		return models.ReportResult{}, fmt.Errorf("resolve reporting user: %w", err)
	}

	mode := user.Privacy.NormalizedMode()
	now := s.now()
	rec := &models.LocationRecord{
		UserID:         userID,
		Latitude:       lat,
		Longitude:      lon,
		AccuracyMeters: accuracyMeters,
		Shared:         mode != models.PrivacyModeOff,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.TTL),
	}

	if mode == models.PrivacyModeApproximate {
		precision := s.precisionFor(user)
		rec.Latitude, rec.Longitude = s.jitter.Offset(lat, lon, precision)
		rec.AccuracyMeters = max(accuracyMeters, precision)
	}

	if err := s.locations.Upsert(ctx, rec); err != nil {
		return models.ReportResult{}, fmt.Errorf("upsert location: %w", err)
	}

	metrics.LocationReports.WithLabelValues(string(mode), fmt.Sprintf("%t", rec.Shared)).Inc()

	// Proximity detection always sees the true coordinates, even when
	// sharing is off or the persisted record is obfuscated.
	s.detector.Inspect(ctx, userID, lat, lon)

	if rec.Shared {
		s.fanOut(userID, rec)
	}

	return models.ReportResult{Shared: rec.Shared, ExpiresAt: rec.ExpiresAt}, nil
}

// fanOut pushes the filtered update to every active tracker of the user.
func (s *Service) fanOut(userID string, rec *models.LocationRecord) {
	update := updateFromRecord(rec)
	for _, tracker := range s.subscribers.TrackersOf(userID) {
		s.broadcaster.SendLocationUpdate(tracker, update)
		metrics.LocationUpdatesFanout.Inc()
	}
}

// CurrentUpdate returns the friend's current location as a push payload,
// re-applying the approximate-mode transform with fresh randomness. It
// returns (nil, nil) when the friend's sharing mode is off or no current
// record exists.
func (s *Service) CurrentUpdate(ctx context.Context, friendID string) (*models.LocationUpdate, error) {
	friend, err := s.users.User(ctx, friendID)
	if err != nil {
		return nil, fmt.Errorf("resolve friend: %w", err)
	}

	mode := friend.Privacy.NormalizedMode()
	if mode == models.PrivacyModeOff {
		return nil, nil
	}

	rec, err := s.locations.Get(ctx, friendID)
	if errors.Is(err, store.ErrLocationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load friend location: %w", err)
	}
	if !rec.Shared {
		return nil, nil
	}

	update := updateFromRecord(rec)
	if mode == models.PrivacyModeApproximate {
		precision := s.precisionFor(friend)
		update.Latitude, update.Longitude = s.jitter.Offset(rec.Latitude, rec.Longitude, precision)
		update.AccuracyMeters = max(rec.AccuracyMeters, precision)
	}
	return &update, nil
}

// FriendsLocations aggregates the current locations of every friend with
// an accepted, shareLocation edge. Friends whose sharing is off or whose
// record is missing or expired are skipped; per-friend lookup failures are
// logged and skipped so one bad profile never empties the snapshot.
func (s *Service) FriendsLocations(ctx context.Context, userID string) ([]models.LocationUpdate, error) {
	edges, err := s.friends.AcceptedSharing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sharing friends: %w", err)
	}

	updates := make([]models.LocationUpdate, 0, len(edges))
	for _, edge := range edges {
		update, err := s.CurrentUpdate(ctx, edge.FriendID)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("friend_id", edge.FriendID).Msg("skipping friend in snapshot")
			continue
		}
		if update == nil {
			continue
		}
		updates = append(updates, *update)
	}
	return updates, nil
}

func (s *Service) precisionFor(user *models.User) float64 {
	if user.Privacy.PrecisionMeters > 0 {
		return user.Privacy.PrecisionMeters
	}
	return s.cfg.DefaultPrecisionMeters
}

func updateFromRecord(rec *models.LocationRecord) models.LocationUpdate {
	return models.LocationUpdate{
		FriendID:       rec.UserID,
		Latitude:       rec.Latitude,
		Longitude:      rec.Longitude,
		AccuracyMeters: rec.AccuracyMeters,
		Timestamp:      rec.CreatedAt,
	}
}
