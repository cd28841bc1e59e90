// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package proximity matches location reports against nearby points of
// interest and registers visits. It runs as a side path of report ingest:
// every failure here is caught, counted, and logged — never surfaced to
// the reporting user.
package proximity

import (
	"context"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/campusatlas/campusatlas/internal/achievements"
	"github.com/campusatlas/campusatlas/internal/geo"
	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/metrics"
	"github.com/campusatlas/campusatlas/internal/models"
)

// POISearcher finds points of interest within a radius.
type POISearcher interface {
	SearchNearby(ctx context.Context, lat, lon, radiusMeters float64) ([]models.PointOfInterest, error)
}

// VisitRecorder mutates the user aggregate: visited-set append and named
// counter increments.
type VisitRecorder interface {
	MarkVisited(ctx context.Context, userID, poiID string) (bool, error)
	IncrementStat(ctx context.Context, userID, name string, delta int64) error
}

// EventPublisher submits achievement events.
type EventPublisher interface {
	Publish(ctx context.Context, ev achievements.Event) error
}

// Detector inspects every location report for proximity to points of
// interest. Candidates from the coarse radius search are confirmed by
// haversine distance against the tighter visit threshold.
type Detector struct {
	pois   POISearcher
	visits VisitRecorder
	events EventPublisher

	searchRadiusMeters   float64
	visitThresholdMeters float64

	// breaker guards the achievement engine: when submissions keep
	// failing it stops hammering the transport, and events are dropped
	// (the contract is fire-and-forget).
	breaker *gobreaker.CircuitBreaker[any]
}

// NewDetector creates a Detector with the given search radius and visit
// threshold, both in meters.
func NewDetector(pois POISearcher, visits VisitRecorder, events EventPublisher, searchRadius, visitThreshold float64) *Detector {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "achievement-dispatch",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	return &Detector{
		pois:                 pois,
		visits:               visits,
		events:               events,
		searchRadiusMeters:   searchRadius,
		visitThresholdMeters: visitThreshold,
		breaker:              breaker,
	}
}

// visitSpecialization maps a recognized point category to its dedicated
// stat counter and achievement event type.
type visitSpecialization struct {
	stat  string
	event string
}

func specializationFor(poi *models.PointOfInterest) (visitSpecialization, bool) {
	category := strings.ToLower(poi.Category)
	if category == "" {
		category = strings.ToLower(poi.Subtype)
	}
	switch category {
	case "library":
		return visitSpecialization{stat: "libraries_visited", event: achievements.TypeLibraryVisit}, true
	case "cafe", "coffee_shop":
		return visitSpecialization{stat: "cafes_visited", event: achievements.TypeCafeVisit}, true
	case "restaurant":
		return visitSpecialization{stat: "restaurants_visited", event: achievements.TypeRestaurantVisit}, true
	default:
		return visitSpecialization{}, false
	}
}

// Inspect runs proximity detection for one location report. It uses the
// true reported coordinates regardless of the user's sharing mode. All
// failures are suppressed; Inspect never returns an error.
func (d *Detector) Inspect(ctx context.Context, userID string, lat, lon float64) {
	candidates, err := d.pois.SearchNearby(ctx, lat, lon, d.searchRadiusMeters)
	if err != nil {
		metrics.ProximityErrors.WithLabelValues("search").Inc()
		logging.Warn().Err(err).Str("user_id", userID).Msg("poi search failed")
		return
	}

	for i := range candidates {
		poi := &candidates[i]
		if geo.Distance(lat, lon, poi.Latitude, poi.Longitude) > d.visitThresholdMeters {
			continue
		}
		d.registerVisit(ctx, userID, poi)
	}
}

// registerVisit counts a visit once per (user, point) pair and submits the
// corresponding achievement events.
func (d *Detector) registerVisit(ctx context.Context, userID string, poi *models.PointOfInterest) {
	added, err := d.visits.MarkVisited(ctx, userID, poi.ID)
	if err != nil {
		metrics.ProximityErrors.WithLabelValues("visited_set").Inc()
		logging.Warn().Err(err).Str("user_id", userID).Str("poi_id", poi.ID).Msg("visited-set update failed")
		return
	}
	if !added {
		// Already visited: no stat increments, no events.
		return
	}

	if err := d.visits.IncrementStat(ctx, userID, "locations_visited", 1); err != nil {
		metrics.ProximityErrors.WithLabelValues("stats").Inc()
		logging.Warn().Err(err).Str("user_id", userID).Msg("visit counter increment failed")
	}
	metrics.ProximityVisits.WithLabelValues(strings.ToLower(poi.Category)).Inc()

	d.publish(ctx, achievements.Event{
		Type:   achievements.TypeLocationVisit,
		UserID: userID,
		Value:  1,
		Metadata: map[string]string{
			"poi_id":   poi.ID,
			"category": poi.Category,
		},
		OccurredAt: time.Now().UTC(),
	})

	spec, ok := specializationFor(poi)
	if !ok {
		return
	}
	if err := d.visits.IncrementStat(ctx, userID, spec.stat, 1); err != nil {
		metrics.ProximityErrors.WithLabelValues("stats").Inc()
		logging.Warn().Err(err).Str("user_id", userID).Str("stat", spec.stat).Msg("specialized counter increment failed")
	}
	d.publish(ctx, achievements.Event{
		Type:   spec.event,
		UserID: userID,
		Value:  1,
		Metadata: map[string]string{
			"poi_id": poi.ID,
		},
		OccurredAt: time.Now().UTC(),
	})
}

func (d *Detector) publish(ctx context.Context, ev achievements.Event) {
	_, err := d.breaker.Execute(func() (any, error) {
		return nil, d.events.Publish(ctx, ev)
	})
	if err != nil {
		metrics.AchievementPublishFailures.Inc()
		logging.Warn().Err(err).Str("type", ev.Type).Str("user_id", ev.UserID).Msg("achievement event dropped")
	}
}
