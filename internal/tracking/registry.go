// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package tracking implements the process-local registry of location
// tracking subscriptions. Subscriptions are ephemeral: they live in memory,
// carry an expiry, and vanish on process restart. Clients are expected to
// resubscribe after a reconnect.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/models"
)

// ErrNotAuthorized is returned when a tracking precondition fails: no
// accepted friendship edge, shareLocation disabled, or the target's
// sharing mode is off.
var ErrNotAuthorized = errors.New("not authorized to track this user")

// FriendshipSource looks up the friendship edge between two users in
// either direction.
type FriendshipSource interface {
	Edge(ctx context.Context, userID, friendID string) (*models.FriendshipEdge, error)
}

// PrivacySource reads a user's sharing configuration.
type PrivacySource interface {
	PrivacySetting(ctx context.Context, userID string) (models.PrivacySetting, error)
}

type subKey struct {
	tracker string
	target  string
}

// Registry records which users are watching which friends' locations.
// It is an explicit component instance constructed once per process and
// passed by reference, never a package-level singleton.
type Registry struct {
	friends FriendshipSource
	privacy PrivacySource

	maxDuration time.Duration
	now         func() time.Time

	mu   sync.Mutex
	subs map[subKey]time.Time // value = expiry
}

// NewRegistry creates a Registry. maxDuration caps requested subscription
// durations.
func NewRegistry(friends FriendshipSource, privacy PrivacySource, maxDuration time.Duration) *Registry {
	return &Registry{
		friends:     friends,
		privacy:     privacy,
		maxDuration: maxDuration,
		now:         time.Now,
		subs:        make(map[subKey]time.Time),
	}
}

// Track registers a subscription for tracker to receive target's location
// updates for up to durationSeconds (capped). It authorizes against the
// friendship edge (accepted, shareLocation) and the target's sharing mode;
// any failed precondition yields ErrNotAuthorized and no subscription.
func (r *Registry) Track(ctx context.Context, tracker, target string, durationSeconds int) error {
	edge, err := r.friends.Edge(ctx, tracker, target)
	if err != nil {
		return fmt.Errorf("%w: no friendship edge", ErrNotAuthorized)
	}
	if !edge.Accepted() {
		return fmt.Errorf("%w: friendship not accepted", ErrNotAuthorized)
	}
	if !edge.ShareLocation {
		return fmt.Errorf("%w: location sharing disabled on edge", ErrNotAuthorized)
	}

	privacy, err := r.privacy.PrivacySetting(ctx, target)
	if err != nil {
		return fmt.Errorf("%w: target privacy unavailable", ErrNotAuthorized)
	}
	if privacy.NormalizedMode() == models.PrivacyModeOff {
		return fmt.Errorf("%w: target sharing is off", ErrNotAuthorized)
	}

	// Zero or negative means "no explicit duration": grant the full cap
	// rather than an already-expired subscription.
	duration := time.Duration(durationSeconds) * time.Second
	if duration <= 0 || duration > r.maxDuration {
		duration = r.maxDuration
	}
	expiry := r.now().Add(duration)

	r.mu.Lock()
	r.subs[subKey{tracker: tracker, target: target}] = expiry
	r.mu.Unlock()

	logging.Debug().
		Str("tracker", tracker).
		Str("target", target).
		Time("expires_at", expiry).
		Msg("tracking subscription registered")
	return nil
}

// Untrack removes the subscription unconditionally. Absent entries are a
// no-op, not an error.
func (r *Registry) Untrack(tracker, target string) {
	r.mu.Lock()
	delete(r.subs, subKey{tracker: tracker, target: target})
	r.mu.Unlock()
}

// TrackersOf returns the users with an active, non-expired subscription to
// the target. Expired entries encountered on the way are pruned lazily.
func (r *Registry) TrackersOf(target string) []string {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var trackers []string
	for key, expiry := range r.subs {
		if key.target != target {
			continue
		}
		if !expiry.After(now) {
			delete(r.subs, key)
			continue
		}
		trackers = append(trackers, key.tracker)
	}
	return trackers
}

// ReleaseAll drops every subscription owned by the tracker. Called when
// the owning connection terminates so no fan-out target is left dangling.
func (r *Registry) ReleaseAll(tracker string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.subs {
		if key.tracker == tracker {
			delete(r.subs, key)
		}
	}
}

// Sweep removes every expired subscription and returns how many were
// dropped. Lazy pruning in TrackersOf keeps fan-out correct without it;
// the periodic sweep bounds memory for targets nobody reports on.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, expiry := range r.subs {
		if !expiry.After(now) {
			delete(r.subs, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of registered subscriptions, expired or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
