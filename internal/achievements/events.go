// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package achievements defines the fire-and-forget event feed into the
// achievement engine. The engine itself is an external collaborator; this
// package only carries events to it. Publish failures are non-fatal by
// contract and must never affect the operation that produced the event.
package achievements

import "time"

// Event types understood by the achievement engine.
const (
	// TypeLocationVisit fires once per newly visited point of interest.
	TypeLocationVisit = "location_visit"

	// Specialized visit events, fired alongside TypeLocationVisit when the
	// point matches a recognized category.
	TypeLibraryVisit    = "library_visit"
	TypeCafeVisit       = "cafe_visit"
	TypeRestaurantVisit = "restaurant_visit"

	// TypeTimeSpent and TypeLocationsExplored are reserved capability
	// hooks: the engine accepts them but no producer fires them yet.
	TypeTimeSpent         = "time_spent"
	TypeLocationsExplored = "locations_explored"
)

// Event is one achievement-engine submission.
type Event struct {
	Type       string            `json:"type"`
	UserID     string            `json:"user_id"`
	Value      int64             `json:"value"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
