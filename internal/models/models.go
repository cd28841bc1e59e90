// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package models defines the shared data types for the location gateway:
// location records, users, friendship edges, points of interest, and the
// wire payloads exchanged with connected clients.
package models

import "time"

// LocationRecord is a user's single current location. Exactly one record
// exists per user; every report fully replaces the previous one. A record
// must never be served past ExpiresAt even if not yet purged from storage.
type LocationRecord struct {
	UserID         string    `json:"user_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	Shared         bool      `json:"shared"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its TTL at the given time.
func (r *LocationRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// User is the profile slice the gateway needs: identity, privacy setting,
// the set of visited point ids, and named counters fed by proximity visits.
type User struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"display_name,omitempty"`
	Privacy     PrivacySetting   `json:"privacy"`
	Visited     []string         `json:"visited,omitempty"`
	Stats       map[string]int64 `json:"stats,omitempty"`
}

// HasVisited reports whether the user has already visited the given point.
func (u *User) HasVisited(poiID string) bool {
	for _, id := range u.Visited {
		if id == poiID {
			return true
		}
	}
	return false
}

// FriendshipStatus is the state of a friendship request.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// FriendshipEdge is a directional friendship pair. It is the sole
// authorization source for location tracking: tracking requires an accepted
// edge (in either direction) with ShareLocation set.
type FriendshipEdge struct {
	UserID        string           `json:"user_id"`
	FriendID      string           `json:"friend_id"`
	Status        FriendshipStatus `json:"status"`
	ShareLocation bool             `json:"share_location"`
}

// Accepted reports whether the edge represents an accepted friendship.
func (e *FriendshipEdge) Accepted() bool {
	return e.Status == FriendshipAccepted
}

// PointOfInterest is a campus map pin that proximity detection matches
// reports against.
type PointOfInterest struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Category  string  `json:"category"`
	Subtype   string  `json:"subtype,omitempty"`
	Featured  bool    `json:"featured,omitempty"`
}

// ReportResult is returned to the reporting client. Shared is false only
// when the user's sharing mode is off.
type ReportResult struct {
	Shared    bool      `json:"shared"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LocationUpdate is the privacy-filtered payload pushed to trackers and
// returned by the friends-locations snapshot query.
type LocationUpdate struct {
	FriendID       string    `json:"friend_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	Timestamp      time.Time `json:"timestamp"`
}

// APIResponse is the standard HTTP response envelope.
type APIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *APIError `json:"error,omitempty"`
}

// APIError carries a machine-readable error code and a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
