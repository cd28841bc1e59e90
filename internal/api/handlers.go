// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package api provides the HTTP surface: the authenticated pull endpoint
// for friend locations, health probes, and Prometheus metrics, routed
// with chi.
package api

import (
	"context"
	"net/http"

	"github.com/dgraph-io/badger/v4"

	"github.com/campusatlas/campusatlas/internal/auth"
	"github.com/campusatlas/campusatlas/internal/models"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserIDFromContext returns the authenticated user id, or "" if the
// request did not pass the auth middleware.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// SnapshotSource aggregates the current locations of a user's sharing
// friends.
type SnapshotSource interface {
	FriendsLocations(ctx context.Context, userID string) ([]models.LocationUpdate, error)
}

// Handler implements the HTTP endpoints.
type Handler struct {
	snapshots     SnapshotSource
	db            *badger.DB
	authenticator *auth.Authenticator
}

// NewHandler creates the endpoint handler.
func NewHandler(snapshots SnapshotSource, db *badger.DB, authenticator *auth.Authenticator) *Handler {
	return &Handler{snapshots: snapshots, db: db, authenticator: authenticator}
}

// Authenticate resolves the bearer credential and stores the user id in
// the request context. Unauthenticated requests get a 401.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.authenticator.Authenticate(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// FriendsLocations returns the privacy-filtered current locations of the
// caller's sharing friends. An empty list is a normal response, never an
// error.
func (h *Handler) FriendsLocations(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	updates, err := h.snapshots.FriendsLocations(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load friend locations", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   updates,
	})
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   map[string]string{"status": "alive"},
	})
}

// HealthReady reports readiness: the store must be open.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	if h.db == nil || h.db.IsClosed() {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "store unavailable", nil)
		return
	}
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   map[string]string{"status": "ready"},
	})
}
