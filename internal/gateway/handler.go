// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campusatlas/campusatlas/internal/auth"
	"github.com/campusatlas/campusatlas/internal/logging"
)

// Handler upgrades authenticated HTTP requests to websocket connections
// and binds them into the hub.
type Handler struct {
	hub            *Hub
	ops            *Ops
	authenticator  *auth.Authenticator
	allowedOrigins []string

	// baseCtx is the lifetime of the gateway, not of the upgrade request.
	// The request context dies when the HTTP handler returns, so client
	// pumps must not inherit it.
	baseCtx context.Context
}

// NewHandler creates the websocket endpoint handler.
func NewHandler(baseCtx context.Context, hub *Hub, ops *Ops, authenticator *auth.Authenticator, allowedOrigins []string) *Handler {
	return &Handler{
		hub:            hub,
		ops:            ops,
		authenticator:  authenticator,
		allowedOrigins: allowedOrigins,
		baseCtx:        baseCtx,
	}
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkOrigin validates browser handshake origins against the configured
// allow list. Requests without an Origin header come from non-browser
// clients (the mobile app) and are allowed; authentication still applies.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("websocket handshake rejected: origin not allowed")
	return false
}

// ServeHTTP authenticates the handshake, upgrades the connection, joins
// the client to its personal room, and starts the pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticator.Authenticate(r)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrNoCredentials) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="campusatlas"`)
		}
		logging.Debug().Err(err).Msg("websocket handshake authentication failed")
		http.Error(w, CodeAuthenticationError, status)
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	ctx := logging.ContextWithRequestID(h.baseCtx, logging.GenerateRequestID())
	client := NewClient(ctx, h.hub, h.ops, conn, userID)
	h.hub.Register <- client
	client.Start()
}
