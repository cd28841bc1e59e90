// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package services

import (
	"context"
)

// ContextHub matches the gateway hub's RunWithContext method without
// importing the gateway package.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService supervises the websocket hub. RunWithContext already follows
// the suture.Service contract; this wrapper names it for logging.
type HubService struct {
	hub ContextHub
}

// NewHubService wraps the hub for supervision.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture logging.
func (s *HubService) String() string {
	return "gateway-hub"
}
