// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package services

import (
	"context"
	"time"

	"github.com/campusatlas/campusatlas/internal/logging"
)

// Sweeper removes expired tracking subscriptions and reports how many
// were dropped.
type Sweeper interface {
	Sweep() int
}

// JanitorService periodically sweeps the tracking registry. Lazy pruning
// during fan-out keeps delivery correct on its own; the sweep bounds
// memory for targets nobody reports on.
type JanitorService struct {
	registry Sweeper
	interval time.Duration
}

// NewJanitorService creates the sweep loop.
func NewJanitorService(registry Sweeper, interval time.Duration) *JanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JanitorService{registry: registry, interval: interval}
}

// Serve implements suture.Service.
func (s *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := s.registry.Sweep(); removed > 0 {
				logging.Debug().Int("removed", removed).Msg("swept expired tracking subscriptions")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (s *JanitorService) String() string {
	return "registry-janitor"
}
