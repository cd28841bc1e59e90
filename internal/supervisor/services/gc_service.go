// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package services

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/store"
)

// StoreGCService periodically runs Badger value-log garbage collection.
// Expired location records free their value-log space only when GC runs.
type StoreGCService struct {
	db       *badger.DB
	interval time.Duration
}

// NewStoreGCService creates the GC loop.
func NewStoreGCService(db *badger.DB, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{db: db, interval: interval}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := store.RunGC(s.db); err != nil {
				logging.Warn().Err(err).Msg("store garbage collection failed")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (s *StoreGCService) String() string {
	return "store-gc"
}
