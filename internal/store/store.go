// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package store implements the document store on BadgerDB: location
// records, user profiles (visited sets and counters), friendship edges,
// and the point-of-interest catalog. Keys are namespaced by prefix; values
// are JSON.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/campusatlas/campusatlas/internal/config"
	"github.com/campusatlas/campusatlas/internal/logging"
)

// Key prefixes for BadgerDB storage.
const (
	locationKeyPrefix = "loc:"
	userKeyPrefix     = "user:"
	edgeKeyPrefix     = "edge:"
	poiKeyPrefix      = "poi:"
)

// Sentinel errors surfaced by the stores.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrLocationNotFound = errors.New("location not found")
	ErrEdgeNotFound     = errors.New("friendship edge not found")
	ErrPOINotFound      = errors.New("point of interest not found")
)

// Open opens the BadgerDB instance described by the config.
func Open(cfg config.StoreConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(badgerLogger{})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Path, err)
	}
	return db, nil
}

// RunGC runs one value-log garbage collection pass. Badger returns
// ErrNoRewrite when there was nothing to collect; that is not a failure.
func RunGC(db *badger.DB) error {
	err := db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("badger gc: %w", err)
	}
	return nil
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logging.Error().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...any) {
	logging.Warn().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Infof(format string, args ...any) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Debugf(format string, args ...any) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}
