// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package main is the entry point for the Campusatlas location gateway.
//
// The gateway accepts authenticated websocket connections from campus map
// clients, ingests privacy-filtered location reports, fans updates out to
// tracking subscribers, and feeds proximity visits into the achievement
// pipeline.
//
// Initialization order:
//
//  1. Configuration (koanf: defaults, config.yaml, CAMPUSATLAS_* env)
//  2. Logging (zerolog)
//  3. Store (BadgerDB) and the point-of-interest spatial index
//  4. Tracking registry, privacy filter, proximity detector
//  5. Achievement publisher (NATS, or a logging noop when disabled)
//  6. Websocket hub, operation dispatcher, HTTP router
//  7. Supervision tree (suture): data, messaging, and api layers
//
// Shutdown is graceful on SIGINT/SIGTERM: the HTTP server drains, the hub
// closes every client, and the store is closed last.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusatlas/campusatlas/internal/achievements"
	"github.com/campusatlas/campusatlas/internal/api"
	"github.com/campusatlas/campusatlas/internal/auth"
	"github.com/campusatlas/campusatlas/internal/config"
	"github.com/campusatlas/campusatlas/internal/gateway"
	"github.com/campusatlas/campusatlas/internal/geo"
	"github.com/campusatlas/campusatlas/internal/location"
	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/proximity"
	"github.com/campusatlas/campusatlas/internal/store"
	"github.com/campusatlas/campusatlas/internal/supervisor"
	"github.com/campusatlas/campusatlas/internal/supervisor/services"
	"github.com/campusatlas/campusatlas/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Environment).
		Str("store_path", cfg.Store.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("starting campusatlas gateway")

	db, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing store")
		}
	}()

	users := store.NewUserStore(db)
	locations := store.NewLocationStore(db)
	friendships := store.NewFriendshipStore(db)
	pois := store.NewPOIStore(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	indexed, err := pois.LoadIndex(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build point-of-interest index")
	}
	logging.Info().Int("points", indexed).Msg("point-of-interest index ready")

	registry := tracking.NewRegistry(friendships, users,
		time.Duration(cfg.Location.MaxTrackSeconds)*time.Second)

	publisher := buildPublisher(cfg)
	detector := proximity.NewDetector(pois, users, publisher,
		cfg.Proximity.SearchRadiusMeters, cfg.Proximity.VisitThresholdMeters)

	hub := gateway.NewHub()

	jitter := geo.NewJitter(rand.NewSource(time.Now().UnixNano()))
	svc := location.NewService(users, locations, friendships, registry, hub, detector, jitter,
		location.Config{
			TTL:                    cfg.Location.TTL,
			DefaultPrecisionMeters: cfg.Location.DefaultPrecisionMeters,
		})

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, 24*time.Hour)
	authenticator := auth.NewAuthenticator(jwtManager, users, cfg.Auth.DevTokenHash)
	if cfg.Auth.DevTokenHash != "" {
		logging.Warn().Msg("dev override credential enabled; never use this outside development")
	}

	ops := gateway.NewOps(svc, registry, hub)
	wsHandler := gateway.NewHandler(ctx, hub, ops, authenticator, cfg.Server.AllowedOrigins)

	apiHandler := api.NewHandler(svc, db, authenticator)
	router := api.NewRouter(apiHandler, wsHandler, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewStoreGCService(db, cfg.Store.GCInterval))
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddMessagingService(services.NewJanitorService(registry, time.Minute))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("services registered, starting supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}

	publisher.Close()
	logging.Info().Msg("gateway stopped")
}

// buildPublisher returns the achievement event publisher: NATS when
// enabled, otherwise a noop that logs and drops events.
func buildPublisher(cfg *config.Config) achievements.Publisher {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("achievement publishing disabled; events will be logged and dropped")
		return achievements.NoopPublisher{}
	}

	publisher, err := achievements.NewNATSPublisher(cfg.NATS)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	logging.Info().Str("url", cfg.NATS.URL).Msg("achievement publisher connected")
	return publisher
}
