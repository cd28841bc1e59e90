// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusatlas/campusatlas/internal/config"
	"github.com/campusatlas/campusatlas/internal/middleware"
)

// Router assembles the HTTP routes.
type Router struct {
	handler *Handler
	ws      http.Handler
	cfg     *config.Config
}

// NewRouter creates the router. ws is the websocket upgrade handler; it is
// mounted outside the instrumented middleware chain because response
// wrappers break connection hijacking.
func NewRouter(handler *Handler, ws http.Handler, cfg *config.Config) *Router {
	return &Router{handler: handler, ws: ws, cfg: cfg}
}

// Setup builds the chi routing tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Websocket handshake: authenticated in the handler itself, kept clear
	// of response-wrapping middleware.
	r.Handle("/ws", rt.ws)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", rt.handler.HealthLive)
		r.Get("/ready", rt.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.Server.RateLimitPerMinute, time.Minute))
		r.Use(chimiddleware.Compress(5, "application/json"))
		r.Use(middleware.PrometheusMetrics)
		r.Use(rt.handler.Authenticate)

		r.Get("/friends/locations", rt.handler.FriendsLocations)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
