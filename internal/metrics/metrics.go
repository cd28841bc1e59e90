// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package metrics defines the Prometheus instrumentation for the location
// gateway: connection lifecycle, report ingest, fan-out, proximity visits,
// and achievement dispatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocketConnections tracks currently open gateway connections.
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_websocket_connections",
			Help: "Number of currently connected websocket clients",
		},
	)

	// LocationReports counts processed location reports by outcome of the
	// privacy filter.
	LocationReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_location_reports_total",
			Help: "Total location reports processed",
		},
		[]string{"mode", "shared"},
	)

	// LocationUpdatesFanout counts updates pushed to trackers.
	LocationUpdatesFanout = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_location_updates_fanout_total",
			Help: "Total location updates pushed to tracking subscribers",
		},
	)

	// TrackingSubscriptions counts subscription operations by result.
	TrackingSubscriptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_tracking_subscriptions_total",
			Help: "Total track/untrack operations",
		},
		[]string{"operation", "result"},
	)

	// ProximityVisits counts newly registered point visits by category.
	ProximityVisits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proximity_visits_total",
			Help: "Total newly visited points of interest",
		},
		[]string{"category"},
	)

	// ProximityErrors counts suppressed failures in the proximity side path.
	ProximityErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proximity_errors_total",
			Help: "Total suppressed errors during proximity detection",
		},
		[]string{"stage"},
	)

	// AchievementPublishFailures counts failed achievement-event submissions.
	AchievementPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "achievement_publish_failures_total",
			Help: "Total achievement events that failed to publish",
		},
	)

	// HTTPRequestDuration observes API endpoint latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
