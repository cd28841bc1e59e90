// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package achievements

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/campusatlas/campusatlas/internal/config"
	"github.com/campusatlas/campusatlas/internal/logging"
)

// Publisher is the achievement event sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	// Close releases the underlying transport. Safe to call once at
	// shutdown.
	Close()
}

// NATSPublisher submits achievement events over NATS. Delivery is
// fire-and-forget: Publish returns once the message is handed to the
// client; there is no acknowledgement.
type NATSPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("campusatlas-achievements"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	return &NATSPublisher{conn: conn, subjectPrefix: cfg.SubjectPrefix}, nil
}

// Publish sends one event on <prefix>.<type>.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal achievement event: %w", err)
	}
	subject := p.subjectPrefix + "." + ev.Type
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		logging.Warn().Err(err).Msg("nats drain failed")
	}
}

// NoopPublisher drops events, logging them at debug level. Used when NATS
// is disabled.
type NoopPublisher struct{}

// Publish logs and discards the event.
func (NoopPublisher) Publish(_ context.Context, ev Event) error {
	logging.Debug().
		Str("type", ev.Type).
		Str("user_id", ev.UserID).
		Msg("achievement event dropped (publisher disabled)")
	return nil
}

// Close is a no-op.
func (NoopPublisher) Close() {}
