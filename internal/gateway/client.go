// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/campusatlas/campusatlas/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB; inbound ops are small
	sendBufferSize = 256
)

// clientIDCounter assigns monotonically increasing ids so rooms can
// deliver frames in a stable order.
var clientIDCounter atomic.Uint64

// Client is one authenticated websocket connection bound to a user.
type Client struct {
	id     uint64
	userID string
	room   string

	hub  *Hub
	ops  *Ops
	conn *websocket.Conn

	// sendMu guards closed and the send channel's lifecycle. Only
	// closeSend may close the channel; Enqueue must never race it.
	sendMu sync.Mutex
	closed bool
	send   chan Frame

	// ctx outlives the upgrade request; it carries the connection's
	// correlation id and is canceled with the hub.
	ctx context.Context
}

// NewClient binds a websocket connection to an authenticated user.
func NewClient(ctx context.Context, hub *Hub, ops *Ops, conn *websocket.Conn, userID string) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		userID: userID,
		room:   PersonalRoom(userID),
		hub:    hub,
		ops:    ops,
		conn:   conn,
		send:   make(chan Frame, sendBufferSize),
		ctx:    ctx,
	}
}

// UserID returns the authenticated user this connection belongs to.
func (c *Client) UserID() string {
	return c.userID
}

// Enqueue queues a frame for delivery to this client. Frames are dropped
// when the buffer is full or the client has already been closed; the read
// pump may still be dispatching an inbound message when the hub shuts the
// connection down.
func (c *Client) Enqueue(frame Frame) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		logging.Debug().
			Str("user_id", c.userID).
			Str("frame_type", frame.Type).
			Msg("client closed, dropping frame")
		return
	}

	select {
	case c.send <- frame:
	default:
		logging.Warn().
			Str("user_id", c.userID).
			Str("frame_type", frame.Type).
			Msg("send buffer full, dropping frame")
	}
}

// closeSend closes the send channel exactly once. Called by the hub when
// the client leaves a room or the hub shuts down.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump consumes inbound envelopes and dispatches them to the ops
// handler. On exit it releases the user's tracking subscriptions and
// unregisters from the hub.
func (c *Client) readPump() {
	defer func() {
		c.ops.Disconnect(c.userID)
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("user_id", c.userID).Msg("unexpected websocket close")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.Enqueue(errorFrame("", CodeValidationError, "malformed message envelope"))
			continue
		}

		c.Enqueue(c.ops.Handle(c.ctx, c.userID, env))
	}
}

// writePump serializes queued frames onto the connection and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				logging.Error().Err(err).Str("user_id", c.userID).Msg("failed to write frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
