// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package gateway implements the websocket connection manager: handshake
// authentication, per-user personal rooms, the inbound operation protocol,
// and push delivery of location updates to tracking subscribers.
package gateway

import (
	"context"
	"sort"
	"sync"

	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/metrics"
	"github.com/campusatlas/campusatlas/internal/models"
)

// PersonalRoom returns the room a user's connections auto-join. All pushes
// addressed to a user go to this room.
func PersonalRoom(userID string) string {
	return "user:" + userID
}

// Hub maintains the set of active clients grouped into rooms and delivers
// frames to them. Delivery into a client's send buffer is at-most-once: a
// full buffer drops the frame rather than blocking the sender.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]struct{}),
	}
}

// RunWithContext processes client lifecycle events until the context is
// canceled, then closes every client. Designed to run under suture
// supervision; returns ctx.Err() on shutdown.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	room := h.rooms[client.room]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[client.room] = room
	}
	room[client] = struct{}{}
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	logging.Info().
		Str("user_id", client.userID).
		Str("room", client.room).
		Msg("websocket client connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.room]
	if ok {
		if _, member := room[client]; member {
			delete(room, client)
			client.closeSend()
			metrics.WebSocketConnections.Dec()
		}
		if len(room) == 0 {
			delete(h.rooms, client.room)
		}
	}
	h.mu.Unlock()

	if ok {
		logging.Info().
			Str("user_id", client.userID).
			Msg("websocket client disconnected")
	}
}

// SendToRoom delivers a frame to every client in the room. Slow consumers
// whose send buffer is full miss the frame; pushes are fire-and-forget.
func (h *Hub) SendToRoom(room string, frame Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		members = append(members, client)
	}
	// Stable delivery order keeps multi-connection behavior reproducible.
	sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })

	for _, client := range members {
		select {
		case client.send <- frame:
		default:
			logging.Warn().
				Str("room", room).
				Str("frame_type", frame.Type).
				Msg("send buffer full, dropping frame")
		}
	}
}

// SendLocationUpdate pushes a location update to the target user's personal
// room. Implements the location service's Broadcaster interface.
func (h *Hub) SendLocationUpdate(targetUserID string, update models.LocationUpdate) {
	h.SendToRoom(PersonalRoom(targetUserID), Frame{Type: FrameLocationUpdate, Data: update})
}

// ClientCount returns the number of connected clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, room := range h.rooms {
		total += len(room)
	}
	return total
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	closed := 0
	for name, room := range h.rooms {
		for client := range room {
			client.closeSend()
			closed++
		}
		delete(h.rooms, name)
	}
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(0)

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "gateway-hub").
		Str("reason", reason).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}
