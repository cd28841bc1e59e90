// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package gateway

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// startHub runs the hub until the test ends.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// waitForClients polls until the hub reports the expected client count.
func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
}

func newTestClient(hub *Hub, userID string) *Client {
	return NewClient(context.Background(), hub, nil, nil, userID)
}

func TestHubDeliversToPersonalRoom(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register <- alice
	hub.Register <- bob
	waitForClients(t, hub, 2)

	update := models.LocationUpdate{FriendID: "carol", Latitude: 49.28, Longitude: -123.12}
	hub.SendLocationUpdate("alice", update)

	select {
	case frame := <-alice.send:
		if frame.Type != FrameLocationUpdate {
			t.Errorf("frame type = %q, want %q", frame.Type, FrameLocationUpdate)
		}
		got, ok := frame.Data.(models.LocationUpdate)
		if !ok || got.FriendID != "carol" {
			t.Errorf("frame data = %#v, want update for carol", frame.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("alice never received the update")
	}

	select {
	case frame := <-bob.send:
		t.Errorf("bob received %+v, want nothing", frame)
	default:
	}
}

func TestHubMultipleConnectionsSameUser(t *testing.T) {
	hub := startHub(t)

	phone := newTestClient(hub, "alice")
	laptop := newTestClient(hub, "alice")
	hub.Register <- phone
	hub.Register <- laptop
	waitForClients(t, hub, 2)

	hub.SendLocationUpdate("alice", models.LocationUpdate{FriendID: "bob"})

	for _, c := range []*Client{phone, laptop} {
		select {
		case <-c.send:
		case <-time.After(time.Second):
			t.Fatal("connection missed a room delivery")
		}
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := startHub(t)

	client := newTestClient(hub, "alice")
	hub.Register <- client
	waitForClients(t, hub, 1)

	// Fill the buffer without a consumer; extra sends must not block.
	for i := 0; i < sendBufferSize+10; i++ {
		hub.SendLocationUpdate("alice", models.LocationUpdate{FriendID: "bob"})
	}

	if got := len(client.send); got != sendBufferSize {
		t.Errorf("buffered frames = %d, want %d", got, sendBufferSize)
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub := startHub(t)

	client := newTestClient(hub, "alice")
	hub.Register <- client
	waitForClients(t, hub, 1)

	hub.Unregister <- client
	waitForClients(t, hub, 0)

	if _, open := <-client.send; open {
		t.Error("send channel still open after unregister")
	}

	// Delivery to the now-empty room must be a no-op.
	hub.SendLocationUpdate("alice", models.LocationUpdate{FriendID: "bob"})
}

func TestHubUnregisterUnknownClientIsNoop(t *testing.T) {
	hub := startHub(t)

	client := newTestClient(hub, "alice")
	hub.Unregister <- client

	// Synchronize on a registration to know the unregister was processed.
	other := newTestClient(hub, "bob")
	hub.Register <- other
	waitForClients(t, hub, 1)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	client := newTestClient(hub, "alice")
	hub.Register <- client
	waitForClients(t, hub, 1)

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("RunWithContext returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if _, open := <-client.send; open {
		t.Error("send channel still open after shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d after shutdown, want 0", hub.ClientCount())
	}
}

func TestEnqueueAfterShutdownDropsFrame(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	client := newTestClient(hub, "alice")
	hub.Register <- client
	waitForClients(t, hub, 1)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	// The read pump may still be dispatching a reply when the hub closes
	// the connection; the enqueue must be a silent drop, never a send on
	// a closed channel.
	client.Enqueue(resultFrame("r1", nil))
	client.Enqueue(errorFrame("r2", CodeInternalError, "late reply"))
}

func TestEnqueueAfterUnregisterDropsFrame(t *testing.T) {
	hub := startHub(t)

	client := newTestClient(hub, "alice")
	hub.Register <- client
	waitForClients(t, hub, 1)

	hub.Unregister <- client
	waitForClients(t, hub, 0)

	client.Enqueue(resultFrame("r1", nil))
}

func TestPersonalRoomNaming(t *testing.T) {
	if got := PersonalRoom("u1"); got != "user:u1" {
		t.Errorf("PersonalRoom = %q, want user:u1", got)
	}
}
