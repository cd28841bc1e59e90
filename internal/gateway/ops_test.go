// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/campusatlas/campusatlas/internal/models"
	"github.com/campusatlas/campusatlas/internal/store"
	"github.com/campusatlas/campusatlas/internal/tracking"
)

type fakeService struct {
	reportErr  error
	lastReport []float64
	current    *models.LocationUpdate
	currentErr error
}

func (f *fakeService) Report(_ context.Context, _ string, lat, lon, acc float64) (models.ReportResult, error) {
	if f.reportErr != nil {
		return models.ReportResult{}, f.reportErr
	}
	f.lastReport = []float64{lat, lon, acc}
	return models.ReportResult{Shared: true, ExpiresAt: time.Now().Add(5 * time.Minute)}, nil
}

func (f *fakeService) CurrentUpdate(_ context.Context, _ string) (*models.LocationUpdate, error) {
	return f.current, f.currentErr
}

type fakeRegistry struct {
	mu       sync.Mutex
	trackErr error
	tracked  [][2]string
	untracks [][2]string
	released []string
}

func (f *fakeRegistry) Track(_ context.Context, tracker, target string, _ int) error {
	if f.trackErr != nil {
		return f.trackErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, [2]string{tracker, target})
	return nil
}

func (f *fakeRegistry) Untrack(tracker, target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.untracks = append(f.untracks, [2]string{tracker, target})
}

func (f *fakeRegistry) ReleaseAll(tracker string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, tracker)
}

// Released returns a snapshot of the trackers released so far.
func (f *fakeRegistry) Released() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

type fakePusher struct {
	pushes []string
}

func (f *fakePusher) SendLocationUpdate(target string, _ models.LocationUpdate) {
	f.pushes = append(f.pushes, target)
}

func envelope(t *testing.T, op, ref string, payload any) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return Envelope{Op: op, Ref: ref, Payload: raw}
}

func TestHandleReportLocation(t *testing.T) {
	svc := &fakeService{}
	ops := NewOps(svc, &fakeRegistry{}, &fakePusher{})

	env := envelope(t, OpReportLocation, "r1", ReportLocationPayload{
		Latitude: 49.28, Longitude: -123.12, AccuracyMeters: 10,
	})
	frame := ops.Handle(context.Background(), "alice", env)

	if frame.Type != FrameResult || frame.Ref != "r1" {
		t.Fatalf("frame = %+v, want result with ref r1", frame)
	}
	result, ok := frame.Data.(models.ReportResult)
	if !ok || !result.Shared {
		t.Errorf("data = %#v, want shared ReportResult", frame.Data)
	}
	if svc.lastReport[0] != 49.28 {
		t.Errorf("service saw %v, want reported coordinates", svc.lastReport)
	}
}

func TestHandleReportLocationValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload ReportLocationPayload
	}{
		{"latitude out of range", ReportLocationPayload{Latitude: 91}},
		{"longitude out of range", ReportLocationPayload{Longitude: -181}},
		{"negative accuracy", ReportLocationPayload{AccuracyMeters: -5}},
	}

	ops := NewOps(&fakeService{}, &fakeRegistry{}, &fakePusher{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := ops.Handle(context.Background(), "alice", envelope(t, OpReportLocation, "", tt.payload))
			if frame.Type != FrameError || frame.Error.Code != CodeValidationError {
				t.Errorf("frame = %+v, want VALIDATION_ERROR", frame)
			}
		})
	}
}

func TestHandleMalformedPayload(t *testing.T) {
	ops := NewOps(&fakeService{}, &fakeRegistry{}, &fakePusher{})

	frame := ops.Handle(context.Background(), "alice", Envelope{
		Op: OpReportLocation, Payload: json.RawMessage(`"not an object"`),
	})
	if frame.Type != FrameError || frame.Error.Code != CodeValidationError {
		t.Errorf("frame = %+v, want VALIDATION_ERROR", frame)
	}
}

func TestHandleReportLocationUserNotFound(t *testing.T) {
	ops := NewOps(&fakeService{reportErr: store.ErrUserNotFound}, &fakeRegistry{}, &fakePusher{})

	frame := ops.Handle(context.Background(), "ghost", envelope(t, OpReportLocation, "", ReportLocationPayload{}))
	if frame.Type != FrameError || frame.Error.Code != CodeUserNotFound {
		t.Errorf("frame = %+v, want USER_NOT_FOUND", frame)
	}
}

func TestHandleTrackFriendWithInitialPush(t *testing.T) {
	svc := &fakeService{current: &models.LocationUpdate{FriendID: "bob", Latitude: 49.28}}
	reg := &fakeRegistry{}
	pusher := &fakePusher{}
	ops := NewOps(svc, reg, pusher)

	env := envelope(t, OpTrackFriend, "t1", TrackFriendPayload{FriendID: "bob", DurationSeconds: 600})
	frame := ops.Handle(context.Background(), "alice", env)

	if frame.Type != FrameResult || frame.Ref != "t1" {
		t.Fatalf("frame = %+v, want result", frame)
	}
	if len(reg.tracked) != 1 || reg.tracked[0] != [2]string{"alice", "bob"} {
		t.Errorf("tracked = %v, want alice->bob", reg.tracked)
	}
	if len(pusher.pushes) != 1 || pusher.pushes[0] != "alice" {
		t.Errorf("pushes = %v, want initial push to alice", pusher.pushes)
	}
}

func TestHandleTrackFriendNoCurrentRecord(t *testing.T) {
	pusher := &fakePusher{}
	ops := NewOps(&fakeService{current: nil}, &fakeRegistry{}, pusher)

	frame := ops.Handle(context.Background(), "alice",
		envelope(t, OpTrackFriend, "", TrackFriendPayload{FriendID: "bob"}))

	if frame.Type != FrameResult {
		t.Fatalf("frame = %+v, want result", frame)
	}
	if len(pusher.pushes) != 0 {
		t.Errorf("pushes = %v, want none without a current record", pusher.pushes)
	}
}

func TestHandleTrackFriendNotAuthorized(t *testing.T) {
	reg := &fakeRegistry{trackErr: tracking.ErrNotAuthorized}
	pusher := &fakePusher{}
	ops := NewOps(&fakeService{}, reg, pusher)

	frame := ops.Handle(context.Background(), "alice",
		envelope(t, OpTrackFriend, "t2", TrackFriendPayload{FriendID: "stranger"}))

	if frame.Type != FrameError || frame.Error.Code != CodeNotAuthorized {
		t.Errorf("frame = %+v, want NOT_AUTHORIZED", frame)
	}
	if frame.Ref != "t2" {
		t.Errorf("ref = %q, want t2", frame.Ref)
	}
	if len(pusher.pushes) != 0 {
		t.Errorf("pushes = %v, want none on denial", pusher.pushes)
	}
}

func TestHandleTrackFriendMissingFriendID(t *testing.T) {
	reg := &fakeRegistry{}
	ops := NewOps(&fakeService{}, reg, &fakePusher{})

	frame := ops.Handle(context.Background(), "alice",
		envelope(t, OpTrackFriend, "", TrackFriendPayload{}))

	if frame.Type != FrameError || frame.Error.Code != CodeValidationError {
		t.Errorf("frame = %+v, want VALIDATION_ERROR", frame)
	}
	if len(reg.tracked) != 0 {
		t.Error("registry called despite invalid payload")
	}
}

func TestHandleUntrackFriend(t *testing.T) {
	reg := &fakeRegistry{}
	ops := NewOps(&fakeService{}, reg, &fakePusher{})

	frame := ops.Handle(context.Background(), "alice",
		envelope(t, OpUntrackFriend, "u1", UntrackFriendPayload{FriendID: "bob"}))

	if frame.Type != FrameResult {
		t.Fatalf("frame = %+v, want result", frame)
	}
	if len(reg.untracks) != 1 || reg.untracks[0] != [2]string{"alice", "bob"} {
		t.Errorf("untracks = %v, want alice->bob", reg.untracks)
	}
}

func TestHandlePing(t *testing.T) {
	ops := NewOps(&fakeService{}, &fakeRegistry{}, &fakePusher{})

	frame := ops.Handle(context.Background(), "alice", Envelope{Op: OpPing, Ref: "p1"})
	if frame.Type != FramePong || frame.Ref != "p1" {
		t.Errorf("frame = %+v, want pong with ref p1", frame)
	}
}

func TestHandleUnknownOperation(t *testing.T) {
	ops := NewOps(&fakeService{}, &fakeRegistry{}, &fakePusher{})

	frame := ops.Handle(context.Background(), "alice", Envelope{Op: "self_destruct"})
	if frame.Type != FrameError || frame.Error.Code != CodeUnknownOperation {
		t.Errorf("frame = %+v, want UNKNOWN_OPERATION", frame)
	}
}

func TestDisconnectReleasesSubscriptions(t *testing.T) {
	reg := &fakeRegistry{}
	ops := NewOps(&fakeService{}, reg, &fakePusher{})

	ops.Disconnect("alice")
	if released := reg.Released(); len(released) != 1 || released[0] != "alice" {
		t.Errorf("released = %v, want [alice]", released)
	}
}
