// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package gateway

import (
	"context"
	"errors"

	"github.com/goccy/go-json"

	"github.com/campusatlas/campusatlas/internal/logging"
	"github.com/campusatlas/campusatlas/internal/metrics"
	"github.com/campusatlas/campusatlas/internal/models"
	"github.com/campusatlas/campusatlas/internal/store"
	"github.com/campusatlas/campusatlas/internal/tracking"
	"github.com/campusatlas/campusatlas/internal/validation"
)

// LocationService is the ingest and snapshot surface the gateway calls.
type LocationService interface {
	Report(ctx context.Context, userID string, lat, lon, accuracyMeters float64) (models.ReportResult, error)
	CurrentUpdate(ctx context.Context, friendID string) (*models.LocationUpdate, error)
}

// TrackingRegistry is the subscription surface the gateway calls.
type TrackingRegistry interface {
	Track(ctx context.Context, tracker, target string, durationSeconds int) error
	Untrack(tracker, target string)
	ReleaseAll(tracker string)
}

// Pusher delivers a location update to a user's personal room.
type Pusher interface {
	SendLocationUpdate(targetUserID string, update models.LocationUpdate)
}

// Ops dispatches inbound operations to the location service and the
// tracking registry. Each operation runs to completion and yields exactly
// one result or error frame.
type Ops struct {
	service  LocationService
	registry TrackingRegistry
	pusher   Pusher
}

// NewOps creates the operation dispatcher.
func NewOps(service LocationService, registry TrackingRegistry, pusher Pusher) *Ops {
	return &Ops{service: service, registry: registry, pusher: pusher}
}

// Handle executes one inbound envelope for the authenticated user and
// returns the reply frame.
func (o *Ops) Handle(ctx context.Context, userID string, env Envelope) Frame {
	switch env.Op {
	case OpReportLocation:
		return o.reportLocation(ctx, userID, env)
	case OpTrackFriend:
		return o.trackFriend(ctx, userID, env)
	case OpUntrackFriend:
		return o.untrackFriend(userID, env)
	case OpPing:
		return Frame{Type: FramePong, Ref: env.Ref}
	default:
		return errorFrame(env.Ref, CodeUnknownOperation, "unknown operation: "+env.Op)
	}
}

// Disconnect releases every tracking subscription owned by the user.
func (o *Ops) Disconnect(userID string) {
	o.registry.ReleaseAll(userID)
}

func (o *Ops) reportLocation(ctx context.Context, userID string, env Envelope) Frame {
	var payload ReportLocationPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return errorFrame(env.Ref, CodeValidationError, "malformed report_location payload")
	}
	if verr := validation.ValidateStruct(&payload); verr != nil {
		return validationErrorFrame(env.Ref, verr)
	}

	result, err := o.service.Report(ctx, userID, payload.Latitude, payload.Longitude, payload.AccuracyMeters)
	if err != nil {
		return o.failureFrame(ctx, env.Ref, "report_location", err)
	}
	return resultFrame(env.Ref, result)
}

func (o *Ops) trackFriend(ctx context.Context, userID string, env Envelope) Frame {
	var payload TrackFriendPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return errorFrame(env.Ref, CodeValidationError, "malformed track_friend payload")
	}
	if verr := validation.ValidateStruct(&payload); verr != nil {
		return validationErrorFrame(env.Ref, verr)
	}

	if err := o.registry.Track(ctx, userID, payload.FriendID, payload.DurationSeconds); err != nil {
		metrics.TrackingSubscriptions.WithLabelValues("track", "denied").Inc()
		return o.failureFrame(ctx, env.Ref, "track_friend", err)
	}
	metrics.TrackingSubscriptions.WithLabelValues("track", "ok").Inc()

	// Immediate catch-up push when the friend already has a live record.
	update, err := o.service.CurrentUpdate(ctx, payload.FriendID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("friend_id", payload.FriendID).
			Msg("initial push after track failed")
	} else if update != nil {
		o.pusher.SendLocationUpdate(userID, *update)
	}

	return resultFrame(env.Ref, map[string]any{"tracking": payload.FriendID})
}

func (o *Ops) untrackFriend(userID string, env Envelope) Frame {
	var payload UntrackFriendPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return errorFrame(env.Ref, CodeValidationError, "malformed untrack_friend payload")
	}
	if verr := validation.ValidateStruct(&payload); verr != nil {
		return validationErrorFrame(env.Ref, verr)
	}

	o.registry.Untrack(userID, payload.FriendID)
	metrics.TrackingSubscriptions.WithLabelValues("untrack", "ok").Inc()
	return resultFrame(env.Ref, map[string]any{"tracking": nil})
}

// failureFrame maps a domain error to its wire error code.
func (o *Ops) failureFrame(ctx context.Context, ref, op string, err error) Frame {
	switch {
	case errors.Is(err, tracking.ErrNotAuthorized):
		return errorFrame(ref, CodeNotAuthorized, err.Error())
	case errors.Is(err, store.ErrUserNotFound):
		return errorFrame(ref, CodeUserNotFound, "user not found")
	default:
		logging.Ctx(ctx).Error().Err(err).Str("op", op).Msg("operation failed")
		return errorFrame(ref, CodeInternalError, "internal error")
	}
}

func validationErrorFrame(ref string, verr *validation.RequestValidationError) Frame {
	frame := errorFrame(ref, CodeValidationError, verr.Error())
	frame.Error.Details = verr.Fields()
	return frame
}
