// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package gateway

import (
	"github.com/goccy/go-json"
)

// Inbound operation names.
const (
	OpReportLocation = "report_location"
	OpTrackFriend    = "track_friend"
	OpUntrackFriend  = "untrack_friend"
	OpPing           = "ping"
)

// Outbound frame types.
const (
	FrameLocationUpdate = "location_update"
	FrameResult         = "result"
	FrameError          = "error"
	FramePong           = "pong"
)

// Wire error codes.
const (
	CodeAuthenticationError = "AUTHENTICATION_ERROR"
	CodeNotAuthorized       = "NOT_AUTHORIZED"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeUnknownOperation    = "UNKNOWN_OPERATION"
	CodeInternalError       = "INTERNAL_ERROR"
)

// Envelope is one inbound client message. Ref is an optional client-chosen
// correlation id echoed back on the result or error frame.
type Envelope struct {
	Op      string          `json:"op"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ReportLocationPayload carries one location report.
type ReportLocationPayload struct {
	Latitude       float64 `json:"latitude" validate:"latitude"`
	Longitude      float64 `json:"longitude" validate:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters" validate:"gte=0"`
}

// TrackFriendPayload requests a tracking subscription on a friend.
type TrackFriendPayload struct {
	FriendID        string `json:"friend_id" validate:"required"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
}

// UntrackFriendPayload cancels a tracking subscription.
type UntrackFriendPayload struct {
	FriendID string `json:"friend_id" validate:"required"`
}

// Frame is one outbound server message.
type Frame struct {
	Type  string     `json:"type"`
	Ref   string     `json:"ref,omitempty"`
	Data  any        `json:"data,omitempty"`
	Error *WireError `json:"error,omitempty"`
}

// WireError is the error body of an error frame.
type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func resultFrame(ref string, data any) Frame {
	return Frame{Type: FrameResult, Ref: ref, Data: data}
}

func errorFrame(ref, code, message string) Frame {
	return Frame{Type: FrameError, Ref: ref, Error: &WireError{Code: code, Message: message}}
}
