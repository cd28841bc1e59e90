// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

package models

// PrivacyMode controls whether and how a user's location is exposed to friends.
type PrivacyMode string

const (
	// PrivacyModeOff hides the user's location from everyone.
	PrivacyModeOff PrivacyMode = "off"

	// PrivacyModeLive shares exact coordinates.
	PrivacyModeLive PrivacyMode = "live"

	// PrivacyModeApproximate shares coordinates obfuscated within PrecisionMeters.
	PrivacyModeApproximate PrivacyMode = "approximate"

	// privacyModeLegacyOn is accepted from older clients as an alias for live.
	privacyModeLegacyOn PrivacyMode = "on"
)

// NormalizePrivacyMode maps stored privacy values to a canonical mode.
// The legacy value "on" aliases to live. Unrecognized values normalize
// to off so that corrupt settings never leak a location.
func NormalizePrivacyMode(mode string) PrivacyMode {
	switch PrivacyMode(mode) {
	case PrivacyModeLive, privacyModeLegacyOn:
		return PrivacyModeLive
	case PrivacyModeApproximate:
		return PrivacyModeApproximate
	case PrivacyModeOff:
		return PrivacyModeOff
	default:
		return PrivacyModeOff
	}
}

// PrivacySetting is a user's location-sharing configuration.
// PrecisionMeters is meaningful only in approximate mode.
type PrivacySetting struct {
	Mode            string  `json:"mode"`
	PrecisionMeters float64 `json:"precision_meters,omitempty"`
}

// NormalizedMode returns the canonical sharing mode for this setting.
func (p PrivacySetting) NormalizedMode() PrivacyMode {
	return NormalizePrivacyMode(p.Mode)
}
