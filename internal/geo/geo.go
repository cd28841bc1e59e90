// Campusatlas - Campus Map Social Backend
// Copyright 2026 Campusatlas Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campusatlas/campusatlas

// Package geo provides great-circle distance, coordinate obfuscation, and a
// spatial hash index for proximity queries.
package geo

import (
	"math"
	"math/rand"
	"sync"
)

const (
	earthRadiusMeters = 6371000.0

	// metersPerDegreeLat is the approximate north-south span of one degree
	// of latitude. Longitude spans shrink with cos(latitude).
	metersPerDegreeLat = 111320.0
)

// Distance calculates the great-circle distance in meters between two
// lat/lon points using the Haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// MetersToDegreesLat converts a north-south distance to degrees of latitude.
func MetersToDegreesLat(meters float64) float64 {
	return meters / metersPerDegreeLat
}

// MetersToDegreesLon converts an east-west distance to degrees of longitude
// at the given latitude. Near the poles cos(lat) approaches zero; the
// divisor is clamped so the conversion stays finite.
func MetersToDegreesLon(meters, atLatitude float64) float64 {
	cosLat := math.Cos(atLatitude * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	return meters / (metersPerDegreeLat * cosLat)
}

// Jitter applies randomized positional offsets for approximate-mode privacy.
// The randomness source is injected so tests can seed it deterministically.
// Safe for concurrent use.
type Jitter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewJitter creates a Jitter backed by the given source.
func NewJitter(src rand.Source) *Jitter {
	return &Jitter{rng: rand.New(src)}
}

// Offset returns coordinates displaced from (lat, lon) by a random bearing
// and a random distance in [0, radiusMeters). A non-positive radius returns
// the input unchanged.
func (j *Jitter) Offset(lat, lon, radiusMeters float64) (float64, float64) {
	if radiusMeters <= 0 {
		return lat, lon
	}

	j.mu.Lock()
	bearing := j.rng.Float64() * 2 * math.Pi
	distance := j.rng.Float64() * radiusMeters
	j.mu.Unlock()

	dLat := MetersToDegreesLat(distance * math.Cos(bearing))
	dLon := MetersToDegreesLon(distance*math.Sin(bearing), lat)

	return lat + dLat, lon + dLon
}
