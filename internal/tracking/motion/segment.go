package motion

import (
	"math"
	"time"

	"fleet-tracker/internal/domain/geo"
)

const (
	// FallbackSpeedKMH replaces a missing or non-positive reported speed.
	FallbackSpeedKMH = 10.0
	// MinTransit is the shortest animated transit.
	MinTransit = time.Second
)

// Segment is one planned transit from the rendered position to a new sample.
type Segment struct {
	From       geo.Coordinate `json:"from"`
	To         geo.Coordinate `json:"to"`
	DistanceKM float64        `json:"distance_km"`
	SpeedKMH   float64        `json:"speed_kmh"`
	Duration   time.Duration  `json:"duration"`
	// Snap means the target is applied at once and the polyline is left alone.
	Snap bool `json:"snap"`
}

// Plan computes the transit from `from` to sample. stopped carries the
// unit's status before this sample arrived; a stopped unit or a sample
// reporting zero speed snaps instead of animating.
func Plan(from geo.Coordinate, sample geo.Sample, stopped bool) Segment {
	seg := Segment{
		From:       from,
		To:         sample.Coordinate,
		DistanceKM: geo.HaversineKM(from, sample.Coordinate),
		SpeedKMH:   EffectiveSpeed(sample.Speed),
	}
	if stopped || sample.Speed == 0 {
		seg.Snap = true
		seg.SpeedKMH = 0
		return seg
	}
	seg.Duration = TransitDuration(seg.DistanceKM, seg.SpeedKMH)
	return seg
}

// EffectiveSpeed floors zero-like speeds (zero, negative, NaN, Inf) to
// FallbackSpeedKMH.
func EffectiveSpeed(reported float64) float64 {
	if reported <= 0 || math.IsNaN(reported) || math.IsInf(reported, 0) {
		return FallbackSpeedKMH
	}
	return reported
}

// TransitDuration is distance/speed in wall time, never below MinTransit.
func TransitDuration(distanceKM, speedKMH float64) time.Duration {
	if speedKMH <= 0 || math.IsNaN(distanceKM) {
		return MinTransit
	}
	ms := distanceKM / speedKMH * 3600 * 1000
	d := time.Duration(ms * float64(time.Millisecond))
	if d < MinTransit {
		return MinTransit
	}
	return d
}

// Progress maps elapsed time to a fraction in [0,1].
func (s Segment) Progress(elapsed time.Duration) float64 {
	if s.Snap || s.Duration <= 0 {
		return 1
	}
	p := float64(elapsed) / float64(s.Duration)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// At returns the interpolated coordinate at progress p.
func (s Segment) At(p float64) geo.Coordinate {
	if s.Snap || p >= 1 {
		return s.To
	}
	if p <= 0 {
		return s.From
	}
	return s.From.Lerp(s.To, p)
}
