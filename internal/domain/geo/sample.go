package geo

import "time"

// Sample is one GPS telemetry point. Speed is in km/h.
type Sample struct {
	Coordinate
	Timestamp time.Time `json:"timestamp"`
	Speed     float64   `json:"speed"`
}

// Position returns the sample's coordinate.
func (s Sample) Position() Coordinate { return s.Coordinate }
