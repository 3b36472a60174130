package geo

import (
	"errors"
	"math"
)

// Coordinate is a point on the spherical-earth approximation, in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be a number between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be a number between -180 and 180")
)

// Validate checks the coordinate is finite and within range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// Equal reports exact equality of both components.
func (c Coordinate) Equal(o Coordinate) bool {
	return c.Lat == o.Lat && c.Lng == o.Lng
}

// Lerp moves from c towards o by fraction t, interpolating each axis independently.
func (c Coordinate) Lerp(o Coordinate, t float64) Coordinate {
	return Coordinate{
		Lat: c.Lat + (o.Lat-c.Lat)*t,
		Lng: c.Lng + (o.Lng-c.Lng)*t,
	}
}
