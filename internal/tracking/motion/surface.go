package motion

import (
	"time"

	"fleet-tracker/internal/domain/geo"
)

// Surface is the rendering side (a map widget or a live-view bridge).
// Calls are fire-and-forget and made without any tracking lock held.
type Surface interface {
	OnPositionUpdate(pos geo.Coordinate)
	OnPolylineUpdate(line []geo.Coordinate)
	RequestCenterOn(pos geo.Coordinate, zoom float64, duration time.Duration)
}

// NopSurface discards everything.
type NopSurface struct{}

func (NopSurface) OnPositionUpdate(geo.Coordinate)                        {}
func (NopSurface) OnPolylineUpdate([]geo.Coordinate)                      {}
func (NopSurface) RequestCenterOn(geo.Coordinate, float64, time.Duration) {}

// Fanout forwards every call to each surface in order.
type Fanout []Surface

func (f Fanout) OnPositionUpdate(pos geo.Coordinate) {
	for _, s := range f {
		s.OnPositionUpdate(pos)
	}
}

func (f Fanout) OnPolylineUpdate(line []geo.Coordinate) {
	for _, s := range f {
		s.OnPolylineUpdate(line)
	}
}

func (f Fanout) RequestCenterOn(pos geo.Coordinate, zoom float64, d time.Duration) {
	for _, s := range f {
		s.RequestCenterOn(pos, zoom, d)
	}
}
