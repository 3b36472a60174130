package simulator

import (
	"context"
	"sync"
	"time"

	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/domain/geo"
)

// logSurface is the headless rendering surface: it counts frames and logs
// camera moves instead of drawing.
type logSurface struct {
	ctx    context.Context
	logger *log.Logger

	mu        sync.Mutex
	frames    int
	last      geo.Coordinate
	polyline  int
	centerCnt int
}

func (s *logSurface) OnPositionUpdate(pos geo.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	s.last = pos
}

func (s *logSurface) OnPolylineUpdate(line []geo.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polyline = len(line)
}

func (s *logSurface) RequestCenterOn(pos geo.Coordinate, zoom float64, d time.Duration) {
	s.mu.Lock()
	s.centerCnt++
	s.mu.Unlock()

	s.logger.Info(s.ctx, "camera_center", "Centering map on unit", map[string]any{
		"lat":         pos.Lat,
		"lng":         pos.Lng,
		"zoom":        zoom,
		"duration_ms": d.Milliseconds(),
	})
}

func (s *logSurface) stats() (frames, polyline int, last geo.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, s.polyline, s.last
}
