package path

import (
	"errors"
	"fmt"
	"math"
	"time"

	"fleet-tracker/internal/domain/geo"
)

const (
	// DefaultSteps yields DefaultSteps+1 samples.
	DefaultSteps = 60

	baseRadiusDeg = 0.005 // ~500m
	shrinkFactor  = 0.3   // radius contracts by 30% over the route
	loops         = 2
	minSpeedKMH   = 5.0
	maxSpeedKMH   = 15.0
	sampleSpacing = time.Second
)

var (
	ErrInvalidStart = errors.New("path: invalid start coordinate")
	ErrInvalidSteps = errors.New("path: steps must be positive")
)

// Path is the ordered, finite sequence of samples for one tracking session.
type Path []geo.Sample

type options struct {
	steps   int
	startAt time.Time
}

// Option tunes Generate.
type Option func(*options)

// WithSteps sets the number of steps; the path holds steps+1 samples.
func WithSteps(n int) Option { return func(o *options) { o.steps = n } }

// WithStartTime pins the timestamp of the first sample.
func WithStartTime(t time.Time) Option { return func(o *options) { o.startAt = t } }

// Generate builds a contracting two-loop patrol around start. Geometry and
// speed profile depend only on start and steps; only absolute timestamps
// change between calls.
func Generate(start geo.Coordinate, opts ...Option) (Path, error) {
	o := options{steps: DefaultSteps}
	for _, opt := range opts {
		opt(&o)
	}
	if o.startAt.IsZero() {
		o.startAt = time.Now().UTC()
	}

	if err := start.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStart, err)
	}
	if o.steps <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSteps, o.steps)
	}

	out := make(Path, 0, o.steps+1)
	for i := 0; i <= o.steps; i++ {
		progress := float64(i) / float64(o.steps)
		angle := progress * loops * 2 * math.Pi
		radius := baseRadiusDeg * (1 - progress*shrinkFactor)

		out = append(out, geo.Sample{
			Coordinate: geo.Coordinate{
				Lat: start.Lat + math.Sin(angle)*radius,
				Lng: start.Lng + math.Cos(angle)*radius,
			},
			Timestamp: o.startAt.Add(time.Duration(i) * sampleSpacing),
			Speed:     SpeedAt(angle),
		})
	}
	return out, nil
}

// SpeedAt is the patrol speed profile in km/h, oscillating within [5,15].
func SpeedAt(angle float64) float64 {
	return math.Max(minSpeedKMH, maxSpeedKMH-math.Abs(math.Sin(2*angle))*10)
}
