package motion

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"fleet-tracker/internal/domain/geo"
)

// DefaultFrameInterval approximates a 60 Hz animation clock.
const DefaultFrameInterval = 16 * time.Millisecond

// Animator drives the rendered position towards each new sample and owns
// the traveled polyline. At most one transit is in flight; a new sample
// cancels it and restarts from wherever the marker currently is.
type Animator struct {
	clock   clockwork.Clock
	frame   time.Duration
	surface Surface

	mu        sync.Mutex
	position  geo.Coordinate
	polyline  []geo.Coordinate
	open      bool // last polyline point is the tip being dragged
	seg       Segment
	startedAt time.Time
	animating bool
	gen       uint64
	cancel    chan struct{}
}

// AnimatorOption tunes an Animator.
type AnimatorOption func(*Animator)

func WithClock(c clockwork.Clock) AnimatorOption { return func(a *Animator) { a.clock = c } }

func WithFrameInterval(d time.Duration) AnimatorOption {
	return func(a *Animator) { a.frame = d }
}

// NewAnimator renders into surface; a nil surface discards frames.
func NewAnimator(surface Surface, opts ...AnimatorOption) *Animator {
	if surface == nil {
		surface = NopSurface{}
	}
	a := &Animator{
		clock:   clockwork.NewRealClock(),
		frame:   DefaultFrameInterval,
		surface: surface,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.frame <= 0 {
		a.frame = DefaultFrameInterval
	}
	return a
}

// Reset cancels any transit and starts a fresh polyline at start.
func (a *Animator) Reset(start geo.Coordinate) {
	a.mu.Lock()
	a.cancelLocked()
	a.gen++
	a.position = start
	a.polyline = []geo.Coordinate{start}
	line := a.lineLocked()
	a.mu.Unlock()

	a.surface.OnPositionUpdate(start)
	a.surface.OnPolylineUpdate(line)
}

// Animate plans the transit to sample from the current rendered position
// and either snaps (stopped) or starts the frame loop. stopped is the unit's
// status before this sample arrived.
func (a *Animator) Animate(sample geo.Sample, stopped bool) Segment {
	a.mu.Lock()
	a.cancelLocked()
	a.gen++

	seg := Plan(a.position, sample, stopped)
	if seg.Snap {
		a.position = seg.To
		line := a.lineLocked()
		a.mu.Unlock()

		a.surface.OnPositionUpdate(seg.To)
		a.surface.OnPolylineUpdate(line)
		return seg
	}

	if len(a.polyline) == 0 {
		a.polyline = append(a.polyline, a.position)
	}
	a.polyline = append(a.polyline, a.position)
	a.open = true
	a.seg = seg
	a.startedAt = a.clock.Now()
	a.animating = true
	a.cancel = make(chan struct{})

	ticker := a.clock.NewTicker(a.frame)
	go a.run(ticker, a.cancel, a.gen)
	a.mu.Unlock()

	return seg
}

// Clear cancels any transit and drops the polyline.
func (a *Animator) Clear() {
	a.mu.Lock()
	a.cancelLocked()
	a.gen++
	a.position = geo.Coordinate{}
	a.polyline = nil
	a.mu.Unlock()

	a.surface.OnPolylineUpdate([]geo.Coordinate{})
}

// Stop cancels the in-flight transit, committing the tip where it is.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
	a.gen++
}

// Position is the current rendered coordinate.
func (a *Animator) Position() geo.Coordinate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.position
}

// Polyline returns a copy of the traveled polyline.
func (a *Animator) Polyline() []geo.Coordinate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lineLocked()
}

// Animating reports whether a transit is in flight.
func (a *Animator) Animating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.animating
}

// Current returns the in-flight segment, if any.
func (a *Animator) Current() (Segment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seg, a.animating
}

func (a *Animator) run(ticker clockwork.Ticker, cancel <-chan struct{}, gen uint64) {
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.Chan():
			if a.step(gen) {
				return
			}
		}
	}
}

// step renders one frame and reports whether the transit is over.
func (a *Animator) step(gen uint64) bool {
	a.mu.Lock()
	if gen != a.gen || !a.animating {
		a.mu.Unlock()
		return true
	}

	p := a.seg.Progress(a.clock.Since(a.startedAt))
	pos := a.seg.At(p)
	a.position = pos
	if p > 0 {
		a.polyline[len(a.polyline)-1] = pos
	}
	done := p >= 1
	if done {
		a.open = false
		a.animating = false
		a.cancel = nil
	}
	line := a.lineLocked()
	a.mu.Unlock()

	a.surface.OnPositionUpdate(pos)
	a.surface.OnPolylineUpdate(line)
	return done
}

func (a *Animator) cancelLocked() {
	if !a.animating {
		return
	}
	close(a.cancel)
	a.cancel = nil
	a.animating = false
	if a.open && len(a.polyline) > 0 {
		a.polyline[len(a.polyline)-1] = a.position
	}
	a.open = false
}

func (a *Animator) lineLocked() []geo.Coordinate {
	return append([]geo.Coordinate(nil), a.polyline...)
}
