package status

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"fleet-tracker/internal/domain/unit"
)

// DefaultWindow is how long a unit may go without samples before it is
// considered stopped.
const DefaultWindow = 2 * time.Second

// Deriver is a trailing-edge debounce over sample arrivals: every arrival
// flips the status to moving and re-arms the window; when the window
// elapses without another arrival the status becomes stopped.
type Deriver struct {
	clock    clockwork.Clock
	window   time.Duration
	onChange func(unit.Status)

	mu      sync.Mutex
	status  unit.Status
	armed   uint64 // generation of the pending window, 0 when none
	cancel  chan struct{}
	stopped bool
}

// Option tunes a Deriver.
type Option func(*Deriver)

func WithClock(c clockwork.Clock) Option { return func(d *Deriver) { d.clock = c } }
func WithWindow(w time.Duration) Option  { return func(d *Deriver) { d.window = w } }

// OnChange registers a callback for timer-driven transitions. It runs on the
// timer goroutine without any Deriver lock held.
func OnChange(fn func(unit.Status)) Option { return func(d *Deriver) { d.onChange = fn } }

// NewDeriver keeps initial until the first Observe.
func NewDeriver(initial unit.Status, opts ...Option) *Deriver {
	d := &Deriver{
		clock:  clockwork.NewRealClock(),
		window: DefaultWindow,
		status: initial,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.window <= 0 {
		d.window = DefaultWindow
	}
	return d
}

// Observe records a sample arrival. It returns the status held before the
// arrival; the status afterwards is always moving. The synchronous
// transition is reported only through the return value.
func (d *Deriver) Observe() (prev unit.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev = d.status
	if d.stopped {
		return prev
	}
	d.status = unit.StatusMoving

	if d.cancel != nil {
		close(d.cancel)
	}
	d.armed++
	gen := d.armed
	d.cancel = make(chan struct{})
	timer := d.clock.NewTimer(d.window)
	go d.await(timer, d.cancel, gen)

	return prev
}

// Status returns the current status.
func (d *Deriver) Status() unit.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Pending reports whether a debounce window is armed.
func (d *Deriver) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Stop disarms the window and makes the deriver inert. Idempotent.
func (d *Deriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.cancel != nil {
		close(d.cancel)
		d.cancel = nil
	}
}

func (d *Deriver) await(timer clockwork.Timer, cancel <-chan struct{}, gen uint64) {
	select {
	case <-cancel:
		timer.Stop()
		return
	case <-timer.Chan():
	}

	d.mu.Lock()
	if d.stopped || d.armed != gen {
		d.mu.Unlock()
		return
	}
	d.cancel = nil
	changed := d.status != unit.StatusStopped
	d.status = unit.StatusStopped
	fn := d.onChange
	d.mu.Unlock()

	if changed && fn != nil {
		fn(unit.StatusStopped)
	}
}
