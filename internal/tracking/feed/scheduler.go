package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/general/contracts"
	"fleet-tracker/internal/tracking/path"
)

// DefaultInterval is the replay cadence: one sample per tick.
const DefaultInterval = time.Second

var ErrAlreadyStarted = errors.New("feed: scheduler already started")

// Publisher is the side of the telemetry channel the scheduler needs.
type Publisher interface {
	Publish(event string, payload any) error
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateDone    // path exhausted
	stateStopped // Stop called
)

// Scheduler replays a path over a publisher, one gps_update per tick.
type Scheduler struct {
	path      path.Path
	unitID    string
	sessionID string
	pub       Publisher
	clock     clockwork.Clock
	interval  time.Duration
	logger    *log.Logger
	logCtx    context.Context

	mu     sync.Mutex
	state  state
	cursor int
	ticker clockwork.Ticker
	stopCh chan struct{}
	done   chan struct{}
}

// Option tunes a Scheduler.
type Option func(*Scheduler)

func WithClock(c clockwork.Clock) Option  { return func(s *Scheduler) { s.clock = c } }
func WithInterval(d time.Duration) Option { return func(s *Scheduler) { s.interval = d } }

// WithSession stamps every emitted update with the owning session id.
func WithSession(id string) Option { return func(s *Scheduler) { s.sessionID = id } }

func WithLogger(ctx context.Context, l *log.Logger) Option {
	return func(s *Scheduler) { s.logCtx, s.logger = ctx, l }
}

// New builds an idle scheduler for p. Start arms it.
func New(p path.Path, unitID string, pub Publisher, opts ...Option) *Scheduler {
	s := &Scheduler{
		path:     p,
		unitID:   unitID,
		pub:      pub,
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		logger:   log.Nop(),
		logCtx:   context.Background(),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	return s
}

// Start arms the repeating timer. A scheduler starts at most once.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateIdle {
		return ErrAlreadyStarted
	}
	s.state = stateRunning
	s.ticker = s.clock.NewTicker(s.interval)

	s.logger.Debug(s.logCtx, "feed_started", "Feed scheduler armed", map[string]any{
		"samples":     len(s.path),
		"interval_ms": s.interval.Milliseconds(),
	})

	go s.loop(s.ticker, s.stopCh)
	return nil
}

// Stop cancels the timer regardless of the cursor. Safe to call repeatedly
// and before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateStopped, stateDone:
		return
	case stateIdle:
		s.state = stateStopped
		close(s.done)
		return
	}

	s.state = stateStopped
	s.ticker.Stop()
	close(s.stopCh)
	s.logger.Debug(s.logCtx, "feed_stopped", "Feed scheduler stopped", map[string]any{"cursor": s.cursor})
}

// Running reports whether the timer is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

// Exhausted reports whether every sample was emitted and the timer cancelled.
func (s *Scheduler) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateDone
}

// Cursor is the index of the next sample to emit.
func (s *Scheduler) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Done is closed once the tick loop has exited.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

func (s *Scheduler) loop(ticker clockwork.Ticker, stopCh <-chan struct{}) {
	defer close(s.done)
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.Chan():
			if !s.tick() {
				return
			}
		}
	}
}

// tick emits the sample under the cursor. It returns false once the
// scheduler reached a terminal state.
func (s *Scheduler) tick() bool {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return false
	}
	if s.cursor >= len(s.path) {
		s.state = stateDone
		s.ticker.Stop()
		s.mu.Unlock()
		s.logger.Info(s.logCtx, "feed_completed", "Path fully replayed", map[string]any{"samples": len(s.path)})
		return false
	}
	seq := s.cursor
	msg := contracts.GPSUpdate{Sample: s.path[seq], UnitID: s.unitID, Seq: seq, SessionID: s.sessionID}
	s.mu.Unlock()

	// the lock is released while listeners run so Stop never waits on them
	if err := s.pub.Publish(contracts.EventGPSUpdate, msg); err != nil {
		s.logger.Error(s.logCtx, "feed_publish_failed", "Failed to publish gps_update, retrying next tick", err,
			map[string]any{"seq": seq})
		return true
	}

	s.mu.Lock()
	if s.cursor == seq {
		s.cursor++
	}
	s.mu.Unlock()
	return true
}
