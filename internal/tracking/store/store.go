package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"fleet-tracker/internal/common/contextx"
	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/domain/geo"
	"fleet-tracker/internal/domain/unit"
	"fleet-tracker/internal/general/contracts"
	"fleet-tracker/internal/general/telemetry"
	"fleet-tracker/internal/tracking/feed"
	"fleet-tracker/internal/tracking/motion"
	"fleet-tracker/internal/tracking/path"
	"fleet-tracker/internal/tracking/status"
)

var (
	// ErrStaleSession marks a callback that outlived its session. It is
	// logged and swallowed, never returned to callers.
	ErrStaleSession = errors.New("store: stale session callback")
	ErrClosed       = errors.New("store: closed")
)

// State is a point-in-time copy of everything the view layers read.
type State struct {
	SessionID    string           `json:"session_id,omitempty"`
	Unit         *unit.Unit       `json:"unit,omitempty"`
	Samples      []geo.Sample     `json:"samples"`
	Status       unit.Status      `json:"status,omitempty"`
	Position     *geo.Coordinate  `json:"position,omitempty"`
	Polyline     []geo.Coordinate `json:"polyline"`
	Animating    bool             `json:"animating"`
	Notification *Notification    `json:"notification,omitempty"`
}

type session struct {
	gen       uint64
	id        string
	unit      unit.Unit
	path      path.Path
	scheduler *feed.Scheduler
	sub       telemetry.Subscription
	deriver   *status.Deriver
	ctx       context.Context
}

// Store is the single owner of tracking state. Every asynchronous callback
// captures the generation it was created for and no-ops once that generation
// is gone.
type Store struct {
	channel  *telemetry.Channel
	clock    clockwork.Clock
	logger   *log.Logger
	surface  motion.Surface
	animator *motion.Animator
	cfg      Config

	// render serializes animator calls with session changes so a late sample
	// can never animate over a freshly reset surface.
	render sync.Mutex

	mu      sync.Mutex
	gen     uint64
	session *session
	active  *unit.Unit
	samples []geo.Sample
	status  unit.Status
	closed  bool

	notice       *Notification
	noticeSeq    uint64
	noticeCancel chan struct{}
}

// Option tunes a Store.
type Option func(*Store)

func WithClock(c clockwork.Clock) Option   { return func(s *Store) { s.clock = c } }
func WithLogger(l *log.Logger) Option      { return func(s *Store) { s.logger = l } }
func WithSurface(sf motion.Surface) Option { return func(s *Store) { s.surface = sf } }
func WithConfig(c Config) Option           { return func(s *Store) { s.cfg = c } }

// New builds a store fed by ch. The channel stays owned by the caller.
func New(ch *telemetry.Channel, opts ...Option) *Store {
	s := &Store{
		channel: ch,
		clock:   clockwork.NewRealClock(),
		logger:  log.Nop(),
		surface: motion.NopSurface{},
		cfg:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.surface == nil {
		s.surface = motion.NopSurface{}
	}
	s.cfg = s.cfg.withDefaults()
	s.animator = motion.NewAnimator(s.surface,
		motion.WithClock(s.clock),
		motion.WithFrameInterval(s.cfg.FrameInterval),
	)
	return s
}

// BeginTracking tears down the live session, if any, and starts a new one
// for u. It returns once the scheduler is armed; samples arrive on ticks.
// A generation failure keeps u as the active unit with no samples, raises
// the error notice and returns the wrapped error.
func (s *Store) BeginTracking(ctx context.Context, u unit.Unit) error {
	s.render.Lock()
	defer s.render.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	s.teardownLocked()

	shadow := u
	s.active = &shadow
	s.samples = nil
	s.status = u.Status

	id := uuid.NewString()
	logCtx := contextx.WithSession(context.WithoutCancel(ctx), id, u.ID)

	p, err := path.Generate(u.Location, path.WithSteps(s.cfg.PathSteps), path.WithStartTime(s.clock.Now()))
	if err != nil {
		s.raiseLocked(msgRequestFailure, true)
		s.mu.Unlock()
		s.animator.Clear()
		s.logger.Error(logCtx, "tracking_begin_failed", "Failed to generate path", err, map[string]any{
			"lat": u.Location.Lat,
			"lng": u.Location.Lng,
		})
		return fmt.Errorf("begin tracking %s: %w", u.ID, err)
	}

	sess := &session{
		gen:  s.gen,
		id:   id,
		unit: shadow,
		path: p,
		ctx:  logCtx,
	}
	sess.deriver = status.NewDeriver(u.Status,
		status.WithClock(s.clock),
		status.WithWindow(s.cfg.DebounceWindow),
		status.OnChange(s.onStatus(sess)),
	)

	sub, err := s.channel.Subscribe(contracts.EventGPSUpdate, s.onUpdate(sess))
	if err != nil {
		sess.deriver.Stop()
		s.raiseLocked(msgRequestFailure, true)
		s.mu.Unlock()
		s.animator.Clear()
		s.logger.Error(logCtx, "tracking_begin_failed", "Failed to subscribe to telemetry", err, nil)
		return fmt.Errorf("begin tracking %s: %w", u.ID, err)
	}
	sess.sub = sub

	sess.scheduler = feed.New(p, u.ID, s.channel,
		feed.WithClock(s.clock),
		feed.WithInterval(s.cfg.TickInterval),
		feed.WithSession(sess.id),
		feed.WithLogger(logCtx, s.logger),
	)
	s.session = sess
	if err := sess.scheduler.Start(); err != nil {
		s.teardownLocked()
		s.raiseLocked(msgRequestFailure, true)
		s.mu.Unlock()
		s.animator.Clear()
		s.logger.Error(logCtx, "tracking_begin_failed", "Failed to start feed", err, nil)
		return fmt.Errorf("begin tracking %s: %w", u.ID, err)
	}
	s.raiseLocked(fmt.Sprintf(msgStarted, u.Name), false)
	s.mu.Unlock()

	s.animator.Reset(u.Location)
	s.surface.RequestCenterOn(u.Location, s.cfg.CenterZoom, s.cfg.FlyDuration)

	s.logger.Info(logCtx, "tracking_started", "Started tracking unit", map[string]any{
		"name":    u.Name,
		"samples": len(p),
	})
	return nil
}

// EndTracking tears down the live session and forgets the active unit.
func (s *Store) EndTracking(ctx context.Context) {
	s.render.Lock()
	defer s.render.Unlock()

	s.mu.Lock()
	s.teardownLocked()
	var unitID string
	if s.active != nil {
		unitID = s.active.ID
	}
	s.active = nil
	s.samples = nil
	s.status = ""
	s.mu.Unlock()

	s.animator.Clear()
	if unitID != "" {
		s.logger.Info(ctx, "tracking_ended", "Stopped tracking unit", map[string]any{"unit": unitID})
	}
}

// Close ends tracking and makes the store inert. The channel is left open.
func (s *Store) Close(ctx context.Context) {
	s.EndTracking(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.dismissLocked()
}

// teardownLocked stops the live session's timers, detaches its listener and
// bumps the generation so any callback still in flight becomes stale.
func (s *Store) teardownLocked() {
	s.gen++
	sess := s.session
	s.session = nil
	if sess == nil {
		return
	}

	sess.scheduler.Stop()
	s.channel.Unsubscribe(sess.sub)
	sess.deriver.Stop()

	s.logger.Debug(sess.ctx, "tracking_teardown", "Session torn down", map[string]any{
		"delivered": len(s.samples),
		"path":      len(sess.path),
	})
}

func (s *Store) onUpdate(sess *session) telemetry.Listener {
	return func(env telemetry.Envelope) {
		var msg contracts.GPSUpdate
		if err := env.Decode(&msg); err != nil {
			s.logger.Warn(sess.ctx, "gps_update_dropped", "Dropped malformed gps_update", map[string]any{
				"seq":   env.Seq,
				"error": err.Error(),
			})
			return
		}
		if msg.UnitID != sess.unit.ID {
			return
		}
		// a tick that was in flight during teardown may reach the listener
		// of the next session for the same unit
		if msg.SessionID != sess.id {
			s.logger.Debug(sess.ctx, "gps_update_stale", ErrStaleSession.Error(), map[string]any{
				"seq":     msg.Seq,
				"session": msg.SessionID,
			})
			return
		}

		s.render.Lock()
		defer s.render.Unlock()

		s.mu.Lock()
		if s.session != sess || sess.gen != s.gen {
			s.mu.Unlock()
			s.logger.Debug(sess.ctx, "gps_update_stale", ErrStaleSession.Error(), map[string]any{"seq": msg.Seq})
			return
		}
		if len(s.samples) >= len(sess.path) {
			s.mu.Unlock()
			return
		}
		s.samples = append(s.samples, msg.Sample)
		prev := sess.deriver.Observe()
		s.status = unit.StatusMoving
		if s.active != nil {
			s.active.Status = unit.StatusMoving
		}
		s.mu.Unlock()

		seg := s.animator.Animate(msg.Sample, prev == unit.StatusStopped)
		s.logger.Debug(sess.ctx, "gps_update_applied", "Sample applied", map[string]any{
			"seq":         msg.Seq,
			"speed_kmh":   msg.Sample.Speed,
			"distance_km": seg.DistanceKM,
			"transit_ms":  seg.Duration.Milliseconds(),
			"snap":        seg.Snap,
		})
	}
}

func (s *Store) onStatus(sess *session) func(unit.Status) {
	return func(st unit.Status) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.session != sess || sess.gen != s.gen {
			return
		}
		// Observe runs under s.mu, so the deriver's status read here is the
		// latest; a sample that slipped in after the window fired wins.
		if sess.deriver.Status() != st {
			return
		}
		s.status = st
		if s.active != nil {
			s.active.Status = st
		}
		s.logger.Info(s.session.ctx, "status_changed", "Unit status changed", map[string]any{"status": st})
	}
}

// Snapshot copies the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	st := State{
		Samples: append([]geo.Sample{}, s.samples...),
		Status:  s.status,
	}
	if s.session != nil {
		st.SessionID = s.session.id
	}
	if s.active != nil {
		u := *s.active
		st.Unit = &u
	}
	if s.notice != nil {
		n := *s.notice
		st.Notification = &n
	}
	s.mu.Unlock()

	st.Polyline = s.animator.Polyline()
	if len(st.Polyline) > 0 {
		pos := s.animator.Position()
		st.Position = &pos
	} else {
		st.Polyline = []geo.Coordinate{}
	}
	st.Animating = s.animator.Animating()
	return st
}

// Samples returns the delivered samples in arrival order.
func (s *Store) Samples() []geo.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]geo.Sample(nil), s.samples...)
}

// ActiveUnit returns the shadow copy of the tracked unit.
func (s *Store) ActiveUnit() (unit.Unit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return unit.Unit{}, false
	}
	return *s.active, true
}

// Status is the derived motion status of the active unit.
func (s *Store) Status() unit.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done is closed when the live session's feed stops emitting. It is nil when
// no session is live.
func (s *Store) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return s.session.scheduler.Done()
}

// LiveUnitID returns the id of the unit whose feed is live.
func (s *Store) LiveUnitID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return "", false
	}
	return s.session.unit.ID, true
}
