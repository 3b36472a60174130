package store

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-tracker/internal/domain/geo"
	"fleet-tracker/internal/domain/unit"
	"fleet-tracker/internal/general/contracts"
	"fleet-tracker/internal/general/telemetry"
	"fleet-tracker/internal/tracking/feed"
	"fleet-tracker/internal/tracking/path"
)

type centerCall struct {
	pos      geo.Coordinate
	zoom     float64
	duration time.Duration
}

type fakeSurface struct {
	mu      sync.Mutex
	centers []centerCall
}

func (f *fakeSurface) OnPositionUpdate(geo.Coordinate)   {}
func (f *fakeSurface) OnPolylineUpdate([]geo.Coordinate) {}

func (f *fakeSurface) RequestCenterOn(pos geo.Coordinate, zoom float64, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.centers = append(f.centers, centerCall{pos: pos, zoom: zoom, duration: d})
}

func (f *fakeSurface) calls() []centerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]centerCall(nil), f.centers...)
}

var (
	unitA = unit.Unit{ID: "1", Name: "John Deere 8R 410", Model: "8R Series", Status: unit.StatusAvailable,
		Location: geo.Coordinate{Lat: 40.7829, Lng: -73.9654}}
	unitB = unit.Unit{ID: "2", Name: "Case IH Steiger 620", Model: "Steiger Series", Status: unit.StatusAvailable,
		Location: geo.Coordinate{Lat: 40.7589, Lng: -73.9851}}
)

func newTestStore(t *testing.T, steps int) (*Store, *telemetry.Channel, clockwork.FakeClock, *fakeSurface) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	ch := telemetry.NewChannel()
	surface := &fakeSurface{}
	cfg := DefaultConfig()
	cfg.PathSteps = steps
	s := New(ch, WithClock(clock), WithSurface(surface), WithConfig(cfg))
	t.Cleanup(func() {
		s.Close(context.Background())
		ch.Close()
	})
	return s, ch, clock, surface
}

func near(a, b geo.Coordinate) bool {
	return math.Abs(a.Lat-b.Lat) < 0.01 && math.Abs(a.Lng-b.Lng) < 0.01
}

func TestStore_BeginTracking(t *testing.T) {
	s, ch, clock, surface := newTestStore(t, 4)
	ctx := context.Background()

	require.NoError(t, s.BeginTracking(ctx, unitA))

	st := s.Snapshot()
	require.NotNil(t, st.Unit)
	assert.Equal(t, unitA.ID, st.Unit.ID)
	assert.NotEmpty(t, st.SessionID)
	assert.Empty(t, st.Samples)
	assert.Equal(t, unit.StatusAvailable, st.Status)
	assert.Equal(t, []geo.Coordinate{unitA.Location}, st.Polyline)
	require.NotNil(t, st.Notification)
	assert.Equal(t, "Started tracking John Deere 8R 410", st.Notification.Message)
	assert.False(t, st.Notification.Error)
	assert.Equal(t, 1, ch.ListenerCount(contracts.EventGPSUpdate))

	centers := surface.calls()
	require.Len(t, centers, 1)
	assert.Equal(t, unitA.Location, centers[0].pos)
	assert.Equal(t, 18.0, centers[0].zoom)
	assert.Equal(t, DefaultFlyDuration, centers[0].duration)

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return len(s.Samples()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, unit.StatusMoving, s.Status())
	active, ok := s.ActiveUnit()
	require.True(t, ok)
	assert.Equal(t, unit.StatusMoving, active.Status)
	assert.Equal(t, unit.StatusAvailable, unitA.Status, "roster entry is never mutated")
}

func TestStore_DeliversWholePathInOrder(t *testing.T) {
	s, _, clock, _ := newTestStore(t, 4)
	require.NoError(t, s.BeginTracking(context.Background(), unitA))

	assert.Eventually(t, func() bool {
		clock.Advance(500 * time.Millisecond)
		return len(s.Samples()) == 5
	}, 5*time.Second, time.Millisecond)

	expected, err := path.Generate(unitA.Location, path.WithSteps(4))
	require.NoError(t, err)
	got := s.Samples()
	for i := range expected {
		assert.Equal(t, expected[i].Coordinate, got[i].Coordinate, "sample %d", i)
	}

	// the feed terminates and the debounce settles on stopped
	assert.Eventually(t, func() bool {
		clock.Advance(500 * time.Millisecond)
		return s.Status() == unit.StatusStopped
	}, 5*time.Second, time.Millisecond)
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("feed did not terminate")
	}
	assert.Len(t, s.Samples(), 5)
}

func TestStore_AtMostOneSession(t *testing.T) {
	s, ch, clock, _ := newTestStore(t, 10)
	ctx := context.Background()

	require.NoError(t, s.BeginTracking(ctx, unitA))
	first := s.session
	require.NoError(t, s.BeginTracking(ctx, unitB))

	assert.False(t, first.scheduler.Running())
	assert.True(t, s.session.scheduler.Running())
	assert.Equal(t, 1, ch.ListenerCount(contracts.EventGPSUpdate))
	assert.Equal(t, unitB.ID, s.session.unit.ID)

	assert.Eventually(t, func() bool {
		clock.Advance(time.Second)
		return len(s.Samples()) >= 3
	}, 5*time.Second, time.Millisecond)

	for _, sm := range s.Samples() {
		assert.True(t, near(sm.Coordinate, unitB.Location), "sample %v belongs to unit B", sm.Coordinate)
	}
	assert.Zero(t, first.scheduler.Cursor())
}

func TestStore_StaleCallbacksAreIgnored(t *testing.T) {
	s, ch, _, _ := newTestStore(t, 10)
	ctx := context.Background()

	require.NoError(t, s.BeginTracking(ctx, unitA))
	stale := s.session
	require.NoError(t, s.BeginTracking(ctx, unitB))

	t.Run("listener of a torn down session", func(t *testing.T) {
		body, err := json.Marshal(contracts.GPSUpdate{Sample: stale.path[0], UnitID: unitA.ID, SessionID: stale.id})
		require.NoError(t, err)
		s.onUpdate(stale)(telemetry.Envelope{Event: contracts.EventGPSUpdate, Payload: body})
		assert.Empty(t, s.Samples())
	})

	t.Run("update for another unit", func(t *testing.T) {
		require.NoError(t, ch.Publish(contracts.EventGPSUpdate, contracts.GPSUpdate{Sample: stale.path[0], UnitID: unitA.ID}))
		assert.Empty(t, s.Samples())
	})

	t.Run("status change of a torn down session", func(t *testing.T) {
		s.onStatus(stale)(unit.StatusStopped)
		assert.Equal(t, unit.StatusAvailable, s.Status())
	})

	t.Run("malformed payload", func(t *testing.T) {
		s.onUpdate(s.session)(telemetry.Envelope{Event: contracts.EventGPSUpdate, Payload: json.RawMessage(`{"sample":`)})
		assert.Empty(t, s.Samples())
	})
}

func TestStore_RetrackDropsEarlierSessionUpdates(t *testing.T) {
	s, ch, clock, _ := newTestStore(t, 10)
	ctx := context.Background()

	require.NoError(t, s.BeginTracking(ctx, unitA))
	stale := s.session
	clock.Advance(3 * time.Second)
	s.EndTracking(ctx)
	require.NoError(t, s.BeginTracking(ctx, unitA))
	fresh := s.session
	require.NotEqual(t, stale.id, fresh.id)

	t.Run("feed of the earlier session", func(t *testing.T) {
		oldClock := clockwork.NewFakeClock()
		old := feed.New(stale.path, unitA.ID, ch, feed.WithClock(oldClock), feed.WithSession(stale.id))
		require.NoError(t, old.Start())
		t.Cleanup(old.Stop)

		oldClock.Advance(time.Second)
		assert.Eventually(t, func() bool { return old.Cursor() == 1 }, time.Second, time.Millisecond)
		assert.Empty(t, s.Samples())
	})

	t.Run("publish stamped with the earlier session", func(t *testing.T) {
		require.NoError(t, ch.Publish(contracts.EventGPSUpdate, contracts.GPSUpdate{
			Sample:    stale.path[7],
			UnitID:    unitA.ID,
			Seq:       7,
			SessionID: stale.id,
		}))
		assert.Empty(t, s.Samples())
	})

	t.Run("own feed still delivers", func(t *testing.T) {
		clock.Advance(time.Second)
		assert.Eventually(t, func() bool { return len(s.Samples()) >= 1 }, time.Second, time.Millisecond)
		first := s.Samples()[0]
		assert.True(t, fresh.path[0].Timestamp.Equal(first.Timestamp))
		assert.False(t, stale.path[7].Timestamp.Equal(first.Timestamp))
	})
}

func TestStore_InFlightTickOfReplacedSession(t *testing.T) {
	s, ch, clock, _ := newTestStore(t, 10)
	ctx := context.Background()

	// registered ahead of the store so it holds A's first publish mid-dispatch
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	_, err := ch.Subscribe(contracts.EventGPSUpdate, func(telemetry.Envelope) {
		once.Do(func() {
			close(entered)
			<-release
		})
	})
	require.NoError(t, err)

	require.NoError(t, s.BeginTracking(ctx, unitA))
	first := s.session
	clock.Advance(time.Second)
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first tick never reached the channel")
	}

	require.NoError(t, s.BeginTracking(ctx, unitB))
	close(release)
	select {
	case <-first.scheduler.Done():
	case <-time.After(time.Second):
		t.Fatal("replaced feed did not exit")
	}

	assert.Empty(t, s.Samples())
	assert.Equal(t, unit.StatusAvailable, s.Status())
	assert.Equal(t, 2, ch.ListenerCount(contracts.EventGPSUpdate))

	assert.Eventually(t, func() bool {
		clock.Advance(time.Second)
		return len(s.Samples()) >= 2
	}, 5*time.Second, time.Millisecond)
	for _, sm := range s.Samples() {
		assert.True(t, near(sm.Coordinate, unitB.Location), "sample %v belongs to unit B", sm.Coordinate)
	}
}

func TestStore_LateStoppedCallbackYieldsToNewerSample(t *testing.T) {
	s, _, clock, _ := newTestStore(t, 10)
	require.NoError(t, s.BeginTracking(context.Background(), unitA))

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return len(s.Samples()) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, unit.StatusMoving, s.Status())

	// the window fired but a sample was observed before the callback ran
	s.onStatus(s.session)(unit.StatusStopped)

	assert.Equal(t, unit.StatusMoving, s.Status())
	active, ok := s.ActiveUnit()
	require.True(t, ok)
	assert.Equal(t, unit.StatusMoving, active.Status)
}

func TestStore_GenerationFailure(t *testing.T) {
	s, ch, _, _ := newTestStore(t, 10)
	ctx := context.Background()
	require.NoError(t, s.BeginTracking(ctx, unitA))

	broken := unitB
	broken.Location = geo.Coordinate{Lat: math.NaN(), Lng: 10}
	err := s.BeginTracking(ctx, broken)

	require.ErrorIs(t, err, path.ErrInvalidStart)
	active, ok := s.ActiveUnit()
	require.True(t, ok)
	assert.Equal(t, unitB.ID, active.ID)
	assert.Empty(t, s.Samples())
	assert.Equal(t, 0, ch.ListenerCount(contracts.EventGPSUpdate))
	assert.Nil(t, s.Done())

	n, ok := s.Notification()
	require.True(t, ok)
	assert.Equal(t, "Error requesting tractor", n.Message)
	assert.True(t, n.Error)
	assert.Empty(t, s.Snapshot().Polyline)
}

func TestStore_Notification(t *testing.T) {
	t.Run("self dismisses", func(t *testing.T) {
		s, _, clock, _ := newTestStore(t, 10)
		require.NoError(t, s.BeginTracking(context.Background(), unitA))

		clock.Advance(2900 * time.Millisecond)
		time.Sleep(10 * time.Millisecond)
		_, ok := s.Notification()
		assert.True(t, ok)

		clock.Advance(200 * time.Millisecond)
		assert.Eventually(t, func() bool {
			_, ok := s.Notification()
			return !ok
		}, time.Second, time.Millisecond)
	})

	t.Run("explicit clear wins", func(t *testing.T) {
		s, _, clock, _ := newTestStore(t, 10)
		require.NoError(t, s.BeginTracking(context.Background(), unitA))

		assert.True(t, s.ClearNotification())
		assert.False(t, s.ClearNotification())
		clock.Advance(5 * time.Second)
		_, ok := s.Notification()
		assert.False(t, ok)
	})

	t.Run("newer notice outlives older timer", func(t *testing.T) {
		s, _, clock, _ := newTestStore(t, 10)
		ctx := context.Background()
		require.NoError(t, s.BeginTracking(ctx, unitA))
		clock.Advance(2 * time.Second)
		require.NoError(t, s.BeginTracking(ctx, unitB))

		clock.Advance(1500 * time.Millisecond)
		time.Sleep(10 * time.Millisecond)
		n, ok := s.Notification()
		require.True(t, ok)
		assert.Equal(t, "Started tracking Case IH Steiger 620", n.Message)
	})
}

func TestStore_EndTrackingAndClose(t *testing.T) {
	s, ch, _, _ := newTestStore(t, 10)
	ctx := context.Background()
	require.NoError(t, s.BeginTracking(ctx, unitA))

	s.EndTracking(ctx)
	s.EndTracking(ctx)

	_, ok := s.ActiveUnit()
	assert.False(t, ok)
	assert.Equal(t, 0, ch.ListenerCount(contracts.EventGPSUpdate))
	st := s.Snapshot()
	assert.Nil(t, st.Position)
	assert.Empty(t, st.Polyline)
	assert.Empty(t, st.SessionID)

	s.Close(ctx)
	assert.ErrorIs(t, s.BeginTracking(ctx, unitA), ErrClosed)
}
