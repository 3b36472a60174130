package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrClosed = errors.New("telemetry: channel is closed")

// Envelope is what listeners receive. Payload holds the published value as
// JSON; every listener gets its own copy of the bytes.
type Envelope struct {
	Event       string          `json:"event"`
	Seq         uint64          `json:"seq"`
	PublishedAt time.Time       `json:"published_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("telemetry: decode %s payload: %w", e.Event, err)
	}
	return nil
}

// Listener handles one delivered envelope.
type Listener func(Envelope)

// Subscription identifies a registered listener so it can be removed.
type Subscription struct {
	id    uint64
	event string
}

// Event returns the event name the subscription listens to.
func (s Subscription) Event() string { return s.event }

// Valid reports whether the subscription refers to a registration.
func (s Subscription) Valid() bool { return s.id != 0 }

type entry struct {
	id       uint64
	listener Listener
}

// Channel is an in-process named-event pub/sub. Delivery is synchronous, in
// registration order, and serialized across publishers, so within one event
// name delivery order equals publish order. Listeners must not publish on the
// same channel from inside a callback.
type Channel struct {
	mu        sync.RWMutex
	listeners map[string][]entry
	nextID    uint64
	closed    bool

	dispatchMu sync.Mutex
	seq        uint64
	now        func() time.Time
}

// NewChannel returns an open channel.
func NewChannel() *Channel {
	return &Channel{
		listeners: make(map[string][]entry),
		now:       time.Now,
	}
}

// Subscribe registers l for event. Multiple listeners per event are allowed.
func (c *Channel) Subscribe(event string, l Listener) (Subscription, error) {
	if l == nil {
		return Subscription{}, errors.New("telemetry: nil listener")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Subscription{}, ErrClosed
	}
	c.nextID++
	c.listeners[event] = append(c.listeners[event], entry{id: c.nextID, listener: l})
	return Subscription{id: c.nextID, event: event}, nil
}

// Unsubscribe removes a listener. It reports whether anything was removed.
func (c *Channel) Unsubscribe(sub Subscription) bool {
	if !sub.Valid() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.listeners[sub.event]
	for i, e := range list {
		if e.id != sub.id {
			continue
		}
		next := make([]entry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(c.listeners, sub.event)
		} else {
			c.listeners[sub.event] = next
		}
		return true
	}
	return false
}

// Publish serializes payload and hands a fresh envelope to every listener of
// event. Publishing on a closed channel is a silent no-op.
func (c *Channel) Publish(event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telemetry: encode %s payload: %w", event, err)
	}

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil
	}
	targets := append([]entry(nil), c.listeners[event]...)
	c.mu.RUnlock()

	c.seq++
	env := Envelope{Event: event, Seq: c.seq, PublishedAt: c.now().UTC()}
	for _, t := range targets {
		env.Payload = append(json.RawMessage(nil), body...)
		t.listener(env)
	}
	return nil
}

// Close makes the channel inert and drops every listener. Idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.listeners = make(map[string][]entry)
}

// Closed reports whether Close was called.
func (c *Channel) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ListenerCount returns how many listeners are registered for event.
func (c *Channel) ListenerCount(event string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners[event])
}
