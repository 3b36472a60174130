package rabbitmq

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/general/contracts"
	"fleet-tracker/internal/general/telemetry"
)

const defaultMirrorBuffer = 256

// Publisher is satisfied by *Client.
type Publisher interface {
	PublishMessage(ctx context.Context, exchange, routingKey string, body []byte) error
}

// Mirror forwards every gps_update seen on a telemetry channel to the
// fanout exchange. Listener calls never wait on the broker: envelopes are
// queued and a single worker publishes them in order, dropping when the
// queue is full.
type Mirror struct {
	pub      Publisher
	exchange string
	logger   *log.Logger
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan telemetry.Envelope
	source *telemetry.Channel
	sub    telemetry.Subscription
	done   chan struct{}

	sent    atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewMirror(pub Publisher, exchange string, logger *log.Logger) *Mirror {
	if exchange == "" {
		exchange = contracts.ExchangeTelemetryFanout
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Mirror{
		pub:      pub,
		exchange: exchange,
		logger:   logger,
		now:      time.Now,
		queue:    make(chan telemetry.Envelope, defaultMirrorBuffer),
		done:     make(chan struct{}),
	}
}

// Attach subscribes to gps_update on ch and starts the publish worker.
func (m *Mirror) Attach(ctx context.Context, ch *telemetry.Channel) error {
	sub, err := ch.Subscribe(contracts.EventGPSUpdate, m.enqueue)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.source, m.sub = ch, sub
	m.mu.Unlock()

	go m.run(context.WithoutCancel(ctx))
	return nil
}

// Close detaches from the channel and waits for queued envelopes to drain.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.source != nil {
		m.source.Unsubscribe(m.sub)
	}
	attached := m.source != nil
	close(m.queue)
	m.mu.Unlock()

	if attached {
		<-m.done
	}
}

// Stats returns sent, dropped and failed counters.
func (m *Mirror) Stats() (sent, dropped, failed uint64) {
	return m.sent.Load(), m.dropped.Load(), m.failed.Load()
}

func (m *Mirror) enqueue(env telemetry.Envelope) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- env:
	default:
		m.dropped.Add(1)
	}
}

func (m *Mirror) run(ctx context.Context) {
	defer close(m.done)
	for env := range m.queue {
		m.forward(ctx, env)
	}
}

func (m *Mirror) forward(ctx context.Context, env telemetry.Envelope) {
	var update contracts.GPSUpdate
	if err := env.Decode(&update); err != nil {
		m.failed.Add(1)
		m.logger.Warn(ctx, "telemetry_export_dropped", "Dropped malformed gps_update", map[string]any{"seq": env.Seq})
		return
	}

	body, err := json.Marshal(contracts.TelemetryExport{
		GPSUpdate:  update,
		ChannelSeq: env.Seq,
		Envelope: contracts.Envelope{
			Producer: contracts.ProducerSimulator,
			SentAt:   m.now().UTC(),
		},
	})
	if err != nil {
		m.failed.Add(1)
		m.logger.Error(ctx, "telemetry_export_encode_failed", "Failed to encode telemetry export", err, nil)
		return
	}

	if err := m.pub.PublishMessage(ctx, m.exchange, "", body); err != nil {
		m.failed.Add(1)
		m.logger.Error(ctx, "telemetry_export_failed", "Failed to publish telemetry export", err, map[string]any{
			"exchange": m.exchange,
			"unit_id":  update.UnitID,
			"seq":      update.Seq,
		})
		return
	}
	m.sent.Add(1)
}
