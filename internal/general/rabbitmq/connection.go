package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/general/config"
)

const (
	dialTimeout = 30 * time.Second
	heartbeat   = 10 * time.Second
	maxBackoff  = 30 * time.Second
)

// Client holds one publishing channel with confirms enabled and reconnects
// in the background whenever the connection or channel drops.
type Client struct {
	url      string
	exchange string
	logger   *log.Logger
	logCtx   context.Context

	mu       sync.RWMutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	confirms chan amqp.Confirmation

	// pubMu keeps one publish and its confirm paired at a time
	pubMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
	reconnect chan struct{}
}

// ConnectRabbitMQ dials once, declares the telemetry topology and starts the
// reconnect watcher.
func ConnectRabbitMQ(ctx context.Context, cfg config.RabbitMQ, logger *log.Logger) (*Client, error) {
	client := &Client{
		url:       fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Password, cfg.Host, cfg.Port),
		exchange:  cfg.Exchange,
		logger:    logger,
		logCtx:    context.WithoutCancel(ctx),
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}

	if err := client.connect(); err != nil {
		return nil, err
	}
	go client.watch()
	return client, nil
}

// Exchange is the fanout exchange telemetry is exported to.
func (client *Client) Exchange() string { return client.exchange }

// Close stops the watcher and releases the connection. Idempotent.
func (client *Client) Close() {
	client.closeOnce.Do(func() {
		close(client.closed)

		client.mu.Lock()
		defer client.mu.Unlock()
		if client.ch != nil {
			_ = client.ch.Close()
			client.ch = nil
		}
		if client.conn != nil {
			_ = client.conn.Close()
			client.conn = nil
		}
	})
}

func (client *Client) connect() (err error) {
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_open_channel_failed", "Failed to open RabbitMQ channel", err, nil)
		return fmt.Errorf("rabbitmq: failed to open channel: %w", err)
	}
	if err = declareTopology(ch, client.exchange); err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_declare_topology_failed", "Failed to declare RabbitMQ topology", err, nil)
		return fmt.Errorf("rabbitmq: failed to declare topology: %w", err)
	}
	if err = ch.Confirm(false); err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_enable_confirms_failed", "Failed to enable publisher confirms", err, nil)
		return fmt.Errorf("rabbitmq: failed to enable confirms: %w", err)
	}

	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	go client.logReturns(ch.NotifyReturn(make(chan amqp.Return, 1)))

	client.mu.Lock()
	if client.ch != nil && !client.ch.IsClosed() {
		_ = client.ch.Close()
	}
	client.conn, client.ch, client.confirms = conn, ch, confirms
	client.mu.Unlock()

	go client.awaitClose(conn, ch)

	client.logger.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established successfully",
		map[string]any{"exchange": client.exchange})
	return nil
}

func (client *Client) logReturns(returns <-chan amqp.Return) {
	for r := range returns {
		client.logger.Error(client.logCtx, "rabbitmq_returned", "Message was returned (unroutable)",
			fmt.Errorf("code=%d text=%s", r.ReplyCode, r.ReplyText),
			map[string]any{"exchange": r.Exchange, "size": len(r.Body)},
		)
	}
}

// awaitClose signals the watcher once either the connection or the channel
// goes away.
func (client *Client) awaitClose(conn *amqp.Connection, ch *amqp.Channel) {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-client.closed:
		return
	case <-connClosed:
	case <-chClosed:
	}
	select {
	case client.reconnect <- struct{}{}:
	default:
	}
}

// watch reconnects with capped exponential backoff until Close.
func (client *Client) watch() {
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
		}

		backoff := time.Second
		for {
			err := client.connect()
			if err == nil {
				client.logger.Info(client.logCtx, "rabbitmq_reconnected", "Reconnected to RabbitMQ and re-ensured topology", nil)
				break
			}
			client.logger.Error(client.logCtx, "retry_attempted", "Failed to reconnect to RabbitMQ", err,
				map[string]any{"backoff_ms": backoff.Milliseconds()})

			select {
			case <-client.closed:
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}
}

// PublishMessage publishes a persistent JSON message and waits for the
// broker's confirm.
func (client *Client) PublishMessage(ctx context.Context, exchange, routingKey string, body []byte) error {
	client.mu.RLock()
	conn, ch, confirms := client.conn, client.ch, client.confirms
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	client.pubMu.Lock()
	defer client.pubMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := ch.PublishWithContext(ctx, exchange, routingKey, true, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return err
	}

	select {
	case c, ok := <-confirms:
		if !ok {
			return errors.New("rabbitmq: confirm stream closed")
		}
		if !c.Ack {
			return fmt.Errorf("rabbitmq: publish not acknowledged")
		}
		return nil
	case <-ctx.Done():
		// keep the confirm stream aligned with publishes
		select {
		case <-confirms:
		case <-time.After(2 * time.Second):
		}
		return ctx.Err()
	}
}
