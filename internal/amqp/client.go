// Package amqp connects the bot to RabbitMQ: inbound chat messages, outbound
// replies and ledger events share one durable direct exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"warung/internal/channel"
	"warung/internal/core"
	applog "warung/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// Config names the exchange and the routes the client uses.
type Config struct {
	URL          string
	Exchange     string
	InboundQueue string
	OutboundKey  string
	EventsQueue  string
}

type Client struct {
	url          string
	exchangeName string
	inboundQueue string
	outboundKey  string
	eventsQueue  string
	logger       *applog.Logger

	mu        sync.Mutex
	conn      *amqp091.Connection
	publishCh *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time
}

// NewClient dials the broker and declares the exchange and queues.
func NewClient(cfg Config, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	c := &Client{
		url:          cfg.URL,
		exchangeName: cfg.Exchange,
		inboundQueue: cfg.InboundQueue,
		outboundKey:  cfg.OutboundKey,
		eventsQueue:  cfg.EventsQueue,
		logger:       logger.WithComponent(applog.ComponentAMQP),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(ch); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.conn = conn
	c.publishCh = ch
	return nil
}

func (c *Client) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Each queue is bound with its own name as routing key.
	for _, queue := range []string{c.inboundQueue, c.outboundKey, c.eventsQueue} {
		if queue == "" {
			continue
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// ensureConnected re-dials when the connection was lost.
func (c *Client) ensureConnected() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.publishCh != nil && !c.publishCh.IsClosed() {
		return c.publishCh, nil
	}
	c.closeLocked()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	c.logger.Info("Reconnected to AMQP broker", "exchange", c.exchangeName)
	return c.publishCh, nil
}

// SendText publishes a reply for the chat gateway.
func (c *Client) SendText(ctx context.Context, conversationID, text string) error {
	body, err := NewOutboundMessage(conversationID, text).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}
	if err := c.publish(ctx, c.outboundKey, body); err != nil {
		return fmt.Errorf("publish reply: %w", err)
	}
	return nil
}

// PublishTransactionEvent publishes a ledger write for the sync worker.
func (c *Client) PublishTransactionEvent(ctx context.Context, ev core.TransactionEvent) error {
	msg := NewTransactionEventMessage(ev)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := c.publish(ctx, c.eventsQueue, body); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	c.logger.DebugContext(ctx, "Published transaction event",
		applog.FieldEvent, msg.Type,
		applog.FieldTransaction, msg.Transaction.ID,
		applog.FieldQueue, c.eventsQueue)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, refusing to publish to %s", routingKey)
	}

	ch, err := c.ensureConnected()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return err
	}

	c.recordSuccess()
	return nil
}

// ConsumeInbound feeds chat messages to handler until ctx is done. Every
// processed delivery is acked, even when handler fails, so a write command is
// never applied twice.
func (c *Client) ConsumeInbound(ctx context.Context, handler channel.Handler) error {
	return c.consume(ctx, c.inboundQueue, func(d amqp091.Delivery) {
		c.handleInbound(ctx, d, handler)
	})
}

func (c *Client) handleInbound(ctx context.Context, d amqp091.Delivery, handler channel.Handler) {
	env, err := DecodeInbound(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Dropping malformed inbound message", applog.FieldError, err)
		d.Nack(false, false)
		return
	}

	msg, ok := env.Normalize()
	if !ok {
		d.Ack(false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle inbound message",
			applog.FieldConversation, msg.ConversationID,
			applog.FieldMessageID, msg.ID,
			applog.FieldError, err)
	}
	d.Ack(false)
}

// ConsumeEvents feeds ledger events to handler until ctx is done. Failed
// events are requeued.
func (c *Client) ConsumeEvents(ctx context.Context, handler func(context.Context, core.TransactionEvent) error) error {
	return c.consume(ctx, c.eventsQueue, func(d amqp091.Delivery) {
		c.handleEvent(ctx, d, handler)
	})
}

func (c *Client) handleEvent(ctx context.Context, d amqp091.Delivery, handler func(context.Context, core.TransactionEvent) error) {
	msg, err := TransactionEventMessageFromJSON(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Dropping malformed event", applog.FieldError, err)
		d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg.Event()); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle event",
			applog.FieldEvent, msg.Type,
			applog.FieldTransaction, msg.Transaction.ID,
			applog.FieldError, err)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

// consume runs handle for each delivery on queue, reconnecting with backoff
// when the broker goes away.
func (c *Client) consume(ctx context.Context, queue string, handle func(amqp091.Delivery)) error {
	attempt := 0
	for {
		delivered, err := c.consumeOnce(ctx, queue, handle)
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption", applog.FieldQueue, queue, "reason", ctx.Err())
			return ctx.Err()
		}
		if delivered {
			attempt = 0
		}

		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "Consumer interrupted, retrying",
			applog.FieldQueue, queue,
			applog.FieldError, err,
			"retry_in", wait)
		attempt++

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, queue string, handle func(amqp091.Delivery)) (bool, error) {
	if _, err := c.ensureConnected(); err != nil {
		return false, err
	}

	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return false, errors.New("connection closed")
	}
	ch, err := c.conn.Channel()
	c.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	// One unacked message at a time keeps per-conversation order.
	if err := ch.Qos(1, 0, false); err != nil {
		return false, fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return false, fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming", applog.FieldQueue, queue)

	delivered := false
	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return delivered, errors.New("message channel closed")
			}
			delivered = true
			handle(d)
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()

	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.logger.Warn("AMQP circuit breaker opened", "failures", atomic.LoadInt64(&c.failureCount))
		}
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.publishCh != nil {
		c.publishCh.Close()
		c.publishCh = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
