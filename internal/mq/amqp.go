package mq

import (
	"context"
	"fmt"
	"sync"

	"astock-signal-trader-go/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AmqpBus is the RabbitMQ-backed Bus. The connection is dialed lazily and
// re-dialed after it drops; each Publish/Consume opens its own channel, which
// is the unit amqp091 allows concurrent use of.
type AmqpBus struct {
	cfg    *config.MQ
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

var _ Bus = (*AmqpBus)(nil)

// NewAmqpBus creates a bus for the configured broker URL. No connection is
// made until the first use.
func NewAmqpBus(cfg *config.MQ, logger *zap.Logger) *AmqpBus {
	return &AmqpBus{
		cfg:    cfg,
		logger: logger.Named("mq"),
	}
}

// channel returns a fresh channel on a live connection, dialing if needed.
func (b *AmqpBus) channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		conn, err := amqp.Dial(b.cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("dial mq: %w", err)
		}
		b.logger.Info("Connected to message broker")
		b.conn = conn
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open mq channel: %w", err)
	}
	return ch, nil
}

// Publish sends one message and closes the channel it used.
func (b *AmqpBus) Publish(exchange, routingKey string, body []byte) error {
	ch, err := b.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	err = ch.PublishWithContext(context.Background(), exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	b.logger.Debug("Published message",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
		zap.Int("bytes", len(body)))
	return nil
}

// Consume blocks on the queue until ctx is cancelled or the handler fails.
// Deliveries are auto-acked: a handler failure means the payload is
// undeliverable, not that redelivery would help.
func (b *AmqpBus) Consume(ctx context.Context, queue string, handler func(body []byte) error) error {
	ch, err := b.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := ch.Consume(queue, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", queue, err)
	}

	b.logger.Info("Consuming queue", zap.String("queue", queue))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Consume loop cancelled", zap.String("queue", queue))
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for queue %s closed", queue)
			}
			if err := handler(d.Body); err != nil {
				return fmt.Errorf("handle message from %s: %w", queue, err)
			}
		}
	}
}

// Close tears down the underlying connection.
func (b *AmqpBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	return b.conn.Close()
}
