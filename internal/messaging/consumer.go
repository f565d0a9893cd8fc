package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DeliveryHandler processes one queue delivery. The return value decides
// the acknowledgement: true acks, false nacks without requeue (the
// message dead-letters).
type DeliveryHandler interface {
	HandleDelivery(ctx context.Context, msg amqp.Delivery) bool
}

// Consumer reads media generation tasks from a durable queue and hands
// them to a handler.
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	logger    *zap.Logger
	handler   DeliveryHandler
	queueName string
	dlx       string
	dlqKey    string
	prefetch  int
	stop      chan struct{}
}

// NewConsumer creates a consumer for the given queue.
func NewConsumer(conn *amqp.Connection, logger *zap.Logger, handler DeliveryHandler, queueName, dlx, dlqKey string, prefetch int) *Consumer {
	return &Consumer{
		conn:      conn,
		logger:    logger.Named("Consumer"),
		handler:   handler,
		queueName: queueName,
		dlx:       dlx,
		dlqKey:    dlqKey,
		prefetch:  prefetch,
		stop:      make(chan struct{}),
	}
}

// StartConsuming declares the queue topology and blocks processing
// deliveries until Stop is called or the channel closes.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer: failed to open channel: %w", err)
	}
	c.channel = ch

	if err := ch.ExchangeDeclare(c.dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("consumer: failed to declare DLX %q: %w", c.dlx, err)
	}
	dlqName := c.queueName + "_dlq"
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("consumer: failed to declare DLQ %q: %w", dlqName, err)
	}
	if err := ch.QueueBind(dlqName, c.dlqKey, c.dlx, false, nil); err != nil {
		return fmt.Errorf("consumer: failed to bind DLQ %q: %w", dlqName, err)
	}

	args := amqp.Table{
		"x-queue-mode":              "lazy",
		"x-dead-letter-exchange":    c.dlx,
		"x-dead-letter-routing-key": c.dlqKey,
	}
	if _, err := ch.QueueDeclare(c.queueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("consumer: failed to declare queue %q: %w", c.queueName, err)
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("consumer: failed to set QoS: %w", err)
	}

	deliveries, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consumer: failed to start consuming from %q: %w", c.queueName, err)
	}

	c.logger.Info("Consumer started", zap.String("queue", c.queueName), zap.Int("prefetch", c.prefetch))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer context cancelled")
			return nil
		case <-c.stop:
			c.logger.Info("Consumer stopped")
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Delivery channel closed")
				return nil
			}
			if c.handler.HandleDelivery(ctx, msg) {
				if err := msg.Ack(false); err != nil {
					c.logger.Error("Failed to ack delivery", zap.Error(err))
				}
			} else {
				if err := msg.Nack(false, false); err != nil {
					c.logger.Error("Failed to nack delivery", zap.Error(err))
				}
			}
		}
	}
}

// Stop ends the consume loop and closes the channel.
func (c *Consumer) Stop() {
	close(c.stop)
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("Failed to close consumer channel", zap.Error(err))
		}
	}
}
