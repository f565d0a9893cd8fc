package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TaskPublisher enqueues media generation tasks for the worker.
type TaskPublisher interface {
	PublishMediaTask(ctx context.Context, payload MediaTaskPayload) error
}

// Notifier publishes user-visible job updates. Fire-and-forget: callers
// log publish failures but never fail the job over them.
type Notifier interface {
	Notify(ctx context.Context, payload NotificationPayload) error
}

// rabbitMQPublisher implements TaskPublisher and Notifier over one
// channel and queue. Assumes the channel stays open for its lifetime.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
}

// NewRabbitMQTaskPublisher opens a channel and declares the durable task
// queue with its dead-letter exchange. Queue parameters must match the
// worker's declaration exactly.
func NewRabbitMQTaskPublisher(conn *amqp.Connection, queueName, dlx, dlqKey string) (TaskPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("task publisher: failed to open channel: %w", err)
	}
	args := amqp.Table{
		"x-queue-mode":              "lazy",
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": dlqKey,
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, args); err != nil {
		ch.Close()
		return nil, fmt.Errorf("task publisher: failed to declare queue %q: %w", queueName, err)
	}
	return &rabbitMQPublisher{channel: ch, queueName: queueName}, nil
}

// NewRabbitMQNotifier opens a channel and declares the durable
// notification queue.
func NewRabbitMQNotifier(conn *amqp.Connection, queueName string) (Notifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("notifier: failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("notifier: failed to declare queue %q: %w", queueName, err)
	}
	return &rabbitMQPublisher{channel: ch, queueName: queueName}, nil
}

func (p *rabbitMQPublisher) PublishMediaTask(ctx context.Context, payload MediaTaskPayload) error {
	return p.publish(ctx, payload, payload.TaskID)
}

func (p *rabbitMQPublisher) Notify(ctx context.Context, payload NotificationPayload) error {
	return p.publish(ctx, payload, payload.TaskID)
}

func (p *rabbitMQPublisher) publish(ctx context.Context, payload any, correlationID string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for queue %q: %w", p.queueName, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: correlationID,
			Timestamp:     time.Now().UTC(),
			Body:          body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish to queue %q: %w", p.queueName, err)
	}
	return nil
}
