package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ is a durable FIFO of pending news item payloads. Items that fail
// processing are dead-lettered to "<queue>.failed".
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	queueName  string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

// Handler processes one queued payload. A non-nil error dead-letters it
// unless the consumer context was cancelled.
type Handler func(ctx context.Context, payload []byte) error

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		queueName:  cfg.QueueName,
		logger:     logger,
	}, nil
}

func deadLetterExchange(exchange string) string { return exchange + ".dlx" }

// FailedQueue returns the name of the dead-letter queue for queueName.
func FailedQueue(queueName string) string { return queueName + ".failed" }

func declareTopology(ch *amqp.Channel, cfg Config) error {
	dlx := deadLetterExchange(cfg.Exchange)

	for _, name := range []string{cfg.Exchange, dlx} {
		if err := ch.ExchangeDeclare(name, "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}

	failed, err := ch.QueueDeclare(FailedQueue(cfg.QueueName), true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare failed queue: %w", err)
	}
	if err := ch.QueueBind(failed.Name, cfg.RoutingKey, dlx, false, nil); err != nil {
		return fmt.Errorf("bind failed queue: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		amqp.Table{"x-dead-letter-exchange": dlx},
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// Enqueue publishes a raw item payload unchanged.
func (r *RabbitMQ) Enqueue(ctx context.Context, payload []byte) error {
	err := r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         payload,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	return nil
}

// Consume delivers queued payloads to handler one at a time until ctx is
// cancelled or the channel closes. An item whose handler fails after ctx is
// cancelled goes back to the queue instead of the failed queue.
func (r *RabbitMQ) Consume(ctx context.Context, handler Handler) error {
	if err := r.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := r.channel.ConsumeWithContext(ctx, r.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	r.logger.Info("consuming queue", "queue", r.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("delivery channel closed")
			}
			r.handle(ctx, d, handler)
		}
	}
}

func (r *RabbitMQ) handle(ctx context.Context, d amqp.Delivery, handler Handler) {
	if err := handler(ctx, d.Body); err != nil {
		if ctx.Err() != nil {
			// Interrupted by shutdown, not a bad item.
			r.logger.Info("consumer stopping, requeueing item", "delivery_tag", d.DeliveryTag, "error", err)
			if nackErr := d.Nack(false, true); nackErr != nil {
				r.logger.Error("requeue failed", "error", nackErr)
			}
			return
		}
		r.logger.Error("item failed, moving to failed queue",
			"delivery_tag", d.DeliveryTag,
			"redelivered", d.Redelivered,
			"error", err,
		)
		if nackErr := d.Nack(false, false); nackErr != nil {
			r.logger.Error("nack failed", "error", nackErr)
		}
		return
	}

	if err := d.Ack(false); err != nil {
		r.logger.Error("ack failed", "error", err)
	}
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
