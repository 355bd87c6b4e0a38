//go:build integration

package queue

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) config(name string) Config {
	return Config{
		URL:        s.amqpURL,
		Exchange:   "exchange-" + name,
		RoutingKey: "key-" + name,
		QueueName:  "queue-" + name,
	}
}

func (s *RabbitMQIntegrationSuite) TestConnection() {
	q, err := NewRabbitMQ(s.config("conn"), s.logger)
	s.NoError(err)
	s.NotNil(q)
	s.NoError(q.Close())
}

func (s *RabbitMQIntegrationSuite) TestEnqueue_PayloadPassesThroughUnchanged() {
	cfg := s.config("enqueue")
	q, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer q.Close()

	payload := []byte(`{"id":"abc-1","title":"T","topics":["tech"]}`)
	s.NoError(q.Enqueue(s.ctx, payload))

	msg := s.getMessage(cfg.QueueName)
	s.Require().NotNil(msg)
	s.Equal(payload, msg.Body)
	s.Equal("application/json", msg.ContentType)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
}

func (s *RabbitMQIntegrationSuite) TestConsume_AcksSuccessAndDeadLettersFailure() {
	cfg := s.config("consume")
	q, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer q.Close()

	s.Require().NoError(q.Enqueue(s.ctx, []byte(`{"id":"bad"}`)))
	s.Require().NoError(q.Enqueue(s.ctx, []byte(`{"id":"good"}`)))

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	var seen []string
	done := make(chan struct{})
	go func() {
		_ = q.Consume(ctx, func(_ context.Context, payload []byte) error {
			seen = append(seen, string(payload))
			if len(seen) == 2 {
				close(done)
			}
			if string(payload) == `{"id":"bad"}` {
				return errors.New("boom")
			}
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		s.Fail("timeout waiting for deliveries")
	}
	cancel()

	s.Equal([]string{`{"id":"bad"}`, `{"id":"good"}`}, seen)

	failed := s.getMessage(FailedQueue(cfg.QueueName))
	s.Require().NotNil(failed)
	s.Equal(`{"id":"bad"}`, string(failed.Body))
}

func (s *RabbitMQIntegrationSuite) TestConsume_ShutdownRequeuesInFlightItem() {
	cfg := s.config("shutdown")
	q, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)

	payload := []byte(`{"id":"in-flight"}`)
	s.Require().NoError(q.Enqueue(s.ctx, payload))

	ctx, cancel := context.WithCancel(s.ctx)
	started := make(chan struct{})
	stopped := make(chan error, 1)
	go func() {
		stopped <- q.Consume(ctx, func(ctx context.Context, _ []byte) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		s.FailNow("timeout waiting for delivery")
	}
	cancel()

	select {
	case err := <-stopped:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(10 * time.Second):
		s.FailNow("consumer did not stop")
	}
	s.NoError(q.Close())

	msg := s.getMessage(cfg.QueueName)
	s.Require().NotNil(msg)
	s.Equal(payload, msg.Body)
	s.True(msg.Redelivered)
	s.Equal(0, s.queueDepth(FailedQueue(cfg.QueueName)))
}

func (s *RabbitMQIntegrationSuite) queueDepth(queueName string) int {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	info, err := ch.QueueDeclarePassive(queueName, true, false, false, false, nil)
	s.Require().NoError(err)
	return info.Messages
}

func (s *RabbitMQIntegrationSuite) getMessage(queueName string) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg, ok, err := ch.Get(queueName, true)
		s.Require().NoError(err)
		if ok {
			return &msg
		}
		time.Sleep(100 * time.Millisecond)
	}
	s.Fail("timeout waiting for message")
	return nil
}
