package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"coaching_portal_backend/platform/config"
	"coaching_portal_backend/platform/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

const streamMaxLen = 100000

// Publisher hands a serialized pipeline event to the external notification system.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// NewPublisher picks the transport from configuration: AMQP when AMQP_URL is
// set, a Redis stream when REDIS_URL is set, otherwise log-only.
func NewPublisher(cfg config.NotificationConfig, log *logger.Logger) (Publisher, error) {
	if url := cfg.GetAMQPURL(); url != "" {
		return NewAMQPPublisher(url, cfg.GetAMQPExchange())
	}
	if url := cfg.GetRedisURL(); url != "" {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return NewStreamPublisher(redis.NewClient(opt), cfg.GetNotificationStream()), nil
	}
	log.Warn("no notification transport configured, pipeline events are only logged")
	return NewLogPublisher(log), nil
}

// AMQPPublisher publishes events to a durable topic exchange, routed by event name.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// StreamPublisher appends events to a capped Redis stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Values: map[string]interface{}{
			"event":   routingKey,
			"payload": string(body),
		},
	}).Err()
}

func (p *StreamPublisher) Close() error {
	return p.client.Close()
}

// LogPublisher writes events to the application log.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.log.WithContext(ctx).Info("pipeline_event",
		slog.String("event", routingKey),
		slog.String("payload", string(body)),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
