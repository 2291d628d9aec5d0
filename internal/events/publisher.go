// Package events republishes normalized call-completion events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"revox-adapter/internal/webhook"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
)

// Sink names for EVENT_SINK.
const (
	SinkLog   = "log"
	SinkRedis = "redis"
	SinkAMQP  = "amqp"
)

var ErrNotConfigured = errors.New("events: publisher not configured")

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e webhook.Event) error {
	l := p.Logger
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "revox call completed",
		"call_order_id", e.CallOrderID,
		"call_id", e.CallID,
		"status", e.Status,
		"result", e.Result,
		"timestamp", e.Timestamp,
	)
	return nil
}

// redisPublisher is the subset of *redis.Client used here.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher publishes events as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	client  redisPublisher
	channel string
}

func NewRedisPublisher(client redisPublisher, channel string) (*RedisPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is nil", ErrNotConfigured)
	}
	if channel == "" {
		return nil, fmt.Errorf("%w: redis channel is required", ErrNotConfigured)
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, e webhook.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("events: redis publish: %w", err)
	}
	return nil
}

// amqpChannel is the subset of *amqp.Channel used here.
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events as persistent JSON messages to an exchange.
// amqp channels are not safe for concurrent publishing, so calls are serialized.
type AMQPPublisher struct {
	mu         sync.Mutex
	ch         amqpChannel
	conn       *amqp.Connection
	exchange   string
	routingKey string
	now        func() time.Time
}

// DialAMQP connects to the broker and opens a channel for publishing.
func DialAMQP(url, exchange, routingKey string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: amqp channel: %w", err)
	}
	p, err := NewAMQPPublisher(ch, exchange, routingKey)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func NewAMQPPublisher(ch amqpChannel, exchange, routingKey string) (*AMQPPublisher, error) {
	if ch == nil {
		return nil, fmt.Errorf("%w: amqp channel is nil", ErrNotConfigured)
	}
	if routingKey == "" && exchange == "" {
		return nil, fmt.Errorf("%w: amqp exchange or routing key is required", ErrNotConfigured)
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, routingKey: routingKey, now: time.Now}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e webhook.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    p.now().UTC(),
		Type:         "revox.call.completed",
		Body:         b,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Publish(p.exchange, p.routingKey, false, false, msg); err != nil {
		return fmt.Errorf("events: amqp publish: %w", err)
	}
	return nil
}

// Close releases the channel and, when dialed here, the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
