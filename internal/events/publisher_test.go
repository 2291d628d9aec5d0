package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"revox-adapter/internal/webhook"

	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
)

var _ webhook.Publisher = LogPublisher{}
var _ webhook.Publisher = (*RedisPublisher)(nil)
var _ webhook.Publisher = (*AMQPPublisher)(nil)

func sampleEvent() webhook.Event {
	return webhook.Event{CallID: "c_1", Result: "human", Timestamp: "2024-05-01T12:00:00.000Z", WebhookURL: "https://a.example.com/hook"}
}

type fakeRedis struct {
	channel string
	message any
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.message = message
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisher_PublishesJSON(t *testing.T) {
	f := &fakeRedis{}
	p, err := NewRedisPublisher(f, "revox.calls")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if f.channel != "revox.calls" {
		t.Fatalf("unexpected channel %q", f.channel)
	}
	b, ok := f.message.([]byte)
	if !ok {
		t.Fatalf("expected []byte message, got %T", f.message)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["call_id"] != "c_1" || m["webhookUrl"] != "https://a.example.com/hook" {
		t.Fatalf("unexpected payload %v", m)
	}
}

func TestRedisPublisher_PropagatesError(t *testing.T) {
	p, _ := NewRedisPublisher(&fakeRedis{err: errors.New("connection refused")}, "c")
	if err := p.Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewRedisPublisher_RequiresChannel(t *testing.T) {
	if _, err := NewRedisPublisher(&fakeRedis{}, ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

type fakeChannel struct {
	exchange, key string
	msgs          []amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange, f.key = exchange, key
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisher_Publishes(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewAMQPPublisher(ch, "revox", "call.completed")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	now := time.Unix(1700000000, 0).UTC()
	p.now = func() time.Time { return now }

	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ch.exchange != "revox" || ch.key != "call.completed" {
		t.Fatalf("unexpected routing %q %q", ch.exchange, ch.key)
	}
	msg := ch.msgs[0]
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected message properties %+v", msg)
	}
	if msg.MessageId == "" || !msg.Timestamp.Equal(now) {
		t.Fatalf("expected message id and timestamp, got %q %v", msg.MessageId, msg.Timestamp)
	}

	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("expected channel closed, err=%v", err)
	}
}

func TestAMQPPublisher_CancelledContext(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := NewAMQPPublisher(ch, "revox", "k")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, sampleEvent()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(ch.msgs) != 0 {
		t.Fatalf("expected nothing published")
	}
}

func TestAMQPPublisher_PropagatesError(t *testing.T) {
	p, _ := NewAMQPPublisher(&fakeChannel{err: amqp.ErrClosed}, "revox", "k")
	if err := p.Publish(context.Background(), sampleEvent()); !errors.Is(err, amqp.ErrClosed) {
		t.Fatalf("expected amqp.ErrClosed, got %v", err)
	}
}

func TestLogPublisher_NeverFails(t *testing.T) {
	if err := (LogPublisher{}).Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
