package kafka

import (
	"context"
	"errors"
	"sort"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishCarriesKeyAndHeaders(t *testing.T) {
	writer := &fakeWriter{}
	p := &Producer{writer: writer}

	err := p.Publish(context.Background(), "boxoffice.orders", "order-1", []byte(`{"a":1}`), map[string]string{
		"event_type": "order_created",
		"event_id":   "abc",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if msg.Topic != "boxoffice.orders" || string(msg.Key) != "order-1" || string(msg.Value) != `{"a":1}` {
		t.Fatalf("unexpected message %+v", msg)
	}
	keys := []string{}
	for _, h := range msg.Headers {
		keys = append(keys, h.Key)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "event_id" || keys[1] != "event_type" {
		t.Fatalf("unexpected headers %v", keys)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("leader not available")
	p := &Producer{writer: &fakeWriter{err: boom}}
	err := p.Publish(context.Background(), "t", "k", nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestPublishRequiresTopic(t *testing.T) {
	p := &Producer{writer: &fakeWriter{}}
	if err := p.Publish(context.Background(), " ", "k", nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPingReportsUnreachableBrokers(t *testing.T) {
	p := &Producer{
		brokers: []string{"a:9092", "b:9092"},
		dial: func(context.Context, string, string) (*kafkago.Conn, error) {
			return nil, errors.New("connection refused")
		},
	}
	if err := p.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(context.Background(), config.KafkaConfig{Brokers: []string{" "}}, nil); err == nil {
		t.Fatalf("expected error")
	}
	p, err := NewProducer(context.Background(), config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
