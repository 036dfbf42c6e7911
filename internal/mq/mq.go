package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/producthunt/apiserver/config"
)

const (
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
	BackendMemory   = "memory"

	// AttrEventType carries the event type so consumers can filter without decoding.
	AttrEventType = "event-type"
	// AttrContentType describes the payload encoding.
	AttrContentType = "content-type"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
	name    string
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend, name: fmt.Sprintf("%T", backend)}
}

// Open selects a backend from cfg. An empty backend disables the broker and
// returns a nil *MQ without error.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case BackendRabbitMQ:
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return &MQ{backend: client, name: BackendRabbitMQ}, nil
	case BackendPubSub:
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		return &MQ{backend: client, name: BackendPubSub}, nil
	case BackendMemory:
		return &MQ{backend: NewMemoryBackend(), name: BackendMemory}, nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Name reports which backend is in use.
func (m *MQ) Name() string {
	return m.name
}

// Publish sends a message to the named channel.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe consumes messages from the named channel.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
