package mq

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

// MemoryBackend delivers messages in process. Each channel is a buffered queue
// shared by its subscribers, so every message is handled by exactly one of them.
type MemoryBackend struct {
	mu     sync.Mutex
	queues map[string]chan Message
	seq    uint64
	closed bool
	done   chan struct{}
}

const memoryQueueSize = 256

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		queues: make(map[string]chan Message),
		done:   make(chan struct{}),
	}
}

func (m *MemoryBackend) queue(channel string) (chan Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("memory backend closed")
	}
	q, ok := m.queues[channel]
	if !ok {
		q = make(chan Message, memoryQueueSize)
		m.queues[channel] = q
	}
	return q, nil
}

// Publish enqueues a message, blocking while the queue is full.
func (m *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}
	q, err := m.queue(channel)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.seq++
	id := strconv.FormatUint(m.seq, 10)
	m.mu.Unlock()

	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	msg := Message{ID: id, Data: append([]byte(nil), data...), Attributes: copied}

	select {
	case q <- msg:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-m.done:
		return "", errors.New("memory backend closed")
	}
}

// Subscribe handles messages until ctx is cancelled. Failed messages are requeued.
func (m *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}
	q, err := m.queue(channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return nil
		case msg := <-q:
			if err := handler(ctx, msg); err != nil {
				select {
				case q <- msg:
				default:
				}
			}
		}
	}
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}
