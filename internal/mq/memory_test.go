package mq

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/producthunt/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSelectsBackend(t *testing.T) {
	m, err := Open(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = Open(context.Background(), config.MQConfig{Backend: "memory"})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, BackendMemory, m.Name())
	require.NoError(t, m.Close())

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)
}

func TestMemoryBackendDelivers(t *testing.T) {
	m := New(NewMemoryBackend())
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := m.Publish(ctx, "events", []byte(`{"a":1}`), map[string]string{AttrEventType: "product.voted"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	received := make(chan Message, 1)
	go func() {
		_ = m.Subscribe(ctx, "events", func(_ context.Context, msg Message) error {
			received <- msg
			return nil
		})
	}()

	select {
	case msg := <-received:
		assert.Equal(t, id, msg.ID)
		assert.JSONEq(t, `{"a":1}`, string(msg.Data))
		assert.Equal(t, "product.voted", msg.Attributes[AttrEventType])
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
}

func TestMemoryBackendRequeuesOnError(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := backend.Publish(ctx, "events", []byte("x"), nil)
	require.NoError(t, err)

	var attempts int32
	err = backend.Subscribe(ctx, "events", func(context.Context, Message) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestMemoryBackendRejectsAfterClose(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Close())
	require.NoError(t, backend.Close())

	_, err := backend.Publish(context.Background(), "events", nil, nil)
	assert.Error(t, err)
	_, err = backend.Publish(context.Background(), "", nil, nil)
	assert.Error(t, err)
}
