package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/producthunt/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageKey(t *testing.T) {
	key, err := ImageKey("abc", "image/PNG; charset=binary")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "products/abc/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	other, err := ImageKey("abc", "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = ImageKey("abc", "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestURL(t *testing.T) {
	s := NewStorage(NewMemoryStorage("images"), "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/products/a/b.png", s.URL("products/a/b.png"))

	s = NewStorage(NewMemoryStorage("images"), "")
	assert.Equal(t, "/images/products/a%20b.png", s.URL("products/a b.png"))
}

func TestOpenMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.ObjectStorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(ctx, config.ObjectStorageConfig{Backend: "memory"})
	require.NoError(t, err)
	require.NotNil(t, s)

	require.NoError(t, s.Put(ctx, "k", strings.NewReader("hello"), 5, "image/png"))
	rc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = Open(ctx, config.ObjectStorageConfig{Backend: "s3"})
	assert.Error(t, err)
}
