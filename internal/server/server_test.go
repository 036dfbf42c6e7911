package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/producthunt/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		Env:         config.EnvDev,
		JWTSecret:   "secret",
		StoreDriver: config.StoreDriverMemory,
		CORSOrigins: []string{"http://localhost:5173"},
		MQ:          config.MQConfig{Backend: "memory", EventsChannel: "product-events"},
		ObjectStorage: config.ObjectStorageConfig{
			Backend: "memory",
		},
		Payment: config.PaymentConfig{Currency: "usd"},
	}
}

func TestNewRequiresSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.JWTSecret = ""
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = "sqlite"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRoutesAreWired(t *testing.T) {
	srv, err := New(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "producthunt_http_requests_total"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/intent", strings.NewReader(`{"price":5}`))
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSAllowsCredentials(t *testing.T) {
	srv, err := New(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodOptions, "/products", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
