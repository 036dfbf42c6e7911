package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/producthunt/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *StripeClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewStripeClient(config.PaymentConfig{
		SecretKey: "sk_test_123",
		BaseURL:   srv.URL,
		Timeout:   time.Second,
	})
	require.NoError(t, err)
	client.client.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(time.Millisecond)
	return client
}

func TestCreateIntent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, intentsPath, r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1999", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "a@x.com", r.PostForm.Get("metadata[payer]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret_abc"}`))
	})

	secret, err := client.CreateIntent(context.Background(), 1999, "USD", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret_abc", secret)
}

func TestCreateIntentProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Amount must be at least 50 cents"}}`))
	})

	_, err := client.CreateIntent(context.Background(), 1, "usd", "a@x.com")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "at least 50 cents")
}

func TestCreateIntentRetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_2","client_secret":"secret_2"}`))
	})

	secret, err := client.CreateIntent(context.Background(), 500, "usd", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "secret_2", secret)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCreateIntentMissingSecret(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_3"}`))
	})

	_, err := client.CreateIntent(context.Background(), 500, "usd", "a@x.com")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestNewStripeClientRequiresKey(t *testing.T) {
	_, err := NewStripeClient(config.PaymentConfig{BaseURL: "http://localhost"})
	assert.Error(t, err)

	_, err = Disabled{}.CreateIntent(context.Background(), 100, "usd", "a@x.com")
	assert.ErrorIs(t, err, ErrUpstream)
	_, err = Disabled{}.RetrieveIntent(context.Background(), "pi_1")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestRetrieveIntent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, intentsPath+"/pi_7", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_7","status":"succeeded","amount":1999,"currency":"USD","metadata":{"payer":"a@x.com"}}`))
	})

	intent, err := client.RetrieveIntent(context.Background(), "pi_7")
	require.NoError(t, err)
	assert.Equal(t, Intent{ID: "pi_7", Status: IntentSucceeded, Amount: 1999, Currency: "usd", Payer: "a@x.com"}, intent)
}

func TestRetrieveIntentErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case intentsPath + "/pi_missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`))
		case intentsPath + "/pi_empty":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid API Key"}}`))
		}
	})

	_, err := client.RetrieveIntent(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)
	assert.NotErrorIs(t, err, ErrUpstream)

	_, err = client.RetrieveIntent(context.Background(), "pi_empty")
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = client.RetrieveIntent(context.Background(), "pi_other")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "Invalid API Key")
}
