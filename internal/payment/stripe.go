// Package payment creates payment intents with the card processor and reads
// them back. Clients complete the charge directly with the processor using the
// returned secret; the server trusts only what the processor reports.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/producthunt/apiserver/config"
)

var (
	// ErrUpstream wraps every failure reported by, or on the way to, the processor.
	ErrUpstream = errors.New("payment provider error")
	// ErrIntentNotFound is returned when the processor has no such intent.
	ErrIntentNotFound = errors.New("payment intent not found")
)

const (
	intentsPath = "/v1/payment_intents"
	intentPath  = intentsPath + "/{id}"

	// IntentSucceeded is the processor status of a captured charge.
	IntentSucceeded = "succeeded"
)

type intentResponse struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

// Intent is the processor's record of a charge. Amount is in minor units and
// Payer is the account the intent was created for.
type Intent struct {
	ID       string
	Status   string
	Amount   int64
	Currency string
	Payer    string
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StripeClient talks to the Stripe REST API.
type StripeClient struct {
	client *resty.Client
}

func NewStripeClient(cfg config.PaymentConfig) (*StripeClient, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("payment secret key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return resp.StatusCode() == 429 || resp.StatusCode() >= 500
	})

	return &StripeClient{client: client}, nil
}

// CreateIntent asks the processor for a payment intent of amount minor units
// on behalf of payer and returns its client secret.
func (s *StripeClient) CreateIntent(ctx context.Context, amount int64, currency, payer string) (string, error) {
	var result intentResponse
	var failure errorResponse

	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"amount":                 strconv.FormatInt(amount, 10),
			"currency":               strings.ToLower(currency),
			"payment_method_types[]": "card",
			"metadata[payer]":        payer,
		}).
		SetResult(&result).
		SetError(&failure).
		Post(intentsPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	if result.ClientSecret == "" {
		return "", fmt.Errorf("%w: response carried no client secret", ErrUpstream)
	}
	return result.ClientSecret, nil
}

// RetrieveIntent reads an intent back from the processor.
func (s *StripeClient) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	var result intentResponse
	var failure errorResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&result).
		SetError(&failure).
		Get(intentPath)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return Intent{}, fmt.Errorf("%w: %s", ErrIntentNotFound, id)
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return Intent{}, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	if result.ID == "" {
		return Intent{}, fmt.Errorf("%w: response carried no intent", ErrUpstream)
	}
	return Intent{
		ID:       result.ID,
		Status:   result.Status,
		Amount:   result.Amount,
		Currency: strings.ToLower(result.Currency),
		Payer:    result.Metadata["payer"],
	}, nil
}

// Disabled is used when no processor is configured.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, int64, string, string) (string, error) {
	return "", fmt.Errorf("%w: payments are not configured", ErrUpstream)
}

func (Disabled) RetrieveIntent(context.Context, string) (Intent, error) {
	return Intent{}, fmt.Errorf("%w: payments are not configured", ErrUpstream)
}
