package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/producthunt/apiserver/internal/payment"
	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/internal/store/memstore"
	"github.com/producthunt/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	amount   int64
	currency string
	payer    string
	intents  map[string]payment.Intent
	err      error
}

func (p *fakeProvider) CreateIntent(_ context.Context, amount int64, currency, payer string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.amount = amount
	p.currency = currency
	p.payer = payer
	return "pi_secret", nil
}

func (p *fakeProvider) RetrieveIntent(_ context.Context, id string) (payment.Intent, error) {
	if p.err != nil {
		return payment.Intent{}, p.err
	}
	intent, ok := p.intents[id]
	if !ok {
		return payment.Intent{}, fmt.Errorf("%w: %s", payment.ErrIntentNotFound, id)
	}
	return intent, nil
}

func (p *fakeProvider) succeed(id, payer string, cents int64) {
	p.intents[id] = payment.Intent{ID: id, Status: payment.IntentSucceeded, Amount: cents, Currency: "usd", Payer: payer}
}

func newPaymentFixture(t *testing.T) (*PaymentService, *fakeProvider, *memstore.UserRepository, *CouponService) {
	t.Helper()
	users := memstore.NewUserRepository()
	coupons := memstore.NewCouponRepository()
	provider := &fakeProvider{intents: make(map[string]payment.Intent)}
	svc := NewPaymentService(memstore.NewPaymentRepository(), users, coupons, provider, "usd", nil)
	return svc, provider, users, NewCouponService(coupons)
}

func TestCreateIntentRejectsBadPrices(t *testing.T) {
	svc, _, _, _ := newPaymentFixture(t)

	for _, price := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := svc.CreateIntent(context.Background(), "a@x.com", price, "")
		assert.ErrorIs(t, err, ErrInvalidInput, price)
	}
}

func TestCreateIntentConvertsToMinorUnits(t *testing.T) {
	svc, provider, _, _ := newPaymentFixture(t)

	intent, err := svc.CreateIntent(context.Background(), "a@x.com", 19.99, "")
	require.NoError(t, err)
	assert.Equal(t, "pi_secret", intent.ClientSecret)
	assert.Equal(t, int64(1999), provider.amount)
	assert.Equal(t, "usd", provider.currency)
	assert.Equal(t, "a@x.com", provider.payer)
	assert.InDelta(t, 19.99, intent.Amount, 0.001)
}

func TestCreateIntentAppliesCoupon(t *testing.T) {
	svc, provider, _, coupons := newPaymentFixture(t)
	ctx := context.Background()

	_, err := coupons.Create(ctx, types.Coupon{Code: "save20", Discount: 20})
	require.NoError(t, err)

	_, err = svc.CreateIntent(ctx, "a@x.com", 50, " Save20 ")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), provider.amount)

	_, err = svc.CreateIntent(ctx, "a@x.com", 50, "missing")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateIntentRejectsExpiredCoupon(t *testing.T) {
	svc, _, _, coupons := newPaymentFixture(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	_, err := coupons.Create(ctx, types.Coupon{Code: "OLD", Discount: 10, ExpiresAt: past})
	require.NoError(t, err)

	_, err = svc.CreateIntent(ctx, "a@x.com", 50, "old")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateIntentPropagatesProviderErrors(t *testing.T) {
	svc, provider, _, _ := newPaymentFixture(t)
	upstream := errors.New("card network down")
	provider.err = upstream

	_, err := svc.CreateIntent(context.Background(), "a@x.com", 10, "")
	assert.ErrorIs(t, err, upstream)
}

func TestRecordMarksPayerSubscribed(t *testing.T) {
	svc, provider, users, _ := newPaymentFixture(t)
	ctx := context.Background()

	_, _, err := users.Register(ctx, types.User{Email: "a@x.com", Role: types.RoleNone})
	require.NoError(t, err)
	provider.succeed("pi_1", "a@x.com", 1000)

	recorded, err := svc.Record(ctx, types.Payment{Email: "A@x.com", Amount: 10, TransactionID: "pi_1", CouponCode: "save20"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", recorded.Email)
	assert.Equal(t, "SAVE20", recorded.CouponCode)
	assert.Equal(t, "usd", recorded.Currency)

	user, err := users.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, user.Subscribed)

	_, err = svc.Record(ctx, types.Payment{Email: "a@x.com", Amount: 10, TransactionID: "pi_1"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	history, err := svc.ListByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRecordValidatesInput(t *testing.T) {
	svc, _, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	cases := []types.Payment{
		{Amount: 10, TransactionID: "pi"},
		{Email: "a@x.com", Amount: 10},
		{Email: "a@x.com", TransactionID: "pi"},
	}
	for _, c := range cases {
		_, err := svc.Record(ctx, c)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestRecordVerifiesChargeWithProvider(t *testing.T) {
	svc, provider, users, _ := newPaymentFixture(t)
	ctx := context.Background()

	_, _, err := users.Register(ctx, types.User{Email: "a@x.com", Role: types.RoleNone})
	require.NoError(t, err)
	provider.succeed("pi_ok", "a@x.com", 1999)
	provider.intents["pi_pending"] = payment.Intent{ID: "pi_pending", Status: "processing", Amount: 1999, Currency: "usd", Payer: "a@x.com"}

	cases := map[string]types.Payment{
		"unknown transaction": {Email: "a@x.com", Amount: 19.99, TransactionID: "pi_forged"},
		"not succeeded":       {Email: "a@x.com", Amount: 19.99, TransactionID: "pi_pending"},
		"amount mismatch":     {Email: "a@x.com", Amount: 0.5, TransactionID: "pi_ok"},
		"currency mismatch":   {Email: "a@x.com", Amount: 19.99, Currency: "EUR", TransactionID: "pi_ok"},
		"someone else's":      {Email: "b@x.com", Amount: 19.99, TransactionID: "pi_ok"},
	}
	for name, c := range cases {
		_, err := svc.Record(ctx, c)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}

	user, err := users.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, user.Subscribed)
	history, err := svc.ListByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, history)

	recorded, err := svc.Record(ctx, types.Payment{Email: "a@x.com", Amount: 19.99, Currency: "USD", TransactionID: "pi_ok"})
	require.NoError(t, err)
	assert.InDelta(t, 19.99, recorded.Amount, 0.001)
	assert.Equal(t, "usd", recorded.Currency)
}

func TestRecordPropagatesProviderErrors(t *testing.T) {
	svc, provider, _, _ := newPaymentFixture(t)
	provider.err = fmt.Errorf("%w: timeout", payment.ErrUpstream)

	_, err := svc.Record(context.Background(), types.Payment{Email: "a@x.com", Amount: 10, TransactionID: "pi_1"})
	assert.ErrorIs(t, err, payment.ErrUpstream)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}
