package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/producthunt/apiserver/internal/payment"
	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

// PaymentRepository defines persistence operations for payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment types.Payment) (types.Payment, error)
	ListByEmail(ctx context.Context, email string) ([]types.Payment, error)
}

// PaymentProvider creates a charge intent that the client completes directly
// with the provider, and reports the intent's outcome. amount is in minor
// currency units.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, amount int64, currency, payer string) (string, error)
	RetrieveIntent(ctx context.Context, id string) (payment.Intent, error)
}

// PaymentService validates charges, applies coupons, and records completed payments.
type PaymentService struct {
	repo     PaymentRepository
	users    UserRepository
	coupons  CouponRepository
	provider PaymentProvider
	currency string
	logger   *zap.Logger
	now      func() time.Time
}

func NewPaymentService(
	repo PaymentRepository,
	users UserRepository,
	coupons CouponRepository,
	provider PaymentProvider,
	currency string,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{
		repo:     repo,
		users:    users,
		coupons:  coupons,
		provider: provider,
		currency: currency,
		logger:   logger,
		now:      time.Now,
	}
}

func validPrice(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0) && price > 0
}

// CreateIntent validates price, applies couponCode when given, and asks the
// provider for a client secret for the resulting amount, charged to payer.
func (s *PaymentService) CreateIntent(ctx context.Context, payer string, price float64, couponCode string) (types.PaymentIntent, error) {
	if !validPrice(price) {
		return types.PaymentIntent{}, invalidInput("price must be a positive number")
	}

	amount := price
	if code := normalizeCode(couponCode); code != "" {
		coupon, err := s.coupons.GetByCode(ctx, code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.PaymentIntent{}, invalidInput("coupon %q does not exist", code)
			}
			return types.PaymentIntent{}, err
		}
		if coupon.Expired(s.now()) {
			return types.PaymentIntent{}, invalidInput("coupon %q has expired", code)
		}
		amount = price * (100 - coupon.Discount) / 100
	}

	cents := int64(math.Round(amount * 100))
	if cents < 1 {
		return types.PaymentIntent{}, invalidInput("discounted amount must be positive")
	}

	secret, err := s.provider.CreateIntent(ctx, cents, s.currency, normalizeEmail(payer))
	if err != nil {
		return types.PaymentIntent{}, err
	}
	return types.PaymentIntent{
		ClientSecret: secret,
		Amount:       float64(cents) / 100,
		Currency:     s.currency,
	}, nil
}

// Record stores a completed payment and marks the payer subscribed. The
// charge is looked up with the provider first: it must have succeeded, belong
// to the payer, and match the claimed amount and currency.
func (s *PaymentService) Record(ctx context.Context, record types.Payment) (types.Payment, error) {
	record.Email = normalizeEmail(record.Email)
	record.TransactionID = strings.TrimSpace(record.TransactionID)
	if record.Email == "" {
		return types.Payment{}, invalidInput("email is required")
	}
	if record.TransactionID == "" {
		return types.Payment{}, invalidInput("transaction id is required")
	}
	if !validPrice(record.Amount) {
		return types.Payment{}, invalidInput("amount must be a positive number")
	}
	if record.Currency == "" {
		record.Currency = s.currency
	}
	record.Currency = strings.ToLower(record.Currency)

	intent, err := s.provider.RetrieveIntent(ctx, record.TransactionID)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return types.Payment{}, invalidInput("transaction %q is unknown", record.TransactionID)
		}
		return types.Payment{}, err
	}
	if err := verifyCharge(intent, record); err != nil {
		s.logger.Warn("rejected unverified payment",
			zap.String("email", record.Email),
			zap.String("transaction_id", record.TransactionID),
			zap.String("intent_status", intent.Status),
			zap.Error(err),
		)
		return types.Payment{}, err
	}

	record.ID = uuid.NewString()
	record.Amount = float64(intent.Amount) / 100
	record.CouponCode = normalizeCode(record.CouponCode)
	record.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return types.Payment{}, err
	}

	if err := s.users.SetSubscribed(ctx, record.Email); err != nil {
		s.logger.Error("failed to mark user subscribed",
			zap.String("email", record.Email),
			zap.String("transaction_id", record.TransactionID),
			zap.Error(err),
		)
	}
	return created, nil
}

func verifyCharge(intent payment.Intent, record types.Payment) error {
	if intent.Status != payment.IntentSucceeded {
		return invalidInput("transaction %q has not succeeded", record.TransactionID)
	}
	if intent.Payer != record.Email {
		return invalidInput("transaction %q belongs to another account", record.TransactionID)
	}
	if intent.Amount != int64(math.Round(record.Amount*100)) {
		return invalidInput("amount does not match the charge")
	}
	if !strings.EqualFold(intent.Currency, record.Currency) {
		return invalidInput("currency does not match the charge")
	}
	return nil
}

func (s *PaymentService) ListByEmail(ctx context.Context, email string) ([]types.Payment, error) {
	return s.repo.ListByEmail(ctx, normalizeEmail(email))
}
