package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
)

// PaymentRepository stores payments; transaction ids are unique.
type PaymentRepository struct {
	mu       sync.RWMutex
	payments []types.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

func (r *PaymentRepository) Create(ctx context.Context, payment types.Payment) (types.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.payments {
		if existing.TransactionID == payment.TransactionID {
			return types.Payment{}, store.ErrDuplicate
		}
	}
	r.payments = append(r.payments, payment)
	return payment, nil
}

func (r *PaymentRepository) ListByEmail(ctx context.Context, email string) ([]types.Payment, error) {
	r.mu.RLock()
	payments := []types.Payment{}
	for _, payment := range r.payments {
		if payment.Email == email {
			payments = append(payments, payment)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	return payments, nil
}
