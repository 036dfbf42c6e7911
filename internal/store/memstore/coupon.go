package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
)

// CouponRepository stores coupons keyed by id; codes are unique.
type CouponRepository struct {
	mu      sync.RWMutex
	coupons map[string]types.Coupon
}

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{coupons: make(map[string]types.Coupon)}
}

func (r *CouponRepository) List(ctx context.Context) ([]types.Coupon, error) {
	r.mu.RLock()
	coupons := make([]types.Coupon, 0, len(r.coupons))
	for _, coupon := range r.coupons {
		coupons = append(coupons, coupon)
	}
	r.mu.RUnlock()

	sort.Slice(coupons, func(i, j int) bool {
		return coupons[i].CreatedAt.After(coupons[j].CreatedAt)
	})
	return coupons, nil
}

func (r *CouponRepository) Get(ctx context.Context, id string) (types.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coupon, ok := r.coupons[id]
	if !ok {
		return types.Coupon{}, store.ErrNotFound
	}
	return coupon, nil
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (types.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, coupon := range r.coupons {
		if coupon.Code == code {
			return coupon, nil
		}
	}
	return types.Coupon{}, store.ErrNotFound
}

func (r *CouponRepository) Create(ctx context.Context, coupon types.Coupon) (types.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.codeTaken(coupon.Code, "") {
		return types.Coupon{}, store.ErrDuplicate
	}
	r.coupons[coupon.ID] = coupon
	return coupon, nil
}

func (r *CouponRepository) Update(ctx context.Context, id string, update types.CouponUpdate) (types.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	coupon, ok := r.coupons[id]
	if !ok {
		return types.Coupon{}, store.ErrNotFound
	}
	if update.Code != nil {
		if r.codeTaken(*update.Code, id) {
			return types.Coupon{}, store.ErrDuplicate
		}
		coupon.Code = *update.Code
	}
	if update.Discount != nil {
		coupon.Discount = *update.Discount
	}
	if update.Description != nil {
		coupon.Description = *update.Description
	}
	if update.ExpiresAt != nil {
		coupon.ExpiresAt = *update.ExpiresAt
	}
	r.coupons[id] = coupon
	return coupon, nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.coupons[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.coupons, id)
	return nil
}

func (r *CouponRepository) codeTaken(code, exceptID string) bool {
	for id, coupon := range r.coupons {
		if id != exceptID && coupon.Code == code {
			return true
		}
	}
	return false
}
