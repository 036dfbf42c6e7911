package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/producthunt/apiserver/types"
)

// CouponRepository defines persistence operations for coupons.
type CouponRepository interface {
	List(ctx context.Context) ([]types.Coupon, error)
	Get(ctx context.Context, id string) (types.Coupon, error)
	GetByCode(ctx context.Context, code string) (types.Coupon, error)
	Create(ctx context.Context, coupon types.Coupon) (types.Coupon, error)
	Update(ctx context.Context, id string, update types.CouponUpdate) (types.Coupon, error)
	Delete(ctx context.Context, id string) error
}

// CouponService encapsulates coupon use-cases.
type CouponService struct {
	repo CouponRepository
	now  func() time.Time
}

func NewCouponService(repo CouponRepository) *CouponService {
	return &CouponService{repo: repo, now: time.Now}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validDiscount(discount float64) bool {
	return !math.IsNaN(discount) && discount > 0 && discount < 100
}

func (s *CouponService) List(ctx context.Context) ([]types.Coupon, error) {
	return s.repo.List(ctx)
}

func (s *CouponService) Create(ctx context.Context, coupon types.Coupon) (types.Coupon, error) {
	coupon.Code = normalizeCode(coupon.Code)
	if coupon.Code == "" {
		return types.Coupon{}, invalidInput("code is required")
	}
	if !validDiscount(coupon.Discount) {
		return types.Coupon{}, invalidInput("discount must be between 0 and 100")
	}
	coupon.ID = uuid.NewString()
	coupon.Description = strings.TrimSpace(coupon.Description)
	coupon.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	return s.repo.Create(ctx, coupon)
}

func (s *CouponService) Update(ctx context.Context, id string, update types.CouponUpdate) (types.Coupon, error) {
	id, err := parseID(id)
	if err != nil {
		return types.Coupon{}, err
	}
	if update.Code != nil {
		code := normalizeCode(*update.Code)
		if code == "" {
			return types.Coupon{}, invalidInput("code cannot be empty")
		}
		update.Code = &code
	}
	if update.Discount != nil && !validDiscount(*update.Discount) {
		return types.Coupon{}, invalidInput("discount must be between 0 and 100")
	}
	return s.repo.Update(ctx, id, update)
}

func (s *CouponService) Delete(ctx context.Context, id string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
