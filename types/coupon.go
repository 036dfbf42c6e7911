package types

import "time"

// Coupon is a discount code applied to subscription payments.
type Coupon struct {
	ID string `json:"id" db:"id" bson:"_id"`

	// Code is the unique code users enter.
	Code string `json:"code" db:"code" bson:"code"`

	// Discount is a percentage strictly between 0 and 100.
	Discount float64 `json:"discount" db:"discount" bson:"discount"`

	Description string    `json:"description" db:"description" bson:"description"`
	ExpiresAt   time.Time `json:"expiresAt" db:"expires_at" bson:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// Expired reports whether the coupon is no longer usable at t.
func (c Coupon) Expired(t time.Time) bool {
	return !c.ExpiresAt.IsZero() && !t.Before(c.ExpiresAt)
}

// CouponUpdate holds editable coupon fields. Nil fields are left unchanged.
type CouponUpdate struct {
	Code        *string
	Discount    *float64
	Description *string
	ExpiresAt   *time.Time
}
