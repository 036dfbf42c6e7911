package types

import "time"

// Payment records a completed charge made by a user.
type Payment struct {
	ID string `json:"id" db:"id" bson:"_id"`

	// Email is the paying user.
	Email string `json:"email" db:"email" bson:"email"`

	// Amount is the charged amount in major currency units.
	Amount float64 `json:"amount" db:"amount" bson:"amount"`

	// Currency is the ISO currency code, lower case.
	Currency string `json:"currency" db:"currency" bson:"currency"`

	// TransactionID is the provider's identifier for the charge.
	TransactionID string `json:"transactionId" db:"transaction_id" bson:"transactionId"`

	// CouponCode is the coupon applied, if any.
	CouponCode string `json:"couponCode,omitempty" db:"coupon_code" bson:"couponCode,omitempty"`

	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// PaymentIntent is the provider-issued handle a client uses to complete a charge.
type PaymentIntent struct {
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}
