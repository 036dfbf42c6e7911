package store

import (
	"context"
	"database/sql"

	"github.com/producthunt/apiserver/types"
)

// PaymentRepository handles persistence for completed payments.
type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment types.Payment) (types.Payment, error) {
	const query = `
		INSERT INTO payments (id, email, amount, currency, transaction_id, coupon_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		payment.ID,
		payment.Email,
		payment.Amount,
		payment.Currency,
		payment.TransactionID,
		payment.CouponCode,
		payment.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Payment{}, ErrDuplicate
		}
		return types.Payment{}, err
	}
	return payment, nil
}

func (r *PaymentRepository) ListByEmail(ctx context.Context, email string) ([]types.Payment, error) {
	const query = `
		SELECT id, email, amount, currency, transaction_id, coupon_code, created_at
		FROM payments
		WHERE email = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []types.Payment{}
	for rows.Next() {
		var payment types.Payment
		if err := rows.Scan(
			&payment.ID,
			&payment.Email,
			&payment.Amount,
			&payment.Currency,
			&payment.TransactionID,
			&payment.CouponCode,
			&payment.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}
