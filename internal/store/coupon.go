package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/producthunt/apiserver/types"
)

// CouponRepository handles persistence for coupons.
type CouponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

const couponColumns = `id, code, discount, description, expires_at, created_at`

func scanCoupon(row rowScanner) (types.Coupon, error) {
	var coupon types.Coupon
	var expiresAt sql.NullTime
	if err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Discount,
		&coupon.Description,
		&expiresAt,
		&coupon.CreatedAt,
	); err != nil {
		return types.Coupon{}, err
	}
	if expiresAt.Valid {
		coupon.ExpiresAt = expiresAt.Time
	}
	return coupon, nil
}

func nullTime(coupon types.Coupon) sql.NullTime {
	return sql.NullTime{Time: coupon.ExpiresAt, Valid: !coupon.ExpiresAt.IsZero()}
}

func (r *CouponRepository) List(ctx context.Context) ([]types.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coupons := []types.Coupon{}
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *CouponRepository) Get(ctx context.Context, id string) (types.Coupon, error) {
	return r.getBy(ctx, "id", id)
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (types.Coupon, error) {
	return r.getBy(ctx, "code", code)
}

func (r *CouponRepository) getBy(ctx context.Context, column, value string) (types.Coupon, error) {
	query := fmt.Sprintf(`SELECT %s FROM coupons WHERE %s = $1`, couponColumns, column)
	coupon, err := scanCoupon(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Coupon{}, ErrNotFound
		}
		return types.Coupon{}, err
	}
	return coupon, nil
}

func (r *CouponRepository) Create(ctx context.Context, coupon types.Coupon) (types.Coupon, error) {
	const query = `
		INSERT INTO coupons (id, code, discount, description, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		coupon.ID,
		coupon.Code,
		coupon.Discount,
		coupon.Description,
		nullTime(coupon),
		coupon.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Coupon{}, ErrDuplicate
		}
		return types.Coupon{}, err
	}
	return coupon, nil
}

func (r *CouponRepository) Update(ctx context.Context, id string, update types.CouponUpdate) (types.Coupon, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Code != nil {
		set("code", *update.Code)
	}
	if update.Discount != nil {
		set("discount", *update.Discount)
	}
	if update.Description != nil {
		set("description", *update.Description)
	}
	if update.ExpiresAt != nil {
		set("expires_at", nullTime(types.Coupon{ExpiresAt: *update.ExpiresAt}))
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE coupons SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), couponColumns)
	coupon, err := scanCoupon(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Coupon{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return types.Coupon{}, ErrDuplicate
		}
		return types.Coupon{}, err
	}
	return coupon, nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	return execAffecting(ctx, r.db, `DELETE FROM coupons WHERE id = $1`, id)
}
