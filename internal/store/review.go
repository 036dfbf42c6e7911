package store

import (
	"context"
	"database/sql"

	"github.com/producthunt/apiserver/types"
)

// ReviewRepository handles persistence for product reviews.
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	const query = `
		INSERT INTO reviews (id, product_id, reviewer_email, reviewer_name, reviewer_image, rating, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		review.ID,
		review.ProductID,
		review.ReviewerEmail,
		review.ReviewerName,
		review.ReviewerImage,
		review.Rating,
		review.Description,
		review.CreatedAt,
	); err != nil {
		return types.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]types.Review, error) {
	const query = `
		SELECT id, product_id, reviewer_email, reviewer_name, reviewer_image, rating, description, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []types.Review{}
	for rows.Next() {
		var review types.Review
		if err := rows.Scan(
			&review.ID,
			&review.ProductID,
			&review.ReviewerEmail,
			&review.ReviewerName,
			&review.ReviewerImage,
			&review.Rating,
			&review.Description,
			&review.CreatedAt,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ReviewRepository) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE product_id = $1`, productID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func (r *ReviewRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM reviews`).Scan(&total)
	return total, err
}
