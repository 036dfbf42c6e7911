package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/producthunt/apiserver/types"
)

// AddVote appends voter to the product's vote set and increments vote_count in a
// single conditional UPDATE. Zero rows means the product is missing or the
// voter is already present; a follow-up existence check tells the two apart.
func (r *ProductRepository) AddVote(ctx context.Context, id, voter string) (types.Product, error) {
	const query = `
		UPDATE products
		SET votes = array_append(votes, $2::text),
			vote_count = vote_count + 1
		WHERE id = $1 AND NOT ($2::text = ANY (votes))
		RETURNING ` + productColumns
	return r.applyVote(ctx, query, id, voter, ErrAlreadyVoted)
}

// RemoveVote is the inverse of AddVote and returns the updated product.
func (r *ProductRepository) RemoveVote(ctx context.Context, id, voter string) (types.Product, error) {
	const query = `
		UPDATE products
		SET votes = array_remove(votes, $2::text),
			vote_count = vote_count - 1
		WHERE id = $1 AND $2::text = ANY (votes)
		RETURNING ` + productColumns
	return r.applyVote(ctx, query, id, voter, ErrNotVoted)
}

func (r *ProductRepository) applyVote(ctx context.Context, query, id, voter string, conflict error) (types.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id, voter))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.Product{}, err
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return types.Product{}, err
	}
	if !exists {
		return types.Product{}, ErrNotFound
	}
	return types.Product{}, conflict
}
