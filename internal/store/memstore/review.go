package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/producthunt/apiserver/types"
)

// ReviewRepository stores reviews in insertion order.
type ReviewRepository struct {
	mu      sync.RWMutex
	reviews []types.Review
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{}
}

func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews = append(r.reviews, review)
	return review, nil
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]types.Review, error) {
	r.mu.RLock()
	reviews := []types.Review{}
	for _, review := range r.reviews {
		if review.ProductID == productID {
			reviews = append(reviews, review)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return reviews, nil
}

func (r *ReviewRepository) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.reviews[:0]
	removed := 0
	for _, review := range r.reviews {
		if review.ProductID == productID {
			removed++
			continue
		}
		kept = append(kept, review)
	}
	r.reviews = kept
	return removed, nil
}

func (r *ReviewRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reviews), nil
}
