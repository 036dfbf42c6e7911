package services

import (
	"context"

	"github.com/producthunt/apiserver/types"
)

// StatsService aggregates site-wide counts for the admin dashboard.
type StatsService struct {
	products ProductRepository
	users    UserRepository
	reviews  ReviewRepository
}

func NewStatsService(products ProductRepository, users UserRepository, reviews ReviewRepository) *StatsService {
	return &StatsService{products: products, users: users, reviews: reviews}
}

func (s *StatsService) Get(ctx context.Context) (types.Stats, error) {
	var stats types.Stats
	var err error

	counts := []struct {
		dst    *int
		filter types.ProductFilter
		status types.ProductStatus
	}{
		{&stats.Products, types.ProductFilter{}, ""},
		{&stats.PendingProducts, types.ProductFilter{}, types.StatusPending},
		{&stats.AcceptedProducts, types.ProductFilter{}, types.StatusAccepted},
		{&stats.RejectedProducts, types.ProductFilter{}, types.StatusRejected},
		{&stats.ReportedProducts, types.ProductFilter{Reported: true}, ""},
	}
	for _, c := range counts {
		if *c.dst, err = s.products.Count(ctx, c.filter, c.status); err != nil {
			return types.Stats{}, err
		}
	}

	if stats.Users, err = s.users.Count(ctx); err != nil {
		return types.Stats{}, err
	}
	if stats.Reviews, err = s.reviews.Count(ctx); err != nil {
		return types.Stats{}, err
	}
	return stats, nil
}
