package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
)

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review types.Review) (types.Review, error)
	ListByProduct(ctx context.Context, productID string) ([]types.Review, error)
	DeleteByProduct(ctx context.Context, productID string) (int, error)
	Count(ctx context.Context) (int, error)
}

// ReviewService appends reviews to existing products.
type ReviewService struct {
	repo     ReviewRepository
	products ProductRepository
	events   EventPublisher
	now      func() time.Time
}

func NewReviewService(repo ReviewRepository, products ProductRepository, events EventPublisher) *ReviewService {
	return &ReviewService{
		repo:     repo,
		products: products,
		events:   publisherOrDiscard(events),
		now:      time.Now,
	}
}

// Create stores a review of an accepted product. Pending and rejected
// products are reported as not found.
func (s *ReviewService) Create(ctx context.Context, review types.Review) (types.Review, error) {
	productID, err := parseID(review.ProductID)
	if err != nil {
		return types.Review{}, err
	}
	if review.Rating < 1 || review.Rating > 5 {
		return types.Review{}, invalidInput("rating must be between 1 and 5")
	}
	if strings.TrimSpace(review.ReviewerEmail) == "" {
		return types.Review{}, invalidInput("reviewer email is required")
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return types.Review{}, err
	}
	if product.Status != types.StatusAccepted {
		return types.Review{}, store.ErrNotFound
	}

	review.ID = uuid.NewString()
	review.ProductID = productID
	review.Description = strings.TrimSpace(review.Description)
	review.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	created, err := s.repo.Create(ctx, review)
	if err != nil {
		return types.Review{}, err
	}
	s.events.Publish(ctx, types.Event{
		Type:      types.EventReviewPosted,
		ProductID: productID,
		Actor:     review.ReviewerEmail,
		At:        created.CreatedAt,
	})
	return created, nil
}

func (s *ReviewService) ListByProduct(ctx context.Context, productID string) ([]types.Review, error) {
	productID, err := parseID(productID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByProduct(ctx, productID)
}
