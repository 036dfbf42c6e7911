package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

// ProductRepository defines persistence operations for products and the voting ledger.
type ProductRepository interface {
	List(ctx context.Context, filter types.ProductFilter, offset, limit int) ([]types.Product, int, error)
	Count(ctx context.Context, filter types.ProductFilter, status types.ProductStatus) (int, error)
	Get(ctx context.Context, id string) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, id string, update types.ProductUpdate) (types.Product, error)
	SetStatus(ctx context.Context, id string, status types.ProductStatus) error
	SetReported(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	AddVote(ctx context.Context, id, voter string) (types.Product, error)
	RemoveVote(ctx context.Context, id, voter string) (types.Product, error)
}

// ProductService owns the product lifecycle: submission, moderation status,
// reporting, listing and deletion.
type ProductService struct {
	repo    ProductRepository
	reviews ReviewRepository
	events  EventPublisher
	logger  *zap.Logger
	now     func() time.Time
}

func NewProductService(repo ProductRepository, reviews ReviewRepository, events EventPublisher, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		repo:    repo,
		reviews: reviews,
		events:  publisherOrDiscard(events),
		logger:  logger,
		now:     time.Now,
	}
}

// Submit stores a new product owned by ownerEmail in the pending state with an
// empty voting ledger. Client-supplied status, votes and flags are discarded.
func (s *ProductService) Submit(ctx context.Context, product types.Product, ownerEmail string) (types.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return types.Product{}, invalidInput("name is required")
	}
	ownerEmail = strings.TrimSpace(ownerEmail)
	if ownerEmail == "" {
		return types.Product{}, invalidInput("owner email is required")
	}

	product.ID = uuid.NewString()
	product.OwnerEmail = ownerEmail
	product.Tags = cleanTags(product.Tags)
	product.Status = types.StatusPending
	product.Votes = []string{}
	product.VoteCount = 0
	product.Reported = false
	product.Timestamp = s.now().UTC().Truncate(time.Millisecond)

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return types.Product{}, err
	}

	s.events.Publish(ctx, types.Event{
		Type:      types.EventProductSubmitted,
		ProductID: created.ID,
		Actor:     ownerEmail,
		Status:    string(created.Status),
		At:        created.Timestamp,
	})
	return created, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (types.Product, error) {
	id, err := parseID(id)
	if err != nil {
		return types.Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// ListPublic returns accepted products only, newest first unless sorted by votes.
func (s *ProductService) ListPublic(ctx context.Context, search string, sort types.ProductSort, offset, limit int) ([]types.Product, int, error) {
	return s.repo.List(ctx, types.ProductFilter{
		Search:     search,
		PublicOnly: true,
		Sort:       sort,
	}, offset, clampLimit(limit))
}

// ListAll is the moderation view and applies no status filter.
func (s *ProductService) ListAll(ctx context.Context, search string, offset, limit int) ([]types.Product, int, error) {
	return s.repo.List(ctx, types.ProductFilter{Search: search}, offset, clampLimit(limit))
}

func (s *ProductService) ListReported(ctx context.Context, offset, limit int) ([]types.Product, int, error) {
	return s.repo.List(ctx, types.ProductFilter{Reported: true}, offset, clampLimit(limit))
}

// ListOwned returns every product submitted by ownerEmail regardless of status.
func (s *ProductService) ListOwned(ctx context.Context, ownerEmail string, offset, limit int) ([]types.Product, int, error) {
	ownerEmail = strings.TrimSpace(ownerEmail)
	if ownerEmail == "" {
		return nil, 0, invalidInput("owner email is required")
	}
	return s.repo.List(ctx, types.ProductFilter{OwnerEmail: ownerEmail}, offset, clampLimit(limit))
}

// Update edits owner-editable fields. Status, owner and the ledger are not reachable from here.
func (s *ProductService) Update(ctx context.Context, id string, update types.ProductUpdate) (types.Product, error) {
	id, err := parseID(id)
	if err != nil {
		return types.Product{}, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return types.Product{}, invalidInput("name cannot be empty")
		}
		update.Name = &name
	}
	if update.Tags != nil {
		update.Tags = cleanTags(update.Tags)
	}

	updated, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return types.Product{}, err
	}
	s.events.Publish(ctx, types.Event{Type: types.EventProductUpdated, ProductID: id, At: s.now()})
	return updated, nil
}

// SetStatus applies a moderation decision. Any source state is allowed;
// repeating the same decision is a no-op in effect.
func (s *ProductService) SetStatus(ctx context.Context, id, status, moderator string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}
	next := types.ProductStatus(strings.ToLower(strings.TrimSpace(status)))
	if next != types.StatusAccepted && next != types.StatusRejected {
		return ErrInvalidStatus
	}

	if err := s.repo.SetStatus(ctx, id, next); err != nil {
		return err
	}
	s.events.Publish(ctx, types.Event{
		Type:      types.EventStatusChanged,
		ProductID: id,
		Actor:     moderator,
		Status:    string(next),
		At:        s.now(),
	})
	return nil
}

// Report flags the product for moderation. The flag is never cleared here.
func (s *ProductService) Report(ctx context.Context, id, reporter string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.SetReported(ctx, id); err != nil {
		return err
	}
	s.events.Publish(ctx, types.Event{Type: types.EventProductReported, ProductID: id, Actor: reporter, At: s.now()})
	return nil
}

// Delete removes the product outright, then drops its reviews.
func (s *ProductService) Delete(ctx context.Context, id, actor string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.reviews != nil {
		if removed, err := s.reviews.DeleteByProduct(ctx, id); err != nil {
			s.logger.Warn("failed to delete reviews of removed product", zap.String("product_id", id), zap.Error(err))
		} else if removed > 0 {
			s.logger.Debug("deleted reviews of removed product", zap.String("product_id", id), zap.Int("count", removed))
		}
	}

	s.events.Publish(ctx, types.Event{Type: types.EventProductDeleted, ProductID: id, Actor: actor, At: s.now()})
	return nil
}
