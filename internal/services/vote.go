package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
)

const (
	voteActionUp   = "upvote"
	voteActionDown = "unvote"
)

// VoteObserver records ledger outcomes, typically as metrics.
type VoteObserver interface {
	ObserveVote(action, outcome string)
}

// VoteService is the voting ledger. Each mutation is delegated to a single
// atomic repository update that changes the voter set and the counter together.
type VoteService struct {
	repo     ProductRepository
	events   EventPublisher
	observer VoteObserver
	now      func() time.Time
}

func NewVoteService(repo ProductRepository, events EventPublisher, observer VoteObserver) *VoteService {
	return &VoteService{
		repo:     repo,
		events:   publisherOrDiscard(events),
		observer: observer,
		now:      time.Now,
	}
}

// Upvote adds voter to the product's ledger. A repeated upvote fails with
// store.ErrAlreadyVoted and leaves the ledger unchanged.
func (s *VoteService) Upvote(ctx context.Context, id, voter string) (types.Product, error) {
	return s.apply(ctx, voteActionUp, types.EventProductVoted, id, voter, s.repo.AddVote)
}

// Unvote removes voter from the product's ledger. Unvoting without a prior
// vote fails with store.ErrNotVoted and leaves the ledger unchanged.
func (s *VoteService) Unvote(ctx context.Context, id, voter string) (types.Product, error) {
	return s.apply(ctx, voteActionDown, types.EventProductUnvoted, id, voter, s.repo.RemoveVote)
}

func (s *VoteService) apply(
	ctx context.Context,
	action string,
	eventType types.EventType,
	id, voter string,
	mutate func(ctx context.Context, id, voter string) (types.Product, error),
) (types.Product, error) {
	id, err := parseID(id)
	if err != nil {
		return types.Product{}, err
	}
	voter = strings.TrimSpace(voter)
	if voter == "" {
		return types.Product{}, invalidInput("voter is required")
	}

	product, err := mutate(ctx, id, voter)
	s.observe(action, err)
	if err != nil {
		return types.Product{}, err
	}

	count := product.VoteCount
	s.events.Publish(ctx, types.Event{
		Type:      eventType,
		ProductID: id,
		Actor:     voter,
		VoteCount: &count,
		At:        s.now(),
	})
	return product, nil
}

func (s *VoteService) observe(action string, err error) {
	if s.observer == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, store.ErrAlreadyVoted):
		outcome = "already_voted"
	case errors.Is(err, store.ErrNotVoted):
		outcome = "not_voted"
	case errors.Is(err, store.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	s.observer.ObserveVote(action, outcome)
}
