package services

import (
	"context"
	"sync"
	"time"

	"github.com/producthunt/apiserver/internal/store/memstore"
	"github.com/producthunt/apiserver/types"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event types.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []types.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	products *memstore.ProductRepository
	reviews  *memstore.ReviewRepository
	users    *memstore.UserRepository
	events   *recordingPublisher
	product  *ProductService
	votes    *VoteService
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newFixture() *fixture {
	f := &fixture{
		products: memstore.NewProductRepository(),
		reviews:  memstore.NewReviewRepository(),
		users:    memstore.NewUserRepository(),
		events:   &recordingPublisher{},
		clock:    &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	f.product = NewProductService(f.products, f.reviews, f.events, nil)
	f.product.now = f.clock.Now
	f.votes = NewVoteService(f.products, f.events, nil)
	return f
}
