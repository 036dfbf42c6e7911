// Package memstore implements the repositories in process memory. It backs the
// "memory" store driver for local development and serves as the repository
// set in service and handler tests. Every method holds the repository lock for
// its whole read-modify-write, matching the single-statement atomicity of the
// database backends.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
)

// ProductRepository stores products in a map keyed by id.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]types.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]types.Product)}
}

func cloneProduct(p types.Product) types.Product {
	p.Tags = append([]string{}, p.Tags...)
	p.Votes = append([]string{}, p.Votes...)
	return p
}

func matches(p types.Product, filter types.ProductFilter) bool {
	if filter.PublicOnly && p.Status != types.StatusAccepted {
		return false
	}
	if filter.Reported && !p.Reported {
		return false
	}
	if filter.OwnerEmail != "" && p.OwnerEmail != filter.OwnerEmail {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), search) {
				return true
			}
		}
		return false
	}
	return true
}

func (r *ProductRepository) List(ctx context.Context, filter types.ProductFilter, offset, limit int) ([]types.Product, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	r.mu.RLock()
	matched := make([]types.Product, 0, len(r.products))
	for _, p := range r.products {
		if matches(p, filter) {
			matched = append(matched, cloneProduct(p))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if filter.Sort == types.SortVotes && matched[i].VoteCount != matched[j].VoteCount {
			return matched[i].VoteCount > matched[j].VoteCount
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	if offset >= total {
		return []types.Product{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *ProductRepository) Count(ctx context.Context, filter types.ProductFilter, status types.ProductStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, p := range r.products {
		if matches(p, filter) && (status == "" || p.Status == status) {
			total++
		}
	}
	return total, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (types.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.ID]; exists {
		return types.Product{}, store.ErrDuplicate
	}
	product = cloneProduct(product)
	r.products[product.ID] = product
	return cloneProduct(product), nil
}

func (r *ProductRepository) Update(ctx context.Context, id string, update types.ProductUpdate) (types.Product, error) {
	return r.mutate(id, func(p *types.Product) error {
		if update.Name != nil {
			p.Name = *update.Name
		}
		if update.Description != nil {
			p.Description = *update.Description
		}
		if update.Image != nil {
			p.Image = *update.Image
		}
		if update.ExternalLink != nil {
			p.ExternalLink = *update.ExternalLink
		}
		if update.Tags != nil {
			p.Tags = append([]string{}, update.Tags...)
		}
		return nil
	})
}

func (r *ProductRepository) SetStatus(ctx context.Context, id string, status types.ProductStatus) error {
	_, err := r.mutate(id, func(p *types.Product) error {
		p.Status = status
		return nil
	})
	return err
}

func (r *ProductRepository) SetReported(ctx context.Context, id string) error {
	_, err := r.mutate(id, func(p *types.Product) error {
		p.Reported = true
		return nil
	})
	return err
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *ProductRepository) AddVote(ctx context.Context, id, voter string) (types.Product, error) {
	return r.mutate(id, func(p *types.Product) error {
		if p.HasVoter(voter) {
			return store.ErrAlreadyVoted
		}
		p.Votes = append(p.Votes, voter)
		p.VoteCount++
		return nil
	})
}

func (r *ProductRepository) RemoveVote(ctx context.Context, id, voter string) (types.Product, error) {
	return r.mutate(id, func(p *types.Product) error {
		for i, v := range p.Votes {
			if v == voter {
				p.Votes = append(p.Votes[:i:i], p.Votes[i+1:]...)
				p.VoteCount--
				return nil
			}
		}
		return store.ErrNotVoted
	})
}

// mutate applies fn to a copy of the product under the write lock and stores
// the copy only when fn succeeds.
func (r *ProductRepository) mutate(id string, fn func(p *types.Product) error) (types.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	next := cloneProduct(current)
	if err := fn(&next); err != nil {
		return types.Product{}, err
	}
	r.products[id] = next
	return cloneProduct(next), nil
}
