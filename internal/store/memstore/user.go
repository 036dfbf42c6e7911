package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
)

// UserRepository stores users keyed by email.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]types.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]types.User)}
}

func (r *UserRepository) Get(ctx context.Context, email string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) Register(ctx context.Context, user types.User) (types.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[user.Email]; ok {
		return existing, false, nil
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.Role == "" {
		user.Role = types.RoleNone
	}
	r.users[user.Email] = user
	return user, true, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	r.mu.RLock()
	users := make([]types.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Email < users[j].Email
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})

	total := len(users)
	if offset >= total {
		return []types.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return users[offset:end], total, nil
}

func (r *UserRepository) SetRole(ctx context.Context, email string, role types.Role) error {
	return r.mutate(email, func(u *types.User) { u.Role = role })
}

func (r *UserRepository) SetSubscribed(ctx context.Context, email string) error {
	return r.mutate(email, func(u *types.User) { u.Subscribed = true })
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

func (r *UserRepository) mutate(email string, fn func(u *types.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return store.ErrNotFound
	}
	fn(&user)
	r.users[email] = user
	return nil
}
