package services

import (
	"context"
	"errors"
	"strings"

	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Get(ctx context.Context, email string) (types.User, error)
	Register(ctx context.Context, user types.User) (types.User, bool, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	SetRole(ctx context.Context, email string, role types.Role) error
	SetSubscribed(ctx context.Context, email string) error
	Count(ctx context.Context) (int, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register stores user with a hash of password unless the email already
// exists, in which case the stored record, hash included, is returned unchanged.
func (s *UserService) Register(ctx context.Context, user types.User, password string) (types.User, bool, error) {
	user.Email = normalizeEmail(user.Email)
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return types.User{}, false, invalidInput("a valid email is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return types.User{}, false, invalidInput("%s", err.Error())
		}
		return types.User{}, false, err
	}
	user.Name = strings.TrimSpace(user.Name)
	user.PasswordHash = hash
	user.Role = types.RoleNone
	user.Subscribed = false
	return s.repo.Register(ctx, user)
}

// Authenticate returns the user whose password matches. Unknown emails and
// wrong passwords both fail with auth.ErrInvalidCredential.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.Get(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.User{}, err
		}
		user = types.User{}
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, email string) (types.User, error) {
	return s.repo.Get(ctx, normalizeEmail(email))
}

// Role returns the stored role for email. Unknown users have no role.
func (s *UserService) Role(ctx context.Context, email string) (types.Role, error) {
	user, err := s.repo.Get(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	if user.Role == "" {
		return types.RoleNone, nil
	}
	return user.Role, nil
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	return s.repo.List(ctx, offset, clampLimit(limit))
}

// SetRole changes a user's role. The change reaches session tokens only on reissue.
func (s *UserService) SetRole(ctx context.Context, email, role string) error {
	next := types.Role(strings.ToLower(strings.TrimSpace(role)))
	if !next.Valid() {
		return invalidInput("unknown role %q", role)
	}
	return s.repo.SetRole(ctx, normalizeEmail(email), next)
}
