package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/producthunt/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `email, name, photo, password_hash, role, subscribed, created_at`

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var role string
	if err := row.Scan(
		&user.Email,
		&user.Name,
		&user.Photo,
		&user.PasswordHash,
		&role,
		&user.Subscribed,
		&user.CreatedAt,
	); err != nil {
		return types.User{}, err
	}
	user.Role = types.Role(role)
	return user, nil
}

func (r *UserRepository) Get(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// Register inserts user unless the email is already taken, and returns the
// stored record either way. created reports whether a row was inserted.
func (r *UserRepository) Register(ctx context.Context, user types.User) (types.User, bool, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.Role == "" {
		user.Role = types.RoleNone
	}

	const query = `
		INSERT INTO users (email, name, photo, password_hash, role, subscribed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Email,
		user.Name,
		user.Photo,
		user.PasswordHash,
		string(user.Role),
		user.Subscribed,
		user.CreatedAt,
	)
	if err != nil {
		return types.User{}, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, false, err
	}
	if affected == 1 {
		return user, true, nil
	}

	existing, err := r.Get(ctx, user.Email)
	if err != nil {
		return types.User{}, false, err
	}
	return existing, false, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) SetRole(ctx context.Context, email string, role types.Role) error {
	return execAffecting(ctx, r.db, `UPDATE users SET role = $1 WHERE email = $2`, string(role), email)
}

func (r *UserRepository) SetSubscribed(ctx context.Context, email string) error {
	return execAffecting(ctx, r.db, `UPDATE users SET subscribed = TRUE WHERE email = $1`, email)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&total)
	return total, err
}

func execAffecting(ctx context.Context, db *sql.DB, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
