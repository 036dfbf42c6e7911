package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/producthunt/apiserver/types"
)

const productColumns = `id, name, description, image, external_link, tags, owner_email, owner_name,
	owner_image, status, votes, vote_count, reported, created_at`

// ProductRepository handles persistence for products and their voting ledger.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (types.Product, error) {
	var product types.Product
	var status string
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Image,
		&product.ExternalLink,
		pq.Array(&product.Tags),
		&product.OwnerEmail,
		&product.OwnerName,
		&product.OwnerImage,
		&status,
		pq.Array(&product.Votes),
		&product.VoteCount,
		&product.Reported,
		&product.Timestamp,
	); err != nil {
		return types.Product{}, err
	}
	product.Status = types.ProductStatus(status)
	if product.Tags == nil {
		product.Tags = []string{}
	}
	if product.Votes == nil {
		product.Votes = []string{}
	}
	return product, nil
}

// productWhere renders filter as a WHERE clause with positional arguments.
func productWhere(filter types.ProductFilter) (string, []any) {
	var clauses []string
	var args []any
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PublicOnly {
		clauses = append(clauses, "status = "+arg(string(types.StatusAccepted)))
	}
	if filter.Reported {
		clauses = append(clauses, "reported = TRUE")
	}
	if filter.OwnerEmail != "" {
		clauses = append(clauses, "owner_email = "+arg(filter.OwnerEmail))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE `+arg("%"+escapeLike(search)+"%")+`)`)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func productOrder(sort types.ProductSort) string {
	if sort == types.SortVotes {
		return "ORDER BY vote_count DESC, created_at DESC"
	}
	return "ORDER BY created_at DESC"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *ProductRepository) List(ctx context.Context, filter types.ProductFilter, offset, limit int) ([]types.Product, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	where, args := productWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, offset, limit)
	listQuery := fmt.Sprintf(`SELECT %s FROM products %s %s OFFSET $%d LIMIT $%d`,
		productColumns, where, productOrder(filter.Sort), len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]types.Product, 0, limit)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *ProductRepository) Count(ctx context.Context, filter types.ProductFilter, status types.ProductStatus) (int, error) {
	where, args := productWhere(filter)
	if status != "" {
		args = append(args, string(status))
		if where == "" {
			where = fmt.Sprintf("WHERE status = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND status = $%d", len(args))
		}
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM products `+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	const query = `
		INSERT INTO products (id, name, description, image, external_link, tags, owner_email, owner_name,
			owner_image, status, votes, vote_count, reported, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Image,
		product.ExternalLink,
		pq.Array(product.Tags),
		product.OwnerEmail,
		product.OwnerName,
		product.OwnerImage,
		string(product.Status),
		pq.Array(product.Votes),
		product.VoteCount,
		product.Reported,
		product.Timestamp,
	); err != nil {
		return types.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Update(ctx context.Context, id string, update types.ProductUpdate) (types.Product, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		set("name", *update.Name)
	}
	if update.Description != nil {
		set("description", *update.Description)
	}
	if update.Image != nil {
		set("image", *update.Image)
	}
	if update.ExternalLink != nil {
		set("external_link", *update.ExternalLink)
	}
	if update.Tags != nil {
		set("tags", pq.Array(update.Tags))
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), productColumns)
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) SetStatus(ctx context.Context, id string, status types.ProductStatus) error {
	const query = `UPDATE products SET status = $1 WHERE id = $2`
	return execAffecting(ctx, r.db, query, string(status), id)
}

func (r *ProductRepository) SetReported(ctx context.Context, id string) error {
	const query = `UPDATE products SET reported = TRUE WHERE id = $1`
	return execAffecting(ctx, r.db, query, id)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM products WHERE id = $1`
	return execAffecting(ctx, r.db, query, id)
}

func (r *ProductRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
