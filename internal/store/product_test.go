package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/producthunt/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productID = "6f1c1a2e-8d4b-4f3e-9c55-3f0c9a1b2d7e"

var productRowColumns = []string{
	"id", "name", "description", "image", "external_link", "tags", "owner_email", "owner_name",
	"owner_image", "status", "votes", "vote_count", "reported", "created_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func productRow(votes string, count int) *sqlmock.Rows {
	return sqlmock.NewRows(productRowColumns).AddRow(
		productID, "Widget", "A widget", "", "", "{ai,tools}", "owner@x.com", "Owner",
		"", "accepted", votes, count, false, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	)
}

func TestProductRepositoryAddVote(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SET votes = array_append(votes, $2::text)`)).
		WithArgs(productID, "v@x.com").
		WillReturnRows(productRow("{v@x.com}", 1))

	product, err := repo.AddVote(context.Background(), productID, "v@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"v@x.com"}, product.Votes)
	assert.Equal(t, 1, product.VoteCount)
	assert.Equal(t, []string{"ai", "tools"}, product.Tags)
	assert.Equal(t, types.StatusAccepted, product.Status)
}

func TestProductRepositoryAddVoteAlreadyVoted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`array_append`)).
		WithArgs(productID, "v@x.com").
		WillReturnRows(sqlmock.NewRows(productRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.AddVote(context.Background(), productID, "v@x.com")
	assert.ErrorIs(t, err, ErrAlreadyVoted)
}

func TestProductRepositoryAddVoteMissingProduct(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`array_append`)).
		WithArgs(productID, "v@x.com").
		WillReturnRows(sqlmock.NewRows(productRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.AddVote(context.Background(), productID, "v@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductRepositoryRemoveVote(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SET votes = array_remove(votes, $2::text)`)).
		WithArgs(productID, "v@x.com").
		WillReturnRows(productRow("{}", 0))

	product, err := repo.RemoveVote(context.Background(), productID, "v@x.com")
	require.NoError(t, err)
	assert.Empty(t, product.Votes)
	assert.Equal(t, 0, product.VoteCount)
}

func TestProductRepositoryRemoveVoteNotVoted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`array_remove`)).
		WithArgs(productID, "v@x.com").
		WillReturnRows(sqlmock.NewRows(productRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.RemoveVote(context.Background(), productID, "v@x.com")
	assert.ErrorIs(t, err, ErrNotVoted)
}

func TestProductRepositorySetStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET status = $1 WHERE id = $2`)).
		WithArgs("accepted", productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET status = $1 WHERE id = $2`)).
		WithArgs("rejected", productID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetStatus(context.Background(), productID, types.StatusAccepted))
	assert.ErrorIs(t, repo.SetStatus(context.Background(), productID, types.StatusRejected), ErrNotFound)
}

func TestProductRepositoryListPublicSearch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	filter := types.ProductFilter{PublicOnly: true, Search: "A_I"}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(1) FROM products WHERE status = $1 AND EXISTS`)).
		WithArgs("accepted", `%A\_I%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC OFFSET $3 LIMIT $4`)).
		WithArgs("accepted", `%A\_I%`, 10, 10).
		WillReturnRows(productRow("{}", 0))

	products, total, err := repo.List(context.Background(), filter, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, productID, products[0].ID)
}

func TestProductRepositoryListByVotes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(1) FROM products`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY vote_count DESC, created_at DESC OFFSET $1 LIMIT $2`)).
		WithArgs(0, 20).
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	products, total, err := repo.List(context.Background(), types.ProductFilter{Sort: types.SortVotes}, -5, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)
}

func TestProductRepositoryUpdateNoFieldsReadsCurrent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = $1`)).
		WithArgs(productID).
		WillReturnRows(productRow("{}", 0))

	product, err := repo.Update(context.Background(), productID, types.ProductUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Widget", product.Name)
}

func TestProductRepositoryGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = $1`)).
		WithArgs(productID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), productID)
	assert.ErrorIs(t, err, ErrNotFound)
}
