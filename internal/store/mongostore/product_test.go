package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const productID = "6f1c1a2e-8d4b-4f3e-9c55-3f0c9a1b2d7e"

func productDoc(votes bson.A) bson.D {
	return bson.D{
		{Key: "_id", Value: productID},
		{Key: "name", Value: "Widget"},
		{Key: "ownerEmail", Value: "owner@x.com"},
		{Key: "status", Value: "accepted"},
		{Key: "tags", Value: bson.A{"ai"}},
		{Key: "votes", Value: votes},
		{Key: "voteCount", Value: len(votes)},
		{Key: "reported", Value: false},
		{Key: "timestamp", Value: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
}

func newRepo(mt *mtest.T) *ProductRepository {
	return &ProductRepository{coll: mt.Coll}
}

func TestProductRepositoryAddVote(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("applies push and increment", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: productDoc(bson.A{"v@x.com"})},
		})

		product, err := newRepo(mt).AddVote(context.Background(), productID, "v@x.com")
		require.NoError(mt, err)
		assert.Equal(mt, []string{"v@x.com"}, product.Votes)
		assert.Equal(mt, 1, product.VoteCount)
		assert.Equal(mt, types.StatusAccepted, product.Status)
	})

	mt.Run("already voted", func(mt *mtest.T) {
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "db.products", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		_, err := newRepo(mt).AddVote(context.Background(), productID, "v@x.com")
		assert.ErrorIs(mt, err, store.ErrAlreadyVoted)
	})

	mt.Run("missing product", func(mt *mtest.T) {
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "db.products", mtest.FirstBatch),
		)

		_, err := newRepo(mt).AddVote(context.Background(), productID, "v@x.com")
		assert.ErrorIs(mt, err, store.ErrNotFound)
	})
}

func TestProductRepositoryRemoveVote(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("applies pull and decrement", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: productDoc(bson.A{})},
		})

		product, err := newRepo(mt).RemoveVote(context.Background(), productID, "v@x.com")
		require.NoError(mt, err)
		assert.Empty(mt, product.Votes)
		assert.Equal(mt, 0, product.VoteCount)
	})

	mt.Run("not voted", func(mt *mtest.T) {
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "db.products", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		_, err := newRepo(mt).RemoveVote(context.Background(), productID, "v@x.com")
		assert.ErrorIs(mt, err, store.ErrNotVoted)
	})
}

func TestProductRepositorySetStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("matched", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		err := newRepo(mt).SetStatus(context.Background(), productID, types.StatusAccepted)
		assert.NoError(mt, err)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := newRepo(mt).SetStatus(context.Background(), productID, types.StatusAccepted)
		assert.ErrorIs(mt, err, store.ErrNotFound)
	})
}

func TestProductRepositoryGet(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.products", mtest.FirstBatch, productDoc(bson.A{})))

		product, err := newRepo(mt).Get(context.Background(), productID)
		require.NoError(mt, err)
		assert.Equal(mt, "Widget", product.Name)
		assert.NotNil(mt, product.Votes)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.products", mtest.FirstBatch))

		_, err := newRepo(mt).Get(context.Background(), productID)
		assert.ErrorIs(mt, err, store.ErrNotFound)
	})
}

func TestProductQuery(t *testing.T) {
	query := productQuery(types.ProductFilter{PublicOnly: true, Search: "a.i"})

	assert.Equal(t, types.StatusAccepted, query["status"])
	assert.Equal(t, bson.M{"$regex": `a\.i`, "$options": "i"}, query["tags"])
	assert.NotContains(t, query, "reported")
}
