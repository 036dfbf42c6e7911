package mongostore

import (
	"context"

	"github.com/producthunt/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReviewRepository handles persistence for product reviews.
type ReviewRepository struct {
	coll *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{coll: db.Collection(reviewsCollection)}
}

func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	if _, err := r.coll.InsertOne(ctx, review); err != nil {
		return types.Review{}, translate(err)
	}
	return review, nil
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]types.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"productId": productID}, opts)
	if err != nil {
		return nil, err
	}
	reviews := []types.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ReviewRepository) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"productId": productID})
	if err != nil {
		return 0, err
	}
	return int(result.DeletedCount), nil
}

func (r *ReviewRepository) Count(ctx context.Context) (int, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	return int(total), err
}
