// Package mongostore implements the repositories on a MongoDB document store.
// Vote mutations rely on single-document atomic updates; no multi-document
// transactions are used.
package mongostore

import (
	"context"
	"errors"

	"github.com/producthunt/apiserver/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection = "products"
	usersCollection    = "users"
	reviewsCollection  = "reviews"
	paymentsCollection = "payments"
	couponsCollection  = "coupons"
)

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		productsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "ownerEmail", Value: 1}}},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		paymentsCollection: {
			{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		couponsCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	default:
		return err
	}
}
