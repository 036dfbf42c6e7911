package mongostore

import (
	"context"

	"github.com/producthunt/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PaymentRepository handles persistence for completed payments.
type PaymentRepository struct {
	coll *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{coll: db.Collection(paymentsCollection)}
}

func (r *PaymentRepository) Create(ctx context.Context, payment types.Payment) (types.Payment, error) {
	if _, err := r.coll.InsertOne(ctx, payment); err != nil {
		return types.Payment{}, translate(err)
	}
	return payment, nil
}

func (r *PaymentRepository) ListByEmail(ctx context.Context, email string) ([]types.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, err
	}
	payments := []types.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}
