package mongostore

import (
	"context"

	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CouponRepository handles persistence for coupons.
type CouponRepository struct {
	coll *mongo.Collection
}

func NewCouponRepository(db *mongo.Database) *CouponRepository {
	return &CouponRepository{coll: db.Collection(couponsCollection)}
}

func (r *CouponRepository) List(ctx context.Context) ([]types.Coupon, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	coupons := []types.Coupon{}
	if err := cursor.All(ctx, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *CouponRepository) Get(ctx context.Context, id string) (types.Coupon, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (types.Coupon, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *CouponRepository) findOne(ctx context.Context, filter bson.M) (types.Coupon, error) {
	var coupon types.Coupon
	if err := r.coll.FindOne(ctx, filter).Decode(&coupon); err != nil {
		return types.Coupon{}, translate(err)
	}
	return coupon, nil
}

func (r *CouponRepository) Create(ctx context.Context, coupon types.Coupon) (types.Coupon, error) {
	if _, err := r.coll.InsertOne(ctx, coupon); err != nil {
		return types.Coupon{}, translate(err)
	}
	return coupon, nil
}

func (r *CouponRepository) Update(ctx context.Context, id string, update types.CouponUpdate) (types.Coupon, error) {
	set := bson.M{}
	if update.Code != nil {
		set["code"] = *update.Code
	}
	if update.Discount != nil {
		set["discount"] = *update.Discount
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.ExpiresAt != nil {
		set["expiresAt"] = *update.ExpiresAt
	}
	if len(set) == 0 {
		return r.Get(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var coupon types.Coupon
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&coupon); err != nil {
		return types.Coupon{}, translate(err)
	}
	return coupon, nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
