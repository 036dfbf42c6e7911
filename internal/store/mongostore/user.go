package mongostore

import (
	"context"
	"time"

	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository handles persistence for users keyed by email.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) Get(ctx context.Context, email string) (types.User, error) {
	var user types.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": email}).Decode(&user); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

// Register upserts with $setOnInsert so an existing user is left untouched.
func (r *UserRepository) Register(ctx context.Context, user types.User) (types.User, bool, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.Role == "" {
		user.Role = types.RoleNone
	}

	update := bson.M{"$setOnInsert": bson.M{
		"name":       user.Name,
		"photo":        user.Photo,
		"passwordHash": user.PasswordHash,
		"role":         user.Role,
		"subscribed":   user.Subscribed,
		"createdAt":    user.CreatedAt,
	}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.Email}, update, options.Update().SetUpsert(true))
	if err != nil {
		return types.User{}, false, err
	}
	if result.UpsertedCount == 1 {
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

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	users := make([]types.User, 0, limit)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, int(total), nil
}

func (r *UserRepository) SetRole(ctx context.Context, email string, role types.Role) error {
	return r.updateMatched(ctx, email, bson.M{"$set": bson.M{"role": role}})
}

func (r *UserRepository) SetSubscribed(ctx context.Context, email string) error {
	return r.updateMatched(ctx, email, bson.M{"$set": bson.M{"subscribed": true}})
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	return int(total), err
}

func (r *UserRepository) updateMatched(ctx context.Context, email string, update bson.M) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": email}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
