package mongostore

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductRepository handles persistence for products and their voting ledger.
type ProductRepository struct {
	coll *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(productsCollection)}
}

func productQuery(filter types.ProductFilter) bson.M {
	query := bson.M{}
	if filter.PublicOnly {
		query["status"] = types.StatusAccepted
	}
	if filter.Reported {
		query["reported"] = true
	}
	if filter.OwnerEmail != "" {
		query["ownerEmail"] = filter.OwnerEmail
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query["tags"] = bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}
	return query
}

func productSort(sort types.ProductSort) bson.D {
	if sort == types.SortVotes {
		return bson.D{{Key: "voteCount", Value: -1}, {Key: "timestamp", Value: -1}}
	}
	return bson.D{{Key: "timestamp", Value: -1}}
}

func normalize(product *types.Product) {
	if product.Tags == nil {
		product.Tags = []string{}
	}
	if product.Votes == nil {
		product.Votes = []string{}
	}
}

func (r *ProductRepository) List(ctx context.Context, filter types.ProductFilter, offset, limit int) ([]types.Product, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	query := productQuery(filter)
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(productSort(filter.Sort)).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := make([]types.Product, 0, limit)
	for cursor.Next(ctx) {
		var product types.Product
		if err := cursor.Decode(&product); err != nil {
			return nil, 0, err
		}
		normalize(&product)
		products = append(products, product)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}
	return products, int(total), nil
}

func (r *ProductRepository) Count(ctx context.Context, filter types.ProductFilter, status types.ProductStatus) (int, error) {
	query := productQuery(filter)
	if status != "" {
		query["status"] = status
	}
	total, err := r.coll.CountDocuments(ctx, query)
	return int(total), err
}

func (r *ProductRepository) Get(ctx context.Context, id string) (types.Product, error) {
	var product types.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return types.Product{}, translate(err)
	}
	normalize(&product)
	return product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	normalize(&product)
	if _, err := r.coll.InsertOne(ctx, product); err != nil {
		return types.Product{}, translate(err)
	}
	return product, nil
}

func (r *ProductRepository) Update(ctx context.Context, id string, update types.ProductUpdate) (types.Product, error) {
	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Image != nil {
		set["image"] = *update.Image
	}
	if update.ExternalLink != nil {
		set["externalLink"] = *update.ExternalLink
	}
	if update.Tags != nil {
		set["tags"] = update.Tags
	}
	if len(set) == 0 {
		return r.Get(ctx, id)
	}
	return r.findAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *ProductRepository) SetStatus(ctx context.Context, id string, status types.ProductStatus) error {
	return r.updateMatched(ctx, id, bson.M{"$set": bson.M{"status": status}})
}

func (r *ProductRepository) SetReported(ctx context.Context, id string) error {
	return r.updateMatched(ctx, id, bson.M{"$set": bson.M{"reported": true}})
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddVote pushes voter and increments voteCount in one document update guarded
// by the voter's absence from the set.
func (r *ProductRepository) AddVote(ctx context.Context, id, voter string) (types.Product, error) {
	filter := bson.M{"_id": id, "votes": bson.M{"$ne": voter}}
	update := bson.M{
		"$push": bson.M{"votes": voter},
		"$inc":  bson.M{"voteCount": 1},
	}
	return r.applyVote(ctx, id, filter, update, store.ErrAlreadyVoted)
}

// RemoveVote pulls voter and decrements voteCount in one document update
// guarded by the voter's presence in the set.
func (r *ProductRepository) RemoveVote(ctx context.Context, id, voter string) (types.Product, error) {
	filter := bson.M{"_id": id, "votes": voter}
	update := bson.M{
		"$pull": bson.M{"votes": voter},
		"$inc":  bson.M{"voteCount": -1},
	}
	return r.applyVote(ctx, id, filter, update, store.ErrNotVoted)
}

func (r *ProductRepository) applyVote(ctx context.Context, id string, filter, update bson.M, conflict error) (types.Product, error) {
	product, err := r.findAndUpdate(ctx, filter, update)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Product{}, err
	}

	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return types.Product{}, err
	}
	if count == 0 {
		return types.Product{}, store.ErrNotFound
	}
	return types.Product{}, conflict
}

func (r *ProductRepository) findAndUpdate(ctx context.Context, filter, update bson.M) (types.Product, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var product types.Product
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&product); err != nil {
		return types.Product{}, translate(err)
	}
	normalize(&product)
	return product, nil
}

func (r *ProductRepository) updateMatched(ctx context.Context, id string, update bson.M) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
