package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}}

type ProductRepository struct {
	client     *MongoClient
	collection *mongo.Collection
}

func NewProductRepository(client *MongoClient) *ProductRepository {
	return &ProductRepository{
		client:     client,
		collection: client.Database.Collection(productsCollection),
	}
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if _, err := r.collection.InsertOne(ctx, product); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*models.Product, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]*models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*models.Product, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(newestFirst))
}

func (r *ProductRepository) TopRated(ctx context.Context, limit int) ([]*models.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *ProductRepository) ListByCategory(ctx context.Context, category models.Category, excludeID string, limit int) ([]*models.Product, error) {
	filter := bson.M{
		"category": category,
		"_id":      bson.M{"$ne": excludeID},
	}
	return r.find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
}

func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
