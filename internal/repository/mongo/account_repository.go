package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository"
)

type AccountRepository struct {
	client     *MongoClient
	collection *mongo.Collection
}

func NewAccountRepository(client *MongoClient) *AccountRepository {
	return &AccountRepository{
		client:     client,
		collection: client.Database.Collection(accountsCollection),
	}
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var account models.Account
	if err := r.collection.FindOne(ctx, filter).Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &account, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) FindByEmailWithUnexpiredOTP(ctx context.Context, email string, now time.Time) (*models.Account, error) {
	return r.findOne(ctx, bson.M{
		"email":                  email,
		"pending_otp.expires_at": bson.M{"$gt": now},
	})
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if _, err := r.collection.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) Save(ctx context.Context, account *models.Account) error {
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": account.ID},
		account,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (r *AccountRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
