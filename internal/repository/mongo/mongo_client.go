package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/util"
)

const (
	accountsCollection = "users"
	productsCollection = "products"
)

type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
	config   *config.MongoConfig
}

func NewMongoClient(cfg *config.Config, logger *zap.Logger) (*MongoClient, error) {
	mongoConfig := cfg.Mongo

	opts := options.Client().
		ApplyURI(mongoConfig.URI).
		SetConnectTimeout(mongoConfig.ConnectTimeout).
		SetServerSelectionTimeout(mongoConfig.ConnectTimeout).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetRetryWrites(true)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoConfig.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	mc := &MongoClient{
		Client:   client,
		Database: client.Database(mongoConfig.Database),
		config:   &mongoConfig,
	}

	if err := mc.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("MongoDB client initialized",
		util.String("database", mongoConfig.Database),
	)

	return mc, nil
}

func (m *MongoClient) ensureIndexes(ctx context.Context) error {
	_, err := m.Database.Collection(accountsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create accounts email index: %w", err)
	}

	_, err = m.Database.Collection(productsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "rating", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

func (m *MongoClient) HealthCheck(ctx context.Context) error {
	if err := m.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

func (m *MongoClient) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Client.Disconnect(ctx); err != nil {
		util.Error("Failed to disconnect MongoDB client", util.ErrorField(err))
		return
	}
	util.Info("MongoDB client closed")
}
