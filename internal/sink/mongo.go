package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/types"
)

// MongoSink writes products to a MongoDB collection, one document per
// product keyed by identity. Reruns replace documents in place.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	count      int
	logger     *slog.Logger
}

// NewMongoSink connects to the given deployment. Replace mode drops all
// documents from earlier runs.
func NewMongoSink(ctx context.Context, uri, database, collection, mode string, logger *slog.Logger) (*MongoSink, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	if mode == config.ModeReplace {
		if _, err := coll.DeleteMany(connectCtx, bson.M{}); err != nil {
			_ = client.Disconnect(connectCtx)
			return nil, fmt.Errorf("mongodb clear collection: %w", err)
		}
	}

	return &MongoSink{
		client:     client,
		collection: coll,
		logger:     logger.With("component", "mongo_sink"),
	}, nil
}

func (s *MongoSink) Name() string { return "mongo" }

func (s *MongoSink) Store(products []*types.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, p := range products {
		doc := bson.M{
			"_id":         p.Identity,
			"title":       p.Title,
			"price":       p.Price,
			"unit_price":  p.UnitPrice,
			"description": p.Description,
			"brand":       p.Brand,
			"sku":         p.SKU,
			"category":    p.Category,
			"subcategory": p.Subcategory,
			"url":         p.URL,
			"image_urls":  p.ImageURLs,
		}

		_, err := s.collection.ReplaceOne(ctx,
			bson.M{"_id": p.Identity}, doc,
			options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("mongodb upsert: %w", err)
		}
		s.count++
	}
	return nil
}

func (s *MongoSink) Close() error {
	s.logger.Info("mongo sink closing", "products", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
