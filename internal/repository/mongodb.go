package repository

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"axie-market-cache/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBStore implements Store on MongoDB. Replacements are written to a
// staging collection and renamed over the live one in a single command.
type MongoDBStore struct {
	client *mongo.Client
	db     *mongo.Database

	latest  *mongoCollection[model.Unit]
	sold    *mongoCollection[model.SoldRecord]
	decoded *mongoCollection[model.DecodedUnit]
}

// NewMongoDBStore connects to MongoDB and prepares the cache collections.
func NewMongoDBStore(uri, database string) (*MongoDBStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &MongoDBStore{
		client:  client,
		db:      db,
		latest:  newMongoCollection[model.Unit](client, db, LatestUnitsCollection),
		sold:    newMongoCollection[model.SoldRecord](client, db, RecentlySoldCollection),
		decoded: newMongoCollection[model.DecodedUnit](client, db, DecodedUnitsCollection),
	}

	log.Printf("[MongoDBStore] Connected to %s", database)
	return s, nil
}

func (s *MongoDBStore) LatestUnits() Collection[model.Unit] { return s.latest }
func (s *MongoDBStore) RecentlySold() Collection[model.SoldRecord] { return s.sold }
func (s *MongoDBStore) DecodedUnits() Collection[model.DecodedUnit] { return s.decoded }

// Ping checks the MongoDB connection.
func (s *MongoDBStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return model.E(model.KindPersistence, "mongodb.Ping", err)
	}
	return nil
}

// GetStats returns document counts and the database size.
func (s *MongoDBStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["engine"] = "mongodb"

	counts := make(map[string]int64)
	for _, c := range []interface {
		Name() string
		Count(context.Context) (int64, error)
	}{s.latest, s.sold, s.decoded} {
		n, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}
		counts[c.Name()] = n
	}
	stats["collections"] = counts

	var dbStats bson.M
	if err := s.db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&dbStats); err == nil {
		switch size := dbStats["dataSize"].(type) {
		case int64:
			stats["db_size_bytes"] = size
		case int32:
			stats["db_size_bytes"] = int64(size)
		case float64:
			stats["db_size_bytes"] = int64(size)
		}
	}

	return stats, nil
}

// Close closes the MongoDB connection.
func (s *MongoDBStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// mongoDocument wraps a record with its position in the batch.
type mongoDocument[T Record] struct {
	Seq      int       `bson:"seq"`
	RecordID string    `bson:"record_id"`
	Record   T         `bson:"record"`
	SyncedAt time.Time `bson:"synced_at"`
}

type mongoCollection[T Record] struct {
	client *mongo.Client
	db     *mongo.Database
	name   string
	// mu keeps two replacements of this process from sharing the staging collection.
	mu sync.Mutex
}

func newMongoCollection[T Record](client *mongo.Client, db *mongo.Database, name string) *mongoCollection[T] {
	return &mongoCollection[T]{client: client, db: db, name: name}
}

func (c *mongoCollection[T]) Name() string { return c.name }

func (c *mongoCollection[T]) stagingName() string { return c.name + "_staging" }

// FindAll returns every record ordered by insertion position.
func (c *mongoCollection[T]) FindAll(ctx context.Context) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := c.db.Collection(c.name).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, model.E(model.KindPersistence, "mongodb.FindAll", fmt.Errorf("failed to find %s: %w", c.name, err))
	}
	defer cursor.Close(ctx)

	var docs []mongoDocument[T]
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, model.E(model.KindPersistence, "mongodb.FindAll", fmt.Errorf("failed to decode %s: %w", c.name, err))
	}

	out := make([]T, len(docs))
	for i, d := range docs {
		out[i] = d.Record
	}
	return out, nil
}

// ReplaceAll fills the staging collection and renames it over the live one
// with dropTarget, so readers switch from the old content to the new one at
// once. A failure before the rename leaves the live collection untouched.
func (c *mongoCollection[T]) ReplaceAll(ctx context.Context, records []T) error {
	const op = "mongodb.ReplaceAll"

	c.mu.Lock()
	defer c.mu.Unlock()

	staging := c.db.Collection(c.stagingName())
	if err := staging.Drop(ctx); err != nil {
		return model.E(model.KindPersistence, op, fmt.Errorf("failed to drop staging collection: %w", err))
	}
	if err := c.db.CreateCollection(ctx, c.stagingName()); err != nil {
		return model.E(model.KindPersistence, op, fmt.Errorf("failed to create staging collection: %w", err))
	}

	if len(records) > 0 {
		syncedAt := time.Now().UTC()
		docs := make([]interface{}, len(records))
		for i, rec := range records {
			docs[i] = mongoDocument[T]{Seq: i, RecordID: rec.RecordID(), Record: rec, SyncedAt: syncedAt}
		}
		if _, err := staging.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
			return model.E(model.KindPersistence, op, fmt.Errorf("failed to stage %s: %w", c.name, err))
		}
	}

	cmd := bson.D{
		{Key: "renameCollection", Value: c.db.Name() + "." + c.stagingName()},
		{Key: "to", Value: c.db.Name() + "." + c.name},
		{Key: "dropTarget", Value: true},
	}
	if err := c.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return model.E(model.KindPersistence, op, fmt.Errorf("failed to swap %s: %w", c.name, err))
	}

	log.Printf("[MongoDBStore] Replaced %s with %d records", c.name, len(records))
	return nil
}

// Count returns the number of documents.
func (c *mongoCollection[T]) Count(ctx context.Context) (int64, error) {
	n, err := c.db.Collection(c.name).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, model.E(model.KindPersistence, "mongodb.Count", err)
	}
	return n, nil
}

var _ Store = (*MongoDBStore)(nil)
