// Package mongo stores documents in a single MongoDB collection, one record
// per (collection path, key).
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/example/event-roster/internal/persistence"
)

// DefaultCollection is the MongoDB collection holding every document.
const DefaultCollection = "documents"

// Config describes how to reach MongoDB.
type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// record is the stored shape. Data carries the document fields.
type record struct {
	ID         string         `bson:"_id"`
	Collection string         `bson:"collection"`
	Key        string         `bson:"key"`
	Data       map[string]any `bson:"data"`
}

// Store implements persistence.Store on MongoDB.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ persistence.Store = (*Store)(nil)

// Connect creates a client, verifies the deployment answers a ping and
// ensures the lookup index exists.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("mongo: URI is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, errors.New("mongo: database is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	store := &Store{client: client, coll: client.Database(cfg.Database).Collection(cfg.Collection)}
	if _, err := store.coll.Indexes().CreateOne(pingCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "collection", Value: 1}, {Key: "key", Value: 1}},
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: create index: %w", err)
	}
	return store, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Get returns the document stored under (collection, key).
func (s *Store) Get(ctx context.Context, collection, key string) (persistence.Document, error) {
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"_id": recordID(collection, key)}).Decode(&rec)
	if err != nil {
		return nil, mapError(err)
	}
	return toDocument(rec.Data)
}

// Put replaces the whole document.
func (s *Store) Put(ctx context.Context, collection, key string, doc persistence.Document) error {
	if err := persistence.ValidateRef(collection, key); err != nil {
		return err
	}
	normalized, err := persistence.Normalize(doc)
	if err != nil {
		return err
	}
	rec := record{
		ID:         recordID(collection, key),
		Collection: collection,
		Key:        key,
		Data:       normalized,
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	return mapError(err)
}

// Merge sets the supplied top-level fields with a single $set.
func (s *Store) Merge(ctx context.Context, collection, key string, fields persistence.Document) error {
	if err := persistence.ValidateRef(collection, key); err != nil {
		return err
	}
	normalized, err := persistence.Normalize(fields)
	if err != nil {
		return err
	}
	set := bson.M{"collection": collection, "key": key}
	if len(normalized) == 0 {
		set["data"] = bson.M{}
	}
	for field, value := range normalized {
		set["data."+field] = value
	}
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": recordID(collection, key)},
		bson.M{"$set": set},
		options.UpdateOne().SetUpsert(true),
	)
	return mapError(err)
}

// Append pushes value onto the array in field with a single $push.
func (s *Store) Append(ctx context.Context, collection, key, field string, value any) error {
	normalized, err := persistence.NormalizeValue(value)
	if err != nil {
		return err
	}
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": recordID(collection, key)},
		bson.M{"$push": bson.M{"data." + field: normalized}},
	)
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// Delete removes the document.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": recordID(collection, key)})
	if err != nil {
		return mapError(err)
	}
	if result.DeletedCount == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// List returns the documents of collection ordered by key.
func (s *Store) List(ctx context.Context, collection string) ([]persistence.Snapshot, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"collection": collection},
		options.Find().SetSort(bson.D{{Key: "key", Value: 1}}),
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	snapshots := make([]persistence.Snapshot, 0)
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, mapError(err)
		}
		doc, err := toDocument(rec.Data)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, persistence.Snapshot{Key: rec.Key, Data: doc})
	}
	if err := cursor.Err(); err != nil {
		return nil, mapError(err)
	}
	return snapshots, nil
}

func recordID(collection, key string) string {
	return collection + "/" + key
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return persistence.ErrNotFound
	}
	return fmt.Errorf("mongo: %w", err)
}

// toDocument converts decoded BSON into the JSON data model shared by every
// backend.
func toDocument(data map[string]any) (persistence.Document, error) {
	plain, ok := plainValue(data).(map[string]any)
	if !ok {
		return persistence.Document{}, nil
	}
	return persistence.Normalize(plain)
}

func plainValue(v any) any {
	switch typed := v.(type) {
	case nil:
		return nil
	case bson.D:
		out := make(map[string]any, len(typed))
		for _, elem := range typed {
			out[elem.Key] = plainValue(elem.Value)
		}
		return out
	case bson.M:
		return plainValue(map[string]any(typed))
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = plainValue(item)
		}
		return out
	case bson.A:
		return plainValue([]any(typed))
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = plainValue(item)
		}
		return out
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case bson.DateTime:
		return typed.Time().UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
