// Package mongo stores documents in a MongoDB collection, one record per
// key.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/wordstree/pkg/docstore"
)

type record struct {
	Key     string    `bson:"_id"`
	Data    []byte    `bson:"data"`
	Updated time.Time `bson:"updated"`
}

// Store implements docstore.Store over a collection.
type Store struct {
	coll   *mongo.Collection
	client *mongo.Client // set when Connect created the client
}

// New wraps an existing collection. The caller owns the client.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{coll: client.Database(database).Collection(collection), client: client}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := docstore.CheckKey(key); err != nil {
		return nil, err
	}
	var rec record
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("document %q: %w", key, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := docstore.CheckKey(key); err != nil {
		return err
	}
	rec := record{Key: key, Data: data, Updated: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: key}}, rec, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := docstore.CheckKey(key); err != nil {
		return err
	}
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}})
	return err
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	cur, err := s.coll.Find(ctx, prefixFilter(prefix), options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var keys []string
	for cur.Next(ctx) {
		var rec struct {
			Key string `bson:"_id"`
		}
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		keys = append(keys, rec.Key)
	}
	return keys, cur.Err()
}

// Close disconnects the client if Connect created it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func prefixFilter(prefix string) bson.D {
	if prefix == "" {
		return bson.D{}
	}
	return bson.D{{Key: "_id", Value: bson.D{{Key: "$regex", Value: "^" + regexp.QuoteMeta(prefix)}}}}
}

var _ docstore.Store = (*Store)(nil)
