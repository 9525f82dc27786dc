package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	answersCollection  = "answers"
	contentsCollection = "contents"
)

var ErrNotFound = errors.New("db: document not found")

// Store persists wizard answers and committed content in MongoDB.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect dials uri and pings the server before returning.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("db: empty MongoDB URI")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Store{client: client, database: client.Database(database)}, nil
}

// NewStore wraps an existing database handle.
func NewStore(database *mongo.Database) *Store {
	return &Store{client: database.Client(), database: database}
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.database.Collection(name)
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
