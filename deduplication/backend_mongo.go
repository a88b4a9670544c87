package deduplication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoStateID = "warn_state"

type mongoStateDoc struct {
	ID          string `bson:"_id"`
	StateRecord `bson:",inline"`
}

// MongoBackend keeps the state as one document. ReplaceOne swaps the whole
// document, so readers see either the old or the new state.
type MongoBackend struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoBackend connects and pings the server.
func NewMongoBackend(ctx context.Context, uri, database, collection string) (*MongoBackend, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	return &MongoBackend{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (m *MongoBackend) Name() string {
	return "mongo:" + m.collection.Database().Name() + "." + m.collection.Name()
}

func (m *MongoBackend) Read(ctx context.Context) (*StateRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc mongoStateDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": mongoStateID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc.StateRecord, nil
}

func (m *MongoBackend) Write(ctx context.Context, rec *StateRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := mongoStateDoc{ID: mongoStateID, StateRecord: *rec}
	opts := options.Replace().SetUpsert(true)
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": mongoStateID}, doc, opts)
	return err
}

// Close disconnects the client.
func (m *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
