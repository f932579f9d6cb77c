package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var _ Store = (*Mongo)(nil)

// Connect dials the Mongo deployment at uri and pings it. The timeout bounds
// both server selection and the ping.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, nil
}

// Mongo stores artworks as documents of a collection, one per label.
type Mongo struct {
	collection *mongo.Collection
}

func NewMongo(collection *mongo.Collection) *Mongo {
	return &Mongo{collection: collection}
}

func (m *Mongo) Get(ctx context.Context, label string) (*Artwork, error) {
	var artwork Artwork
	opts := options.FindOne().SetProjection(bson.M{"_id": 0})
	err := m.collection.FindOne(ctx, bson.M{"label": label}, opts).Decode(&artwork)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", label, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find artwork %s: %w", label, err)
	}
	return &artwork, nil
}

// Seed replaces every document of the collection with the given artworks.
func (m *Mongo) Seed(ctx context.Context, artworks []Artwork) (int, error) {
	if _, err := m.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return 0, fmt.Errorf("clear artworks: %w", err)
	}
	if len(artworks) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(artworks))
	for position, artwork := range artworks {
		docs[position] = artwork
	}

	result, err := m.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert artworks: %w", err)
	}
	return len(result.InsertedIDs), nil
}
