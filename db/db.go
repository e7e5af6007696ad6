package db

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo is the MongoDB-backed implementation of store.Store.
type Mongo struct {
	Client *mongo.Client

	UserCollection        *mongo.Collection
	JobListingCollection  *mongo.Collection
	ApplicationCollection *mongo.Collection
	MessagesCollection    *mongo.Collection
}

// Connect dials MongoDB, pings it and binds the collections.
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info().Str("db", database).Msg("connected to MongoDB")

	d := client.Database(database)
	return &Mongo{
		Client:                client,
		UserCollection:        d.Collection("users"),
		JobListingCollection:  d.Collection("joblistings"),
		ApplicationCollection: d.Collection("applications"),
		MessagesCollection:    d.Collection("messages"),
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
