package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	WalletCollection  = "wallets"
	AddressCollection = "addresses"
)

type MongoRepo struct {
	Client     *mongo.Client
	DB         *mongo.Database
	WalletColl *mongo.Collection
	AddrColl   *mongo.Collection
}

// NewMongoRepo connects and pings before returning.
func NewMongoRepo(ctx context.Context, uri, dbName string) (*MongoRepo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	db := client.Database(dbName)
	return &MongoRepo{
		Client:     client,
		DB:         db,
		WalletColl: db.Collection(WalletCollection),
		AddrColl:   db.Collection(AddressCollection),
	}, nil
}

func (m *MongoRepo) Disconnect(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
