package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/linlinbupt123-crypto/polkadot_wallet/config"
	"github.com/linlinbupt123-crypto/polkadot_wallet/db"
	"github.com/linlinbupt123-crypto/polkadot_wallet/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := db.NewMongoRepo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect failed", zap.Error(err))
	}
	defer func() {
		if err := repo.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()

	if err := initIndexes(ctx, repo.DB); err != nil {
		logger.Error("init indexes failed", zap.Error(err))
		return
	}
	logger.Info("all indexes initialized", zap.String("db", cfg.MongoDB))
}

// IndexOptionsConflict and IndexKeySpecsConflict mean an index with the same
// name already exists.
func isIndexConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 85 || cmdErr.Code == 86
	}
	return false
}

func createIndexSafe(ctx context.Context, col *mongo.Collection, index mongo.IndexModel) error {
	_, err := col.Indexes().CreateOne(ctx, index)
	if err != nil && !isIndexConflict(err) {
		return err
	}
	return nil
}

func initIndexes(ctx context.Context, database *mongo.Database) error {
	addrCol := database.Collection(db.AddressCollection)
	addrIndexes := []mongo.IndexModel{
		{Keys: bson.M{"address": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"user_id": 1}},
		{Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "chain", Value: 1}, {Key: "index", Value: -1}}},
	}
	for _, idx := range addrIndexes {
		if err := createIndexSafe(ctx, addrCol, idx); err != nil {
			return fmt.Errorf("addresses index error: %w", err)
		}
	}

	walletCol := database.Collection(db.WalletCollection)
	walletIndexes := []mongo.IndexModel{
		{Keys: bson.M{"user_id": 1}, Options: options.Index().SetUnique(true)},
	}
	for _, idx := range walletIndexes {
		if err := createIndexSafe(ctx, walletCol, idx); err != nil {
			return fmt.Errorf("wallets index error: %w", err)
		}
	}
	return nil
}
