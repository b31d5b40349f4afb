/*
user_id → unique index
Network / MnemonicEncrypted / SaltHex / CreatedAt
*/
package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linlinbupt123-crypto/polkadot_wallet/entity"
	wrapErrors "github.com/linlinbupt123-crypto/polkadot_wallet/errors"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet already exists")
)

type Wallet struct {
	col *mongo.Collection
}

func NewWalletRepo(col *mongo.Collection) *Wallet {
	return &Wallet{col: col}
}

// Create inserts w and sets its ID.
func (r *Wallet) Create(ctx context.Context, w *entity.Wallet) (string, error) {
	res, err := r.col.InsertOne(ctx, w)
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrWalletExists
	}
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeStorage, "insert wallet", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		w.ID = oid.Hex()
	}
	return w.ID, nil
}

func (r *Wallet) GetByUserID(ctx context.Context, userID string) (*entity.Wallet, error) {
	var w entity.Wallet
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStorage, "find wallet", err)
	}
	return &w, nil
}

// Delete removes the wallet with id. Deleting a missing wallet is not an error.
func (r *Wallet) Delete(ctx context.Context, id string) error {
	var filter bson.M
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		filter = bson.M{"_id": oid}
	} else {
		filter = bson.M{"_id": id}
	}
	if _, err := r.col.DeleteOne(ctx, filter); err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeStorage, "delete wallet", err)
	}
	return nil
}
