package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linlinbupt123-crypto/polkadot_wallet/entity"
	wrapErrors "github.com/linlinbupt123-crypto/polkadot_wallet/errors"
)

type AddressRepo struct {
	col *mongo.Collection
}

func NewAddressRepo(col *mongo.Collection) *AddressRepo {
	return &AddressRepo{col: col}
}

func (r *AddressRepo) Create(ctx context.Context, addr *entity.Address) error {
	if _, err := r.col.InsertOne(ctx, addr); err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeStorage, "insert address", err)
	}
	return nil
}

// GetByUserID lists a user's addresses by derivation index.
func (r *AddressRepo) GetByUserID(ctx context.Context, userID string) ([]*entity.Address, error) {
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStorage, "find addresses", err)
	}
	defer cur.Close(ctx)

	out := []*entity.Address{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStorage, "decode addresses", err)
	}
	return out, nil
}

// GetMaxIndex returns the highest derivation index used by walletID on
// chain, or -1 when there is none.
func (r *AddressRepo) GetMaxIndex(ctx context.Context, walletID string, chain string) (int64, error) {
	opts := options.FindOne().SetSort(bson.M{"index": -1})

	var out entity.Address
	err := r.col.FindOne(ctx, bson.M{
		"wallet_id": walletID,
		"chain":     chain,
	}, opts).Decode(&out)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return -1, nil
	}
	if err != nil {
		return -1, wrapErrors.WrapWithCode(wrapErrors.CodeStorage, "max index", err)
	}
	return int64(out.Index), nil
}

// GetByAddress returns nil without error when address is unknown.
func (r *AddressRepo) GetByAddress(ctx context.Context, address string) (*entity.Address, error) {
	var addr entity.Address
	err := r.col.FindOne(ctx, bson.M{"address": address}).Decode(&addr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeStorage, "find address", err)
	}
	return &addr, nil
}
