package entity

import (
	"time"
)

type Address struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	WalletID  string    `bson:"wallet_id" json:"wallet_id"`
	Chain     string    `bson:"chain" json:"chain"`     // DOT
	Network   string    `bson:"network" json:"network"` // mainnet / testnet
	Address   string    `bson:"address" json:"address"` // ss58
	Index     uint32    `bson:"index" json:"index"`     // derivation index
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
