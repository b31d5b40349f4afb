package entity

import (
	"time"
)

// Wallet holds one user's mnemonic, encrypted under their passphrase.
type Wallet struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	UserID            string    `bson:"user_id" json:"user_id"`
	Network           string    `bson:"network" json:"network"`
	MnemonicEncrypted []byte    `bson:"mnemonic_encrypted" json:"-"`
	SaltHex           string    `bson:"salt_hex" json:"-"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
}
