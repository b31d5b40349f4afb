package domain

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/entity"
	wrapErrors "github.com/linlinbupt123-crypto/polkadot_wallet/errors"
)

// KDF metadata is packed into SaltHex as "pbkdf2$<iterations>$<hexsalt>" so
// the iteration count can change without breaking stored wallets.
const (
	kdfLabel = "pbkdf2"

	DefaultKDFIterations = 310_000
	saltSize             = 16
)

var (
	ErrWrongPassphrase = errors.New("incorrect passphrase or corrupted data")
	ErrEmptyPassphrase = errors.New("passphrase must not be empty")
)

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func deriveKey(passphrase string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, 32, sha256.New)
}

// encrypt uses AES-256-GCM and returns nonce|ciphertext
func encrypt(data []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrWrongPassphrase
	}
	plain, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}

func encodeSaltMeta(salt []byte, iterations int) string {
	return fmt.Sprintf("%s$%d$%s", kdfLabel, iterations, hex.EncodeToString(salt))
}

func decodeSaltMeta(meta string) ([]byte, int, error) {
	parts := strings.Split(meta, "$")
	if len(parts) != 3 {
		return nil, 0, errors.New("invalid salt metadata format")
	}
	if parts[0] != kdfLabel {
		return nil, 0, fmt.Errorf("unsupported kdf %q", parts[0])
	}
	iter, err := strconv.Atoi(parts[1])
	if err != nil || iter <= 0 {
		return nil, 0, errors.New("invalid kdf iterations")
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, 0, errors.New("invalid salt hex")
	}
	return salt, iter, nil
}

// Keystore seals mnemonics under a user passphrase. It never persists
// anything; callers store the returned entity.
type Keystore struct {
	iterations int
	words      int
}

// NewKeystore returns a keystore generating mnemonics of words length.
// Non-positive iterations fall back to DefaultKDFIterations.
func NewKeystore(iterations, words int) *Keystore {
	if iterations <= 0 {
		iterations = DefaultKDFIterations
	}
	if words == 0 {
		words = 12
	}
	return &Keystore{iterations: iterations, words: words}
}

// Generate creates a fresh mnemonic and seals it. The plain phrase is
// returned once so the caller can show it to the user.
func (k *Keystore) Generate(userID, network, passphrase string) (*entity.Wallet, string, error) {
	phrase, err := chain.GeneratePhrase(k.words)
	if err != nil {
		return nil, "", wrapErrors.WrapWithCode(wrapErrors.CodeKeystore, "generate", err)
	}
	w, err := k.Seal(userID, network, phrase, passphrase)
	if err != nil {
		return nil, "", err
	}
	return w, phrase, nil
}

// Seal validates phrase and encrypts it under passphrase.
func (k *Keystore) Seal(userID, network, phrase, passphrase string) (*entity.Wallet, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	phrase = chain.NormalizePhrase(phrase)
	if !chain.ValidatePhrase(phrase) {
		return nil, chain.ErrInvalidPhrase
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeystore, "salt", err)
	}
	key := deriveKey(passphrase, salt, k.iterations)
	defer clearBytes(key)

	plain := []byte(phrase)
	enc, err := encrypt(plain, key)
	clearBytes(plain)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeystore, "encrypt", err)
	}

	return &entity.Wallet{
		UserID:            userID,
		Network:           network,
		MnemonicEncrypted: enc,
		SaltHex:           encodeSaltMeta(salt, k.iterations),
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// Open decrypts the wallet's mnemonic. A wrong passphrase returns
// ErrWrongPassphrase.
func (k *Keystore) Open(w *entity.Wallet, passphrase string) (string, error) {
	if w == nil {
		return "", errors.New("wallet is nil")
	}
	salt, iterations, err := decodeSaltMeta(w.SaltHex)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeKeystore, "salt metadata", err)
	}
	key := deriveKey(passphrase, salt, iterations)
	defer clearBytes(key)

	plain, err := decrypt(w.MnemonicEncrypted, key)
	if err != nil {
		return "", err
	}
	defer clearBytes(plain)
	return string(plain), nil
}
