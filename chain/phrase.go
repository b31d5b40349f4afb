package chain

import (
	"fmt"
	"strings"

	bip39 "github.com/tyler-smith/go-bip39"
)

// GeneratePhrase returns a new 12 or 24 word BIP-39 mnemonic.
func GeneratePhrase(words int) (string, error) {
	var bits int
	switch words {
	case 12:
		bits = 128
	case 24:
		bits = 256
	default:
		return "", fmt.Errorf("unsupported mnemonic length %d", words)
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

func ValidatePhrase(phrase string) bool {
	return bip39.IsMnemonicValid(NormalizePhrase(phrase))
}

// NormalizePhrase collapses runs of whitespace so pasted phrases derive the
// same keys as typed ones.
func NormalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(phrase), " ")
}
