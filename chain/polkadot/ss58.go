package polkadot

import (
	"errors"
	"fmt"

	subkey "github.com/vedhavyas/go-subkey/v2"
)

// Prefixes above this need more than the two identifier bytes SS58 defines.
const maxSS58Prefix = 16383

var errSS58 = errors.New("invalid ss58 address")

// EncodeSS58 renders a 32 byte account id (or 33 byte ecdsa key) with the
// given network prefix.
func EncodeSS58(pub []byte, prefix uint16) (string, error) {
	if len(pub) != 32 && len(pub) != 33 {
		return "", fmt.Errorf("%w: public key length %d", errSS58, len(pub))
	}
	if prefix > maxSS58Prefix {
		return "", fmt.Errorf("%w: prefix %d out of range", errSS58, prefix)
	}
	return subkey.SS58Encode(pub, prefix), nil
}

// DecodeSS58 returns the account bytes and network prefix of address after
// verifying its checksum.
func DecodeSS58(address string) ([]byte, uint16, error) {
	prefix, pub, err := subkey.SS58Decode(address)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errSS58, err)
	}
	if len(pub) != 32 && len(pub) != 33 {
		return nil, 0, fmt.Errorf("%w: payload length %d", errSS58, len(pub))
	}
	out := make([]byte, len(pub))
	copy(out, pub)
	return out, prefix, nil
}
