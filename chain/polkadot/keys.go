package polkadot

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	wrapErrors "github.com/linlinbupt123-crypto/polkadot_wallet/errors"
)

// deriveKeyPair returns the sr25519 pair for phrase at index, with its
// address encoded for ss58Prefix.
func deriveKeyPair(phrase, derivationPrefix string, index uint32, ss58Prefix uint16) (signature.KeyringPair, error) {
	suffix, err := chain.DerivationSuffix(derivationPrefix, index)
	if err != nil {
		return signature.KeyringPair{}, err
	}
	kp, err := signature.KeyringPairFromSecret(phrase+suffix, ss58Prefix)
	if err != nil {
		return signature.KeyringPair{}, wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerive, fmt.Sprintf("derive index %d", index), err)
	}
	return kp, nil
}
