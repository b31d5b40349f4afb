package polkadot

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/utils"
)

func transferAmount(t Transfer, p Params) (*big.Int, error) {
	if t.AmountV2 != "" {
		if v, ok := new(big.Int).SetString(t.AmountV2, 10); ok {
			return v, nil
		}
	}
	if t.Amount == "" {
		return new(big.Int), nil
	}
	v, err := utils.ToBaseAmount(t.Amount, p.Decimals)
	if err != nil {
		return nil, fmt.Errorf("transfer %s: %w", t.Hash, err)
	}
	return v, nil
}

// parsePlanck returns nil for empty or malformed values; fees are
// informational and must not fail a history page.
func parsePlanck(s string) *big.Int {
	if s == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return v
}

func txFromTransfer(t Transfer, p Params) (chain.Tx, error) {
	amount, err := transferAmount(t, p)
	if err != nil {
		return chain.Tx{}, err
	}
	return chain.Tx{
		Asset:   p.Asset,
		From:    []chain.TxFrom{{From: t.From, Amount: amount}},
		To:      []chain.TxTo{{To: t.To, Amount: new(big.Int).Set(amount)}},
		Date:    time.Unix(t.BlockTimestamp, 0).UTC(),
		Type:    chain.TxTransfer,
		Hash:    t.Hash,
		Height:  t.BlockNum,
		Fee:     parsePlanck(t.Fee),
		Success: t.Success,
	}, nil
}

// signerAddress normalizes the extrinsic signer to an SS58 address.
func signerAddress(e *ExtrinsicData, p Params) string {
	if e.AccountDisplay != nil && e.AccountDisplay.Address != "" {
		return e.AccountDisplay.Address
	}
	if strings.HasPrefix(e.AccountID, "0x") {
		pub, err := hexutil.Decode(e.AccountID)
		if err == nil {
			if addr, err := EncodeSS58(pub, p.SS58Prefix); err == nil {
				return addr
			}
		}
	}
	return e.AccountID
}

func txFromExtrinsic(e *ExtrinsicData, p Params) (*chain.Tx, error) {
	tx := &chain.Tx{
		Asset:   p.Asset,
		Date:    time.Unix(e.BlockTimestamp, 0).UTC(),
		Type:    chain.TxUnknown,
		Hash:    e.ExtrinsicHash,
		Height:  e.BlockNum,
		Fee:     parsePlanck(e.Fee),
		Success: e.Success,
	}

	if e.Transfer == nil {
		if from := signerAddress(e, p); from != "" {
			tx.From = []chain.TxFrom{{From: from, Amount: new(big.Int)}}
		}
		return tx, nil
	}

	amount, err := transferAmount(*e.Transfer, p)
	if err != nil {
		return nil, err
	}
	tx.Type = chain.TxTransfer
	tx.From = []chain.TxFrom{{From: e.Transfer.From, Amount: amount}}
	tx.To = []chain.TxTo{{To: e.Transfer.To, Amount: new(big.Int).Set(amount)}}
	return tx, nil
}
