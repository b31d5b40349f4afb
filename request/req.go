package request

import (
	"fmt"
	"math/big"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/utils"
)

type CreateWalletReq struct {
	Passphrase string `json:"passphrase" binding:"required"`
}

type ImportWalletReq struct {
	Phrase     string `json:"phrase" binding:"required"`
	Passphrase string `json:"passphrase" binding:"required"`
}

type DeriveAddressReq struct {
	Passphrase string `json:"passphrase" binding:"required"`
}

// SendTxReq carries the amount in display units, e.g. "1.5" DOT.
type SendTxReq struct {
	From       string `json:"from"`
	To         string `json:"to" binding:"required"`
	Amount     string `json:"amount" binding:"required"`
	Memo       string `json:"memo"`
	Passphrase string `json:"passphrase" binding:"required"`
}

// BaseAmount converts Amount to base units.
func (r SendTxReq) BaseAmount(decimals int32) (*big.Int, error) {
	amount, err := utils.ToBaseAmount(r.Amount, decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrInvalidAmount, err)
	}
	if amount.Sign() <= 0 {
		return nil, chain.ErrInvalidAmount
	}
	return amount, nil
}

type TxsQuery struct {
	Offset int `form:"offset" binding:"min=0"`
	Limit  int `form:"limit" binding:"min=0,max=100"`
}
