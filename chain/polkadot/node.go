package polkadot

import (
	"context"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
)

// TransferCall is a balance transfer, optionally batched with a remark
// carrying Memo.
type TransferCall struct {
	Dest   []byte
	Amount *big.Int
	Memo   string
}

// Node is the slice of the substrate RPC the client depends on.
type Node interface {
	FreeBalance(ctx context.Context, accountID []byte) (*big.Int, error)
	EstimateFee(ctx context.Context, signer signature.KeyringPair, call TransferCall) (*big.Int, error)
	SubmitTransfer(ctx context.Context, signer signature.KeyringPair, call TransferCall) (string, error)
	Close()
}

// NodeDialer opens a Node for an RPC endpoint.
type NodeDialer func(ctx context.Context, url string) (Node, error)
