package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"
)

type Network string

const (
	Mainnet  Network = "mainnet"
	Testnet  Network = "testnet"
	Stagenet Network = "stagenet"
)

func (n Network) Valid() bool {
	switch n {
	case Mainnet, Testnet, Stagenet:
		return true
	}
	return false
}

func (n Network) String() string {
	return string(n)
}

// Asset identifies a token on a chain, rendered as CHAIN.SYMBOL.
type Asset struct {
	Chain  string `json:"chain"`
	Symbol string `json:"symbol"`
	Ticker string `json:"ticker"`
}

func (a Asset) String() string {
	return fmt.Sprintf("%s.%s", a.Chain, a.Symbol)
}

// Balance amounts are always in base units (planck for Polkadot).
type Balance struct {
	Asset  Asset    `json:"asset"`
	Amount *big.Int `json:"amount"`
}

type TxType string

const (
	TxTransfer TxType = "transfer"
	TxUnknown  TxType = "unknown"
)

type TxFrom struct {
	From   string   `json:"from"`
	Amount *big.Int `json:"amount"`
}

type TxTo struct {
	To     string   `json:"to"`
	Amount *big.Int `json:"amount"`
}

type Tx struct {
	Asset   Asset     `json:"asset"`
	From    []TxFrom  `json:"from"`
	To      []TxTo    `json:"to"`
	Date    time.Time `json:"date"`
	Type    TxType    `json:"type"`
	Hash    string    `json:"hash"`
	Height  uint64    `json:"height"`
	Fee     *big.Int  `json:"fee,omitempty"`
	Success bool      `json:"success"`
}

type TxsPage struct {
	Total int  `json:"total"`
	Txs   []Tx `json:"txs"`
}

type TxHistoryParams struct {
	Address   string
	Offset    int
	Limit     int
	StartTime *time.Time
	Asset     string
}

type TxParams struct {
	WalletIndex uint32
	Asset       *Asset
	Amount      *big.Int
	Recipient   string
	Memo        string
}

type FeeType string

const (
	FeeTypeByte FeeType = "byte"
	FeeTypeBase FeeType = "base"
)

type FeeOption string

const (
	FeeAverage FeeOption = "average"
	FeeFast    FeeOption = "fast"
	FeeFastest FeeOption = "fastest"
)

type Fees struct {
	Type    FeeType  `json:"type"`
	Average *big.Int `json:"average"`
	Fast    *big.Int `json:"fast"`
	Fastest *big.Int `json:"fastest"`
}

func (f *Fees) Get(option FeeOption) *big.Int {
	switch option {
	case FeeFast:
		return f.Fast
	case FeeFastest:
		return f.Fastest
	default:
		return f.Average
	}
}

// Client is the contract every chain adapter implements. Callers hold a
// Client and never need to know which chain sits behind it.
type Client interface {
	SetNetwork(network Network) error
	Network() Network

	ExplorerURL() string
	ExplorerAddressURL(address string) string
	ExplorerTxURL(txID string) string

	// SetPhrase validates phrase, replaces the current one and returns the
	// address at index.
	SetPhrase(phrase string, index uint32) (string, error)
	Address(index uint32) (string, error)
	ValidateAddress(address string) bool

	Balance(ctx context.Context, address string, assets []Asset) ([]Balance, error)
	Transactions(ctx context.Context, params TxHistoryParams) (*TxsPage, error)
	TransactionData(ctx context.Context, txID string) (*Tx, error)
	Fees(ctx context.Context, params *TxParams) (*Fees, error)
	Transfer(ctx context.Context, params TxParams) (string, error)

	// PurgeClient forgets the phrase and releases the node connection.
	PurgeClient()
}
