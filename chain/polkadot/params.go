package polkadot

import (
	"strings"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/utils"
)

// Native assets. Westend's token is WND; Polkadot and its stagenet use DOT.
var (
	AssetDOT = chain.Asset{Chain: utils.ChainDOT, Symbol: "DOT", Ticker: "DOT"}
	AssetWND = chain.Asset{Chain: utils.ChainDOT, Symbol: "WND", Ticker: "WND"}
)

// Params describes one network: address format, units and endpoints.
type Params struct {
	Network    chain.Network
	SS58Prefix uint16
	Decimals   int32
	Asset      chain.Asset
	RPC        string
	Indexer    string
	Explorer   string
}

var defaultParams = map[chain.Network]Params{
	chain.Mainnet: {
		Network:    chain.Mainnet,
		SS58Prefix: 0,
		Decimals:   10,
		Asset:      AssetDOT,
		RPC:        "wss://rpc.polkadot.io",
		Indexer:    "https://polkadot.subscan.io",
		Explorer:   "https://polkadot.subscan.io",
	},
	chain.Stagenet: {
		Network:    chain.Stagenet,
		SS58Prefix: 0,
		Decimals:   10,
		Asset:      AssetDOT,
		RPC:        "wss://rpc.polkadot.io",
		Indexer:    "https://polkadot.subscan.io",
		Explorer:   "https://polkadot.subscan.io",
	},
	chain.Testnet: {
		Network:    chain.Testnet,
		SS58Prefix: 42,
		Decimals:   12,
		Asset:      AssetWND,
		RPC:        "wss://westend-rpc.polkadot.io",
		Indexer:    "https://westend.subscan.io",
		Explorer:   "https://westend.subscan.io",
	},
}

// DefaultParams returns the built-in parameters for network.
func DefaultParams(network chain.Network) (Params, bool) {
	p, ok := defaultParams[network]
	return p, ok
}

// Override replaces non-empty endpoints.
func (p Params) Override(rpc, indexer, explorer string) Params {
	if rpc != "" {
		p.RPC = rpc
	}
	if indexer != "" {
		p.Indexer = strings.TrimRight(indexer, "/")
	}
	if explorer != "" {
		p.Explorer = strings.TrimRight(explorer, "/")
	}
	return p
}
