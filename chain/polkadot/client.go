package polkadot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	wrapErrors "github.com/linlinbupt123-crypto/polkadot_wallet/errors"
	"github.com/linlinbupt123-crypto/polkadot_wallet/retry"
	"github.com/linlinbupt123-crypto/polkadot_wallet/utils"
)

const defaultPageSize = 10

var _ chain.Client = (*Client)(nil)

type ClientParams struct {
	Network          chain.Network
	Phrase           string
	DerivationPrefix string
	// Params overrides the built-in per-network parameters.
	Params        map[chain.Network]Params
	IndexerAPIKey string
	HTTPClient    *http.Client
	Timeout       time.Duration
	Retry         retry.Config
	Logger        *zap.Logger
}

type Option func(*Client)

// WithNodeDialer replaces the go-substrate-rpc-client dialer.
func WithNodeDialer(d NodeDialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithIndexerFactory replaces the Subscan client built for each network.
func WithIndexerFactory(f func(Params) Indexer) Option {
	return func(c *Client) { c.newIndexer = f }
}

// Client implements chain.Client for Polkadot and Westend. The node
// connection is opened on first use and kept until the network changes or
// the client is purged. Safe for concurrent use.
type Client struct {
	logger           *zap.Logger
	params           map[chain.Network]Params
	derivationPrefix string
	dial             NodeDialer
	newIndexer       func(Params) Indexer

	mu        sync.Mutex
	network   chain.Network
	phrase    string
	conn      *nodeConn
	nodeGen   uint64
	indexers  map[chain.Network]Indexer
	feeSigner *signature.KeyringPair
}

// nodeConn counts the calls using a node. A retired connection is closed
// when its last user releases it.
type nodeConn struct {
	node    Node
	users   int
	retired bool
}

func NewClient(p ClientParams, opts ...Option) (*Client, error) {
	if p.Network == "" {
		p.Network = chain.Mainnet
	}
	if !p.Network.Valid() {
		return nil, fmt.Errorf("%w: %q", chain.ErrInvalidNetwork, p.Network)
	}
	if _, err := chain.ParseJunctions(p.DerivationPrefix); err != nil {
		return nil, err
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	params := make(map[chain.Network]Params, len(defaultParams))
	for n, def := range defaultParams {
		params[n] = def
	}
	for n, override := range p.Params {
		params[n] = override
	}

	c := &Client{
		logger:           p.Logger.With(zap.String("chain", utils.ChainDOT)),
		params:           params,
		derivationPrefix: p.DerivationPrefix,
		network:          p.Network,
		indexers:         map[chain.Network]Indexer{},
	}
	c.dial = RPCDialer(c.logger)
	c.newIndexer = func(np Params) Indexer {
		return NewSubscan(SubscanOpts{
			BaseURL:    np.Indexer,
			APIKey:     p.IndexerAPIKey,
			Timeout:    p.Timeout,
			HTTPClient: p.HTTPClient,
			Retry:      p.Retry,
			Logger:     c.logger,
		})
	}
	for _, opt := range opts {
		opt(c)
	}

	if p.Phrase != "" {
		if _, err := c.SetPhrase(p.Phrase, 0); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) currentParams() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params[c.network]
}

func (c *Client) SetNetwork(network chain.Network) error {
	if !network.Valid() {
		return fmt.Errorf("%w: %q", chain.ErrInvalidNetwork, network)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.network == network {
		return nil
	}
	c.closeNodeLocked()
	c.network = network
	c.logger.Info("network changed", zap.String("network", network.String()))
	return nil
}

func (c *Client) Network() chain.Network {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.network
}

func (c *Client) ExplorerURL() string {
	return c.currentParams().Explorer
}

func (c *Client) ExplorerAddressURL(address string) string {
	return fmt.Sprintf("%s/account/%s", c.ExplorerURL(), address)
}

func (c *Client) ExplorerTxURL(txID string) string {
	return fmt.Sprintf("%s/extrinsic/%s", c.ExplorerURL(), txID)
}

func (c *Client) SetPhrase(phrase string, index uint32) (string, error) {
	phrase = chain.NormalizePhrase(phrase)
	if !chain.ValidatePhrase(phrase) {
		return "", chain.ErrInvalidPhrase
	}
	p := c.currentParams()
	kp, err := deriveKeyPair(phrase, c.derivationPrefix, index, p.SS58Prefix)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.phrase = phrase
	c.mu.Unlock()
	return kp.Address, nil
}

func (c *Client) keyPair(index uint32) (signature.KeyringPair, Params, error) {
	c.mu.Lock()
	phrase, p := c.phrase, c.params[c.network]
	c.mu.Unlock()

	if phrase == "" {
		return signature.KeyringPair{}, p, chain.ErrPhraseNotSet
	}
	kp, err := deriveKeyPair(phrase, c.derivationPrefix, index, p.SS58Prefix)
	return kp, p, err
}

func (c *Client) Address(index uint32) (string, error) {
	kp, _, err := c.keyPair(index)
	if err != nil {
		return "", err
	}
	return kp.Address, nil
}

// PublicKey returns the hex encoded account id at index.
func (c *Client) PublicKey(index uint32) (string, error) {
	kp, _, err := c.keyPair(index)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(kp.PublicKey), nil
}

func (c *Client) ValidateAddress(address string) bool {
	_, err := c.accountID(address, c.currentParams())
	return err == nil
}

func (c *Client) accountID(address string, p Params) ([]byte, error) {
	pub, prefix, err := DecodeSS58(strings.TrimSpace(address))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrInvalidAddress, err)
	}
	if prefix != p.SS58Prefix {
		return nil, fmt.Errorf("%w: prefix %d is not %s", chain.ErrInvalidAddress, prefix, p.Network)
	}
	if len(pub) != 32 {
		return nil, fmt.Errorf("%w: not an sr25519/ed25519 account", chain.ErrInvalidAddress)
	}
	return pub, nil
}

// acquireNode returns a connection to p's node; callers must releaseNode it.
// The dial runs without holding c.mu. If the network moved on while dialing,
// the fresh connection serves only this call.
func (c *Client) acquireNode(ctx context.Context, p Params) (*nodeConn, error) {
	c.mu.Lock()
	if c.conn != nil && c.network == p.Network {
		c.conn.users++
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	gen := c.nodeGen
	c.mu.Unlock()

	node, err := c.dial(ctx, p.RPC)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case gen != c.nodeGen || c.network != p.Network:
		return &nodeConn{node: node, users: 1, retired: true}, nil
	case c.conn != nil:
		// lost a dial race; share the installed connection
		node.Close()
		c.conn.users++
		return c.conn, nil
	}
	c.conn = &nodeConn{node: node, users: 1}
	return c.conn, nil
}

func (c *Client) releaseNode(conn *nodeConn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn.users--
	if conn.retired && conn.users == 0 {
		conn.node.Close()
	}
}

func (c *Client) getIndexer() (Indexer, Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.params[c.network]
	idx, ok := c.indexers[c.network]
	if !ok {
		idx = c.newIndexer(p)
		c.indexers[c.network] = idx
	}
	return idx, p
}

// closeNodeLocked retires the current connection. Calls still using it keep
// it open until they release it.
func (c *Client) closeNodeLocked() {
	c.nodeGen++
	if c.conn == nil {
		return
	}
	c.conn.retired = true
	if c.conn.users == 0 {
		c.conn.node.Close()
	}
	c.conn = nil
}

func (c *Client) PurgeClient() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phrase = ""
	c.closeNodeLocked()
}

func (c *Client) checkAssets(assets []chain.Asset, p Params) error {
	for _, a := range assets {
		if a.String() != p.Asset.String() {
			return fmt.Errorf("%w: %s", chain.ErrUnsupportedAsset, a)
		}
	}
	return nil
}

func (c *Client) Balance(ctx context.Context, address string, assets []chain.Asset) ([]chain.Balance, error) {
	p := c.currentParams()
	pub, err := c.accountID(address, p)
	if err != nil {
		return nil, err
	}
	if err := c.checkAssets(assets, p); err != nil {
		return nil, err
	}
	conn, err := c.acquireNode(ctx, p)
	if err != nil {
		return nil, err
	}
	defer c.releaseNode(conn)
	free, err := conn.node.FreeBalance(ctx, pub)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeBalance, "balance of "+address, err)
	}
	return []chain.Balance{{Asset: p.Asset, Amount: free}}, nil
}

func (c *Client) Transactions(ctx context.Context, params chain.TxHistoryParams) (*chain.TxsPage, error) {
	indexer, p := c.getIndexer()
	if _, err := c.accountID(params.Address, p); err != nil {
		return nil, err
	}
	if params.Asset != "" && params.Asset != p.Asset.String() {
		return nil, fmt.Errorf("%w: %s", chain.ErrUnsupportedAsset, params.Asset)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	data, err := indexer.Transfers(ctx, params.Address, limit, offset/limit)
	if err != nil {
		return nil, err
	}

	page := &chain.TxsPage{Total: data.Count, Txs: make([]chain.Tx, 0, len(data.Transfers))}
	for _, t := range data.Transfers {
		tx, err := txFromTransfer(t, p)
		if err != nil {
			return nil, err
		}
		if params.StartTime != nil && tx.Date.Before(*params.StartTime) {
			continue
		}
		page.Txs = append(page.Txs, tx)
	}
	return page, nil
}

func (c *Client) TransactionData(ctx context.Context, txID string) (*chain.Tx, error) {
	indexer, p := c.getIndexer()
	data, err := indexer.Extrinsic(ctx, txID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", chain.ErrTxNotFound, txID)
	}
	return txFromExtrinsic(data, p)
}

func (c *Client) feeKeyPair(index uint32) (signature.KeyringPair, error) {
	kp, _, err := c.keyPair(index)
	if err == nil {
		return kp, nil
	}
	if !errors.Is(err, chain.ErrPhraseNotSet) {
		return kp, err
	}

	// without a phrase, fees are quoted for a throwaway account
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.feeSigner != nil {
		return *c.feeSigner, nil
	}
	phrase, err := chain.GeneratePhrase(utils.DefaultMnemonicWords)
	if err != nil {
		return signature.KeyringPair{}, err
	}
	kp, err = deriveKeyPair(phrase, "", 0, c.params[c.network].SS58Prefix)
	if err != nil {
		return signature.KeyringPair{}, err
	}
	c.feeSigner = &kp
	return kp, nil
}

// Fees quotes the partial fee of a transfer. A substrate fee does not depend
// on priority, so every option carries the same value.
func (c *Client) Fees(ctx context.Context, params *chain.TxParams) (*chain.Fees, error) {
	p := c.currentParams()
	var tp chain.TxParams
	if params != nil {
		tp = *params
	}
	signer, err := c.feeKeyPair(tp.WalletIndex)
	if err != nil {
		return nil, err
	}

	call := TransferCall{Dest: signer.PublicKey, Amount: big.NewInt(1), Memo: tp.Memo}
	if tp.Amount != nil && tp.Amount.Sign() > 0 {
		call.Amount = tp.Amount
	}
	if tp.Recipient != "" {
		dest, err := c.accountID(tp.Recipient, p)
		if err != nil {
			return nil, err
		}
		call.Dest = dest
	}

	conn, err := c.acquireNode(ctx, p)
	if err != nil {
		return nil, err
	}
	defer c.releaseNode(conn)
	fee, err := conn.node.EstimateFee(ctx, signer, call)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeFeeEstimate, "estimate fee", err)
	}
	return &chain.Fees{
		Type:    chain.FeeTypeByte,
		Average: fee,
		Fast:    new(big.Int).Set(fee),
		Fastest: new(big.Int).Set(fee),
	}, nil
}

// Transfer signs and broadcasts a keep-alive transfer from the account at
// params.WalletIndex. A memo is attached as a remark in the same batch.
func (c *Client) Transfer(ctx context.Context, params chain.TxParams) (string, error) {
	if params.Amount == nil || params.Amount.Sign() <= 0 {
		return "", chain.ErrInvalidAmount
	}
	signer, p, err := c.keyPair(params.WalletIndex)
	if err != nil {
		return "", err
	}
	if params.Asset != nil {
		if err := c.checkAssets([]chain.Asset{*params.Asset}, p); err != nil {
			return "", err
		}
	}
	dest, err := c.accountID(params.Recipient, p)
	if err != nil {
		return "", err
	}

	conn, err := c.acquireNode(ctx, p)
	if err != nil {
		return "", err
	}
	defer c.releaseNode(conn)
	node := conn.node
	call := TransferCall{Dest: dest, Amount: params.Amount, Memo: params.Memo}

	fee, err := node.EstimateFee(ctx, signer, call)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeFeeEstimate, "estimate fee", err)
	}
	free, err := node.FreeBalance(ctx, signer.PublicKey)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeBalance, "balance of "+signer.Address, err)
	}
	need := new(big.Int).Add(params.Amount, fee)
	if free.Cmp(need) < 0 {
		return "", fmt.Errorf("%w: have %s, need %s", chain.ErrInsufficientFunds,
			utils.FromBaseAmount(free, p.Decimals), utils.FromBaseAmount(need, p.Decimals))
	}

	hash, err := node.SubmitTransfer(ctx, signer, call)
	if err != nil {
		return "", err
	}
	c.logger.Info("transfer submitted",
		zap.String("network", p.Network.String()),
		zap.String("from", signer.Address),
		zap.String("to", params.Recipient),
		zap.String("amount", params.Amount.String()),
		zap.String("fee", fee.String()),
		zap.String("hash", hash))
	return hash, nil
}
