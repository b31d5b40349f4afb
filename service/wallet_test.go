package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/domain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/entity"
	"github.com/linlinbupt123-crypto/polkadot_wallet/repository"
)

const devPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

type memWallets struct {
	mu   sync.Mutex
	byID map[string]*entity.Wallet
}

func (m *memWallets) Create(_ context.Context, w *entity.Wallet) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[w.UserID]; ok {
		return "", repository.ErrWalletExists
	}
	w.ID = "w-" + w.UserID
	m.byID[w.UserID] = w
	return w.ID, nil
}

func (m *memWallets) GetByUserID(_ context.Context, userID string) (*entity.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byID[userID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	return w, nil
}

func (m *memWallets) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, w := range m.byID {
		if w.ID == id {
			delete(m.byID, userID)
		}
	}
	return nil
}

type memAddresses struct {
	mu        sync.Mutex
	addrs     []*entity.Address
	createErr error
}

func (m *memAddresses) Create(_ context.Context, a *entity.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.addrs = append(m.addrs, a)
	return nil
}

func (m *memAddresses) GetByUserID(_ context.Context, userID string) ([]*entity.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*entity.Address{}
	for _, a := range m.addrs {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAddresses) GetMaxIndex(_ context.Context, walletID, chainName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	highest := int64(-1)
	for _, a := range m.addrs {
		if a.WalletID == walletID && a.Chain == chainName && int64(a.Index) > highest {
			highest = int64(a.Index)
		}
	}
	return highest, nil
}

func (m *memAddresses) GetByAddress(_ context.Context, address string) (*entity.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.addrs {
		if a.Address == address {
			return a, nil
		}
	}
	return nil, nil
}

// fakeChain derives "addr-<hash>-<index>" addresses and records transfers.
type fakeChain struct {
	network   chain.Network
	phrase    string
	purged    bool
	balance   *big.Int
	balErr    error
	transfers *[]chain.TxParams
}

func (f *fakeChain) SetNetwork(n chain.Network) error {
	if !n.Valid() {
		return chain.ErrInvalidNetwork
	}
	f.network = n
	return nil
}
func (f *fakeChain) Network() chain.Network { return f.network }
func (f *fakeChain) ExplorerURL() string { return "https://explorer.test" }
func (f *fakeChain) ExplorerAddressURL(a string) string { return "https://explorer.test/account/" + a }
func (f *fakeChain) ExplorerTxURL(h string) string { return "https://explorer.test/extrinsic/" + h }
func (f *fakeChain) ValidateAddress(address string) bool { return strings.HasPrefix(address, "addr-") }
func (f *fakeChain) PurgeClient() { f.phrase = ""; f.purged = true }
func (f *fakeChain) Fees(context.Context, *chain.TxParams) (*chain.Fees, error) {
	fee := big.NewInt(100)
	return &chain.Fees{Type: chain.FeeTypeByte, Average: fee, Fast: fee, Fastest: fee}, nil
}

func (f *fakeChain) SetPhrase(phrase string, index uint32) (string, error) {
	if !chain.ValidatePhrase(phrase) {
		return "", chain.ErrInvalidPhrase
	}
	f.phrase = phrase
	return f.Address(index)
}

func (f *fakeChain) Address(index uint32) (string, error) {
	if f.phrase == "" {
		return "", chain.ErrPhraseNotSet
	}
	return addressFor(f.phrase, index), nil
}

func addressFor(phrase string, index uint32) string {
	sum := sha256.Sum256([]byte(phrase))
	return fmt.Sprintf("addr-%s-%d", hex.EncodeToString(sum[:4]), index)
}

func (f *fakeChain) Balance(_ context.Context, address string, _ []chain.Asset) ([]chain.Balance, error) {
	if f.balErr != nil {
		return nil, f.balErr
	}
	return []chain.Balance{{Asset: chain.Asset{Chain: "DOT", Symbol: "DOT"}, Amount: new(big.Int).Set(f.balance)}}, nil
}

func (f *fakeChain) Transactions(_ context.Context, p chain.TxHistoryParams) (*chain.TxsPage, error) {
	return &chain.TxsPage{Total: p.Offset + p.Limit, Txs: []chain.Tx{{Hash: "0x01"}}}, nil
}

func (f *fakeChain) TransactionData(_ context.Context, hash string) (*chain.Tx, error) {
	if hash != "0x01" {
		return nil, chain.ErrTxNotFound
	}
	return &chain.Tx{Hash: hash}, nil
}

func (f *fakeChain) Transfer(_ context.Context, p chain.TxParams) (string, error) {
	if f.phrase == "" {
		return "", chain.ErrPhraseNotSet
	}
	*f.transfers = append(*f.transfers, p)
	return fmt.Sprintf("0x%02d", len(*f.transfers)), nil
}

type fixture struct {
	svc       *WalletService
	wallets   *memWallets
	addresses *memAddresses
	reader    *fakeChain
	transfers []chain.TxParams
	clients   []*fakeChain
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		wallets:   &memWallets{byID: map[string]*entity.Wallet{}},
		addresses: &memAddresses{},
	}
	f.reader = &fakeChain{network: chain.Testnet, balance: big.NewInt(42), transfers: &f.transfers}
	factory := func(phrase string) (chain.Client, error) {
		c := &fakeChain{network: chain.Mainnet, transfers: &f.transfers}
		if _, err := c.SetPhrase(phrase, 0); err != nil {
			return nil, err
		}
		f.clients = append(f.clients, c)
		return c, nil
	}
	f.svc = NewWalletService(domain.NewKeystore(1000, 12), f.wallets, f.addresses, f.reader, factory, zaptest.NewLogger(t))
	return f
}

func TestCreateWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateWallet(ctx, "u1", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, created.Phrase)
	assert.Equal(t, "w-u1", created.Wallet.ID)
	assert.Equal(t, "testnet", created.Wallet.Network)
	assert.Equal(t, addressFor(created.Phrase, 0), created.Address.Address)
	assert.Equal(t, uint32(0), created.Address.Index)
	assert.Equal(t, "DOT", created.Address.Chain)
	assert.Equal(t, "w-u1", created.Address.WalletID)

	for _, c := range f.clients {
		assert.True(t, c.purged)
	}

	_, err = f.svc.CreateWallet(ctx, "u1", "pw")
	require.ErrorIs(t, err, repository.ErrWalletExists)
}

func TestCreateWalletRollsBackOnAddressFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addresses.createErr = errors.New("insert address: connection reset")

	_, err := f.svc.ImportWallet(ctx, "u1", devPhrase, "pw")
	require.ErrorIs(t, err, f.addresses.createErr)

	_, err = f.wallets.GetByUserID(ctx, "u1")
	require.ErrorIs(t, err, repository.ErrWalletNotFound, "half-created wallet must be removed")

	f.addresses.createErr = nil
	created, err := f.svc.ImportWallet(ctx, "u1", devPhrase, "pw")
	require.NoError(t, err)
	assert.Equal(t, addressFor(devPhrase, 0), created.Address.Address)
}

func TestImportWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.ImportWallet(ctx, "u1", "  "+devPhrase+"  ", "pw")
	require.NoError(t, err)
	assert.Empty(t, created.Phrase)
	assert.Equal(t, addressFor(devPhrase, 0), created.Address.Address)

	_, err = f.svc.ImportWallet(ctx, "u2", "not a phrase", "pw")
	require.ErrorIs(t, err, chain.ErrInvalidPhrase)

	_, err = f.svc.ImportWallet(ctx, "u1", devPhrase, "pw")
	require.ErrorIs(t, err, repository.ErrWalletExists)
}

func TestDeriveNewAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.ImportWallet(ctx, "u1", devPhrase, "pw")
	require.NoError(t, err)

	a1, err := f.svc.DeriveNewAddress(ctx, "u1", "pw")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), a1.Index)
	assert.Equal(t, addressFor(devPhrase, 1), a1.Address)

	a2, err := f.svc.DeriveNewAddress(ctx, "u1", "pw")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), a2.Index)

	addrs, err := f.svc.GetAddresses(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, addrs, 3)

	_, err = f.svc.DeriveNewAddress(ctx, "u1", "wrong")
	require.ErrorIs(t, err, domain.ErrWrongPassphrase)

	_, err = f.svc.DeriveNewAddress(ctx, "nobody", "pw")
	require.ErrorIs(t, err, repository.ErrWalletNotFound)
}

func TestGetBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.ImportWallet(ctx, "u1", devPhrase, "pw")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.svc.DeriveNewAddress(ctx, "u1", "pw")
		require.NoError(t, err)
	}

	out, err := f.svc.GetBalances(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, out, 6)
	for i, b := range out {
		assert.Equal(t, uint32(i), b.Index)
		assert.Equal(t, addressFor(devPhrase, uint32(i)), b.Address)
		require.Len(t, b.Balances, 1)
		assert.Equal(t, "42", b.Balances[0].Amount.String())
	}

	f.reader.balErr = errors.New("node down")
	_, err = f.svc.GetBalances(ctx, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node down")

	_, err = f.svc.GetBalances(ctx, "nobody")
	require.ErrorIs(t, err, repository.ErrWalletNotFound)
}

func TestQueriesUseReader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.svc.GetTransactions(ctx, "addr-x", 20, 10)
	require.NoError(t, err)
	assert.Equal(t, 30, page.Total)

	tx, err := f.svc.GetTransaction(ctx, "0x01")
	require.NoError(t, err)
	assert.Equal(t, "0x01", tx.Hash)

	_, err = f.svc.GetTransaction(ctx, "0xff")
	require.ErrorIs(t, err, chain.ErrTxNotFound)

	fees, err := f.svc.EstimateFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", fees.Average.String())

	assert.True(t, f.svc.ValidateAddress("addr-1"))
	assert.False(t, f.svc.ValidateAddress("5Grw"))
	assert.Equal(t, "https://explorer.test/extrinsic/0x01", f.svc.ExplorerTxURL("0x01"))
}

func TestSendTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.ImportWallet(ctx, "u1", devPhrase, "pw")
	require.NoError(t, err)
	second, err := f.svc.DeriveNewAddress(ctx, "u1", "pw")
	require.NoError(t, err)

	hash, err := f.svc.SendTransaction(ctx, "u1", "pw", SendParams{
		From:   second.Address,
		To:     "addr-dest",
		Amount: big.NewInt(500),
		Memo:   "rent",
	})
	require.NoError(t, err)
	assert.Equal(t, "0x01", hash)
	require.Len(t, f.transfers, 1)
	assert.Equal(t, uint32(1), f.transfers[0].WalletIndex)
	assert.Equal(t, "rent", f.transfers[0].Memo)
	assert.Equal(t, "addr-dest", f.transfers[0].Recipient)

	signer := f.clients[len(f.clients)-1]
	assert.True(t, signer.purged)
	assert.Equal(t, chain.Testnet, signer.network)

	_, err = f.svc.SendTransaction(ctx, "u1", "pw", SendParams{To: "addr-dest", Amount: big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), f.transfers[1].WalletIndex)
}

func TestSendTransactionRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.ImportWallet(ctx, "u1", devPhrase, "pw")
	require.NoError(t, err)
	other, err := f.svc.CreateWallet(ctx, "u2", "pw2")
	require.NoError(t, err)

	cases := []struct {
		name       string
		passphrase string
		params     SendParams
		want       error
	}{
		{"zero amount", "pw", SendParams{To: "addr-d", Amount: big.NewInt(0)}, chain.ErrInvalidAmount},
		{"nil amount", "pw", SendParams{To: "addr-d"}, chain.ErrInvalidAmount},
		{"bad recipient", "pw", SendParams{To: "5Grw", Amount: big.NewInt(1)}, chain.ErrInvalidAddress},
		{"wrong passphrase", "nope", SendParams{To: "addr-d", Amount: big.NewInt(1)}, domain.ErrWrongPassphrase},
		{"unknown from", "pw", SendParams{From: "addr-unknown", To: "addr-d", Amount: big.NewInt(1)}, ErrAddressNotOwned},
		{"someone else's from", "pw", SendParams{From: other.Address.Address, To: "addr-d", Amount: big.NewInt(1)}, ErrAddressNotOwned},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SendTransaction(ctx, "u1", tc.passphrase, tc.params)
			require.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.transfers)
}
