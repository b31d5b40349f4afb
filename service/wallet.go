package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/domain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/entity"
	wrapErrors "github.com/linlinbupt123-crypto/polkadot_wallet/errors"
	"github.com/linlinbupt123-crypto/polkadot_wallet/repository"
	"github.com/linlinbupt123-crypto/polkadot_wallet/utils"
)

const balanceConcurrency = 4

var ErrAddressNotOwned = errors.New("address does not belong to user")

type WalletStore interface {
	Create(ctx context.Context, w *entity.Wallet) (string, error)
	GetByUserID(ctx context.Context, userID string) (*entity.Wallet, error)
	Delete(ctx context.Context, id string) error
}

type AddressStore interface {
	Create(ctx context.Context, addr *entity.Address) error
	GetByUserID(ctx context.Context, userID string) ([]*entity.Address, error)
	GetMaxIndex(ctx context.Context, walletID string, chain string) (int64, error)
	GetByAddress(ctx context.Context, address string) (*entity.Address, error)
}

// ClientFactory returns a client holding phrase. The service purges it
// after each use.
type ClientFactory func(phrase string) (chain.Client, error)

type WalletService struct {
	keystore  *domain.Keystore
	wallets   WalletStore
	addresses AddressStore
	reader    chain.Client
	newClient ClientFactory
	logger    *zap.Logger
}

// NewWalletService wires the service. reader serves queries and never holds
// a phrase; signing goes through clients built by newClient.
func NewWalletService(
	keystore *domain.Keystore,
	wallets WalletStore,
	addresses AddressStore,
	reader chain.Client,
	newClient ClientFactory,
	logger *zap.Logger,
) *WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletService{
		keystore:  keystore,
		wallets:   wallets,
		addresses: addresses,
		reader:    reader,
		newClient: newClient,
		logger:    logger,
	}
}

// CreatedWallet is returned once at creation; Phrase is empty for imports.
type CreatedWallet struct {
	Wallet  *entity.Wallet  `json:"wallet"`
	Address *entity.Address `json:"address"`
	Phrase  string          `json:"phrase,omitempty"`
}

type AddressBalance struct {
	Address  string          `json:"address"`
	Index    uint32          `json:"index"`
	Balances []chain.Balance `json:"balances"`
}

type SendParams struct {
	// From defaults to the wallet's first address.
	From   string
	To     string
	Amount *big.Int
	Memo   string
}

// CreateWallet generates a mnemonic, stores it sealed under passphrase and
// derives the first address.
func (s *WalletService) CreateWallet(ctx context.Context, userID, passphrase string) (*CreatedWallet, error) {
	if err := s.ensureNoWallet(ctx, userID); err != nil {
		return nil, err
	}
	w, phrase, err := s.keystore.Generate(userID, s.reader.Network().String(), passphrase)
	if err != nil {
		return nil, err
	}
	out, err := s.persist(ctx, w, phrase)
	if err != nil {
		return nil, err
	}
	out.Phrase = phrase
	return out, nil
}

// ImportWallet stores an existing mnemonic for userID.
func (s *WalletService) ImportWallet(ctx context.Context, userID, phrase, passphrase string) (*CreatedWallet, error) {
	if err := s.ensureNoWallet(ctx, userID); err != nil {
		return nil, err
	}
	w, err := s.keystore.Seal(userID, s.reader.Network().String(), phrase, passphrase)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, w, chain.NormalizePhrase(phrase))
}

func (s *WalletService) ensureNoWallet(ctx context.Context, userID string) error {
	_, err := s.wallets.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		return repository.ErrWalletExists
	case errors.Is(err, repository.ErrWalletNotFound):
		return nil
	default:
		return err
	}
}

func (s *WalletService) persist(ctx context.Context, w *entity.Wallet, phrase string) (*CreatedWallet, error) {
	address, err := s.deriveAddress(phrase, 0)
	if err != nil {
		return nil, err
	}
	if _, err := s.wallets.Create(ctx, w); err != nil {
		return nil, err
	}
	addr, err := s.storeAddress(ctx, w, address, 0)
	if err != nil {
		// A wallet without its first address would block the user from
		// retrying, since ensureNoWallet sees it as existing.
		if derr := s.wallets.Delete(context.WithoutCancel(ctx), w.ID); derr != nil {
			s.logger.Error("rollback wallet",
				zap.String("user_id", w.UserID),
				zap.String("wallet_id", w.ID),
				zap.Error(derr))
		}
		return nil, err
	}
	s.logger.Info("wallet created",
		zap.String("user_id", w.UserID),
		zap.String("network", w.Network),
		zap.String("address", address))
	return &CreatedWallet{Wallet: w, Address: addr}, nil
}

func (s *WalletService) deriveAddress(phrase string, index uint32) (string, error) {
	client, err := s.newClient(phrase)
	if err != nil {
		return "", err
	}
	defer client.PurgeClient()
	return client.Address(index)
}

func (s *WalletService) storeAddress(ctx context.Context, w *entity.Wallet, address string, index uint32) (*entity.Address, error) {
	addr := &entity.Address{
		UserID:    w.UserID,
		WalletID:  w.ID,
		Chain:     utils.ChainDOT,
		Network:   w.Network,
		Address:   address,
		Index:     index,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.addresses.Create(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// unlock loads userID's wallet and decrypts its phrase.
func (s *WalletService) unlock(ctx context.Context, userID, passphrase string) (*entity.Wallet, string, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	phrase, err := s.keystore.Open(w, passphrase)
	if err != nil {
		return nil, "", err
	}
	return w, phrase, nil
}

// DeriveNewAddress derives and stores the address after the highest index in
// use.
func (s *WalletService) DeriveNewAddress(ctx context.Context, userID, passphrase string) (*entity.Address, error) {
	w, phrase, err := s.unlock(ctx, userID, passphrase)
	if err != nil {
		return nil, err
	}
	maxIndex, err := s.addresses.GetMaxIndex(ctx, w.ID, utils.ChainDOT)
	if err != nil {
		return nil, err
	}
	next := uint32(maxIndex + 1)

	address, err := s.deriveAddress(phrase, next)
	if err != nil {
		return nil, err
	}
	return s.storeAddress(ctx, w, address, next)
}

func (s *WalletService) GetAddresses(ctx context.Context, userID string) ([]*entity.Address, error) {
	if _, err := s.wallets.GetByUserID(ctx, userID); err != nil {
		return nil, err
	}
	return s.addresses.GetByUserID(ctx, userID)
}

// GetBalances queries every address of userID concurrently.
func (s *WalletService) GetBalances(ctx context.Context, userID string) ([]AddressBalance, error) {
	addrs, err := s.GetAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]AddressBalance, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceConcurrency)
	for i, a := range addrs {
		i, a := i, a
		g.Go(func() error {
			balances, err := s.reader.Balance(gctx, a.Address, nil)
			if err != nil {
				return fmt.Errorf("balance of %s: %w", a.Address, err)
			}
			out[i] = AddressBalance{Address: a.Address, Index: a.Index, Balances: balances}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WalletService) GetTransactions(ctx context.Context, address string, offset, limit int) (*chain.TxsPage, error) {
	return s.reader.Transactions(ctx, chain.TxHistoryParams{
		Address: address,
		Offset:  offset,
		Limit:   limit,
	})
}

func (s *WalletService) GetTransaction(ctx context.Context, hash string) (*chain.Tx, error) {
	return s.reader.TransactionData(ctx, hash)
}

func (s *WalletService) EstimateFees(ctx context.Context) (*chain.Fees, error) {
	return s.reader.Fees(ctx, nil)
}

func (s *WalletService) ValidateAddress(address string) bool {
	return s.reader.ValidateAddress(address)
}

func (s *WalletService) ExplorerTxURL(hash string) string {
	return s.reader.ExplorerTxURL(hash)
}

// SendTransaction signs with the key behind p.From and broadcasts. It returns
// the transaction hash.
func (s *WalletService) SendTransaction(ctx context.Context, userID, passphrase string, p SendParams) (string, error) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return "", chain.ErrInvalidAmount
	}
	if !s.reader.ValidateAddress(p.To) {
		return "", fmt.Errorf("%w: %q", chain.ErrInvalidAddress, p.To)
	}

	w, phrase, err := s.unlock(ctx, userID, passphrase)
	if err != nil {
		return "", err
	}

	var index uint32
	if p.From != "" {
		from, err := s.addresses.GetByAddress(ctx, p.From)
		if err != nil {
			return "", err
		}
		if from == nil || from.WalletID != w.ID {
			return "", ErrAddressNotOwned
		}
		index = from.Index
	}

	client, err := s.newClient(phrase)
	if err != nil {
		return "", err
	}
	defer client.PurgeClient()
	if err := client.SetNetwork(s.reader.Network()); err != nil {
		return "", err
	}

	hash, err := client.Transfer(ctx, chain.TxParams{
		WalletIndex: index,
		Amount:      p.Amount,
		Recipient:   p.To,
		Memo:        p.Memo,
	})
	if err != nil {
		s.logger.Warn("send failed",
			zap.String("user_id", userID),
			zap.String("code", string(wrapErrors.CodeOf(err))),
			zap.Error(err))
		return "", err
	}
	s.logger.Info("transaction sent",
		zap.String("user_id", userID),
		zap.Uint32("index", index),
		zap.String("to", p.To),
		zap.String("hash", hash))
	return hash, nil
}
