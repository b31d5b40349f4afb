package api

import (
	"context"
	"errors"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/domain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/entity"
	"github.com/linlinbupt123-crypto/polkadot_wallet/repository"
	"github.com/linlinbupt123-crypto/polkadot_wallet/request"
	"github.com/linlinbupt123-crypto/polkadot_wallet/service"
	"github.com/linlinbupt123-crypto/polkadot_wallet/utils"
)

// WalletService is the part of service.WalletService the handlers use.
type WalletService interface {
	CreateWallet(ctx context.Context, userID, passphrase string) (*service.CreatedWallet, error)
	ImportWallet(ctx context.Context, userID, phrase, passphrase string) (*service.CreatedWallet, error)
	DeriveNewAddress(ctx context.Context, userID, passphrase string) (*entity.Address, error)
	GetAddresses(ctx context.Context, userID string) ([]*entity.Address, error)
	GetBalances(ctx context.Context, userID string) ([]service.AddressBalance, error)
	GetTransactions(ctx context.Context, address string, offset, limit int) (*chain.TxsPage, error)
	GetTransaction(ctx context.Context, hash string) (*chain.Tx, error)
	EstimateFees(ctx context.Context) (*chain.Fees, error)
	SendTransaction(ctx context.Context, userID, passphrase string, p service.SendParams) (string, error)
	ValidateAddress(address string) bool
	ExplorerTxURL(hash string) string
}

type WalletHandler struct {
	walletService WalletService
	decimals      int32
	logger        *zap.Logger
}

// NewWalletHandler renders amounts with decimals fractional digits.
func NewWalletHandler(ws WalletService, decimals int32, logger *zap.Logger) *WalletHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletHandler{walletService: ws, decimals: decimals, logger: logger}
}

func RegisterRoutes(r gin.IRouter, h *WalletHandler) {
	r.POST("/wallet/:userID", h.CreateWallet)
	r.POST("/wallet/:userID/import", h.ImportWallet)
	r.GET("/wallet/:userID/addresses", h.GetAddresses)
	r.POST("/wallet/:userID/address/new", h.DeriveAddress)
	r.GET("/wallet/:userID/balance", h.GetBalance)
	r.POST("/wallet/:userID/tx/send", h.SendTransaction)

	r.GET("/address/:address/txs", h.GetTransactions)
	r.GET("/address/:address/validate", h.ValidateAddress)
	r.GET("/tx/:hash", h.GetTransaction)
	r.GET("/fees", h.GetFees)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, chain.ErrInvalidPhrase),
		errors.Is(err, chain.ErrInvalidAddress),
		errors.Is(err, chain.ErrInvalidNetwork),
		errors.Is(err, chain.ErrInvalidAmount),
		errors.Is(err, chain.ErrInvalidPath),
		errors.Is(err, chain.ErrUnsupportedAsset),
		errors.Is(err, chain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrEmptyPassphrase),
		errors.Is(err, service.ErrAddressNotOwned):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWrongPassphrase):
		return http.StatusUnauthorized
	case errors.Is(err, chain.ErrTxNotFound),
		errors.Is(err, repository.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrWalletExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *WalletHandler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *WalletHandler) display(amount *big.Int) string {
	return utils.FromBaseAmount(amount, h.decimals)
}

// CreateWallet creates a wallet and its first address. The phrase is in the
// response and never returned again.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req request.CreateWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.walletService.CreateWallet(c.Request.Context(), c.Param("userID"), req.Passphrase)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *WalletHandler) ImportWallet(c *gin.Context) {
	var req request.ImportWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.walletService.ImportWallet(c.Request.Context(), c.Param("userID"), req.Phrase, req.Passphrase)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *WalletHandler) GetAddresses(c *gin.Context) {
	addrs, err := h.walletService.GetAddresses(c.Request.Context(), c.Param("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, addrs)
}

func (h *WalletHandler) DeriveAddress(c *gin.Context) {
	var req request.DeriveAddressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	addr, err := h.walletService.DeriveNewAddress(c.Request.Context(), c.Param("userID"), req.Passphrase)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, addr)
}

type balanceView struct {
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

type addressBalanceView struct {
	Address  string        `json:"address"`
	Index    uint32        `json:"index"`
	Balances []balanceView `json:"balances"`
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	balances, err := h.walletService.GetBalances(c.Request.Context(), c.Param("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]addressBalanceView, 0, len(balances))
	for _, ab := range balances {
		v := addressBalanceView{Address: ab.Address, Index: ab.Index}
		for _, b := range ab.Balances {
			v.Balances = append(v.Balances, balanceView{
				Asset:   b.Asset.String(),
				Amount:  b.Amount.String(),
				Display: h.display(b.Amount),
			})
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, out)
}

func (h *WalletHandler) SendTransaction(c *gin.Context) {
	var req request.SendTxReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := req.BaseAmount(h.decimals)
	if err != nil {
		h.fail(c, err)
		return
	}

	txHash, err := h.walletService.SendTransaction(c.Request.Context(), c.Param("userID"), req.Passphrase, service.SendParams{
		From:   req.From,
		To:     req.To,
		Amount: amount,
		Memo:   req.Memo,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tx_hash":  txHash,
		"explorer": h.walletService.ExplorerTxURL(txHash),
	})
}

func (h *WalletHandler) GetTransactions(c *gin.Context) {
	var q request.TxsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := h.walletService.GetTransactions(c.Request.Context(), c.Param("address"), q.Offset, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *WalletHandler) GetTransaction(c *gin.Context) {
	tx, err := h.walletService.GetTransaction(c.Request.Context(), c.Param("hash"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *WalletHandler) ValidateAddress(c *gin.Context) {
	address := c.Param("address")
	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"valid":   h.walletService.ValidateAddress(address),
	})
}

func (h *WalletHandler) GetFees(c *gin.Context) {
	fees, err := h.walletService.EstimateFees(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"type":    fees.Type,
		"average": fees.Average.String(),
		"fast":    fees.Fast.String(),
		"fastest": fees.Fastest.String(),
	})
}
