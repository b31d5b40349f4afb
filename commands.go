package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linlinbupt123-crypto/polkadot_wallet/api"
	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/config"
	"github.com/linlinbupt123-crypto/polkadot_wallet/db"
	"github.com/linlinbupt123-crypto/polkadot_wallet/domain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/repository"
	"github.com/linlinbupt123-crypto/polkadot_wallet/request"
	"github.com/linlinbupt123-crypto/polkadot_wallet/service"
	"github.com/linlinbupt123-crypto/polkadot_wallet/utils"
)

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the wallet HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	mongoRepo, err := db.NewMongoRepo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() { _ = mongoRepo.Disconnect(context.Background()) }()

	reader, err := newPolkadotClient(cfg, logger, "")
	if err != nil {
		return err
	}
	defer reader.PurgeClient()

	factory := func(phrase string) (chain.Client, error) {
		return newPolkadotClient(cfg, logger, phrase)
	}
	walletService := service.NewWalletService(
		domain.NewKeystore(cfg.Keystore.KDFIterations, cfg.Keystore.MnemonicWords),
		repository.NewWalletRepo(mongoRepo.WalletColl),
		repository.NewAddressRepo(mongoRepo.AddrColl),
		reader,
		factory,
		logger,
	)

	decimals := networkParams(cfg.Polkadot)[reader.Network()].Decimals
	r := gin.New()
	r.Use(gin.Recovery())
	api.RegisterRoutes(r, api.NewWalletHandler(walletService, decimals, logger))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("network", reader.Network().String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newPhraseCmd() *cobra.Command {
	var words int
	cmd := &cobra.Command{
		Use:   "phrase",
		Short: "Generate a new mnemonic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			phrase, err := chain.GeneratePhrase(words)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), phrase)
			return err
		},
	}
	cmd.Flags().IntVar(&words, "words", utils.DefaultMnemonicWords, "12 or 24")
	return cmd
}

// phraseFlag registers --phrase with an empty default so help output never
// shows the mnemonic; resolvePhrase falls back to the environment at run time.
func phraseFlag(cmd *cobra.Command, phrase *string) {
	cmd.Flags().StringVar(phrase, "phrase", "", "mnemonic (defaults to $"+phraseEnv+")")
}

func resolvePhrase(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(phraseEnv)
}

func newAddressCmd(opts *rootOptions) *cobra.Command {
	var (
		phrase string
		index  uint32
	)
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Derive the address at an index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			phrase := resolvePhrase(phrase)
			if phrase == "" {
				return chain.ErrPhraseNotSet
			}
			client, err := newPolkadotClient(cfg, logger, phrase)
			if err != nil {
				return err
			}
			defer client.PurgeClient()

			addr, err := client.Address(index)
			if err != nil {
				return err
			}
			pub, err := client.PublicKey(index)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"network":    client.Network(),
				"index":      index,
				"address":    addr,
				"public_key": pub,
				"explorer":   client.ExplorerAddressURL(addr),
			})
		},
	}
	phraseFlag(cmd, &phrase)
	cmd.Flags().Uint32Var(&index, "index", 0, "wallet index")
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <address>",
		Short: "Check an address against the network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newPolkadotClient(cfg, logger, "")
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"address": args[0],
				"network": client.Network(),
				"valid":   client.ValidateAddress(args[0]),
			})
		},
	}
}

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show the free balance of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newPolkadotClient(cfg, logger, "")
			if err != nil {
				return err
			}
			defer client.PurgeClient()

			balances, err := client.Balance(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			decimals := networkParams(cfg.Polkadot)[client.Network()].Decimals
			out := make([]map[string]string, 0, len(balances))
			for _, b := range balances {
				out = append(out, map[string]string{
					"asset":   b.Asset.String(),
					"amount":  b.Amount.String(),
					"display": utils.FromBaseAmount(b.Amount, decimals),
				})
			}
			return printJSON(cmd, out)
		},
	}
}

func newTxsCmd(opts *rootOptions) *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "txs <address>",
		Short: "List transfers of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newPolkadotClient(cfg, logger, "")
			if err != nil {
				return err
			}
			page, err := client.Transactions(cmd.Context(), chain.TxHistoryParams{
				Address: args[0],
				Offset:  offset,
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, page)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to return (max 100)")
	return cmd
}

func newTxCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tx <hash>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newPolkadotClient(cfg, logger, "")
			if err != nil {
				return err
			}
			tx, err := client.TransactionData(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, tx)
		},
	}
}

func newFeesCmd(opts *rootOptions) *cobra.Command {
	var phrase string
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Estimate the fee of a transfer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newPolkadotClient(cfg, logger, resolvePhrase(phrase))
			if err != nil {
				return err
			}
			defer client.PurgeClient()

			fees, err := client.Fees(cmd.Context(), nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"type":    string(fees.Type),
				"average": fees.Average.String(),
				"fast":    fees.Fast.String(),
				"fastest": fees.Fastest.String(),
			})
		},
	}
	phraseFlag(cmd, &phrase)
	return cmd
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	var (
		phrase string
		index  uint32
		req    request.SendTxReq
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Sign and broadcast a transfer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			phrase := resolvePhrase(phrase)
			if phrase == "" {
				return chain.ErrPhraseNotSet
			}
			client, err := newPolkadotClient(cfg, logger, phrase)
			if err != nil {
				return err
			}
			defer client.PurgeClient()

			decimals := networkParams(cfg.Polkadot)[client.Network()].Decimals
			amount, err := req.BaseAmount(decimals)
			if err != nil {
				return err
			}
			hash, err := client.Transfer(cmd.Context(), chain.TxParams{
				WalletIndex: index,
				Amount:      amount,
				Recipient:   req.To,
				Memo:        req.Memo,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"tx_hash":  hash,
				"explorer": client.ExplorerTxURL(hash),
			})
		},
	}
	phraseFlag(cmd, &phrase)
	cmd.Flags().Uint32Var(&index, "index", 0, "wallet index to send from")
	cmd.Flags().StringVar(&req.To, "to", "", "recipient address")
	cmd.Flags().StringVar(&req.Amount, "amount", "", "amount in the network's native unit, e.g. 1.5")
	cmd.Flags().StringVar(&req.Memo, "memo", "", "optional remark")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
