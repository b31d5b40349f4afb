package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/chain/polkadot"
	"github.com/linlinbupt123-crypto/polkadot_wallet/config"
	"github.com/linlinbupt123-crypto/polkadot_wallet/logging"
)

const phraseEnv = "POLKADOT_PHRASE"

type rootOptions struct {
	configPath string
	network    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "polkadot_wallet",
		Short:         "Polkadot wallet service and client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&opts.network, "network", "", "mainnet, testnet or stagenet (overrides config)")

	root.AddCommand(
		newServeCmd(opts),
		newPhraseCmd(),
		newAddressCmd(opts),
		newValidateCmd(opts),
		newBalanceCmd(opts),
		newTxsCmd(opts),
		newTxCmd(opts),
		newFeesCmd(opts),
		newSendCmd(opts),
	)
	return root
}

// load reads config and applies the --network override.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.network != "" {
		cfg.Polkadot.Network = o.network
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// networkParams applies configured endpoints on top of the built-in ones.
func networkParams(cfg config.PolkadotConfig) map[chain.Network]polkadot.Params {
	out := map[chain.Network]polkadot.Params{}
	for _, n := range []chain.Network{chain.Mainnet, chain.Testnet, chain.Stagenet} {
		def, ok := polkadot.DefaultParams(n)
		if !ok {
			continue
		}
		ep := cfg.EndpointsFor(n.String())
		out[n] = def.Override(ep.RPC, ep.Indexer, ep.Explorer)
	}
	return out
}

func newPolkadotClient(cfg *config.Config, logger *zap.Logger, phrase string) (*polkadot.Client, error) {
	return polkadot.NewClient(polkadot.ClientParams{
		Network:          chain.Network(cfg.Polkadot.Network),
		Phrase:           phrase,
		DerivationPrefix: cfg.Polkadot.DerivationPrefix,
		Params:           networkParams(cfg.Polkadot),
		IndexerAPIKey:    cfg.Polkadot.IndexerAPIKey,
		Timeout:          cfg.Polkadot.RequestTimeout,
		Retry:            cfg.Polkadot.Retry,
		Logger:           logger,
	})
}
