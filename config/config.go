package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/linlinbupt123-crypto/polkadot_wallet/retry"
	"github.com/linlinbupt123-crypto/polkadot_wallet/utils"
)

var networks = []string{"mainnet", "testnet", "stagenet"}

type Config struct {
	MongoURI    string         `mapstructure:"mongo_uri"`
	MongoDB     string         `mapstructure:"mongo_db"`
	Port        string         `mapstructure:"port"`
	LogLevel    string         `mapstructure:"log_level"`
	LogEncoding string         `mapstructure:"log_encoding"`
	Keystore    KeystoreConfig `mapstructure:"keystore"`
	Polkadot    PolkadotConfig `mapstructure:"polkadot"`
}

type KeystoreConfig struct {
	KDFIterations int `mapstructure:"kdf_iterations"`
	MnemonicWords int `mapstructure:"mnemonic_words"`
}

type PolkadotConfig struct {
	Network          string        `mapstructure:"network"`
	DerivationPrefix string        `mapstructure:"derivation_prefix"`
	IndexerAPIKey    string        `mapstructure:"indexer_api_key"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	Mainnet          Endpoints     `mapstructure:"mainnet"`
	Testnet          Endpoints     `mapstructure:"testnet"`
	Stagenet         Endpoints     `mapstructure:"stagenet"`
	Retry            retry.Config  `mapstructure:"retry"`
}

// Endpoints override the built-in per-network defaults when set.
type Endpoints struct {
	RPC      string `mapstructure:"rpc"`
	Indexer  string `mapstructure:"indexer"`
	Explorer string `mapstructure:"explorer"`
}

func (p PolkadotConfig) EndpointsFor(network string) Endpoints {
	switch network {
	case "testnet":
		return p.Testnet
	case "stagenet":
		return p.Stagenet
	default:
		return p.Mainnet
	}
}

func setDefaults(v *viper.Viper) {
	def := retry.DefaultConfig()
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db", "polkadot_wallet")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "json")
	v.SetDefault("keystore.kdf_iterations", 310_000)
	v.SetDefault("keystore.mnemonic_words", utils.DefaultMnemonicWords)
	v.SetDefault("polkadot.network", "mainnet")
	v.SetDefault("polkadot.derivation_prefix", utils.DefaultDerivationPrefix)
	// AutomaticEnv only resolves keys viper already knows about.
	v.SetDefault("polkadot.indexer_api_key", "")
	for _, n := range networks {
		v.SetDefault("polkadot."+n+".rpc", "")
		v.SetDefault("polkadot."+n+".indexer", "")
		v.SetDefault("polkadot."+n+".explorer", "")
	}
	v.SetDefault("polkadot.request_timeout", 15*time.Second)
	v.SetDefault("polkadot.retry.max_retries", def.MaxRetries)
	v.SetDefault("polkadot.retry.initial_delay", def.InitialDelay)
	v.SetDefault("polkadot.retry.max_delay", def.MaxDelay)
	v.SetDefault("polkadot.retry.multiplier", def.Multiplier)
	v.SetDefault("polkadot.retry.jitter", def.JitterEnabled)
}

// Load reads path (YAML) if it is not empty. Environment variables override
// file values, e.g. POLKADOT_NETWORK=testnet.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
