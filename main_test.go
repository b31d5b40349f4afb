package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/config"
)

const devPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithPhraseEnv(t, "", args...)
}

func runWithPhraseEnv(t *testing.T, phrase string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(phraseEnv, phrase)
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPhraseCmd(t *testing.T) {
	out, err := run(t, "phrase", "--words", "24")
	require.NoError(t, err)
	phrase := strings.TrimSpace(out)
	assert.Len(t, strings.Fields(phrase), 24)
	assert.True(t, chain.ValidatePhrase(phrase))

	_, err = run(t, "phrase", "--words", "7")
	require.Error(t, err)
}

func TestAddressCmd(t *testing.T) {
	out, err := run(t, "address", "--network", "testnet", "--phrase", devPhrase+"//Alice")
	require.Error(t, err, "junctions belong in derivation_prefix, not the phrase")
	assert.Empty(t, out)

	out, err = run(t, "address", "--network", "testnet", "--phrase", devPhrase, "--index", "2")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "testnet", got["network"])
	assert.EqualValues(t, 2, got["index"])
	assert.True(t, strings.HasPrefix(got["address"].(string), "5"))
	assert.Contains(t, got["explorer"], "westend.subscan.io/account/")

	_, err = run(t, "address")
	require.ErrorIs(t, err, chain.ErrPhraseNotSet)
}

func TestPhraseFromEnvironment(t *testing.T) {
	fromFlag, err := run(t, "address", "--network", "testnet", "--phrase", devPhrase)
	require.NoError(t, err)

	fromEnv, err := runWithPhraseEnv(t, devPhrase, "address", "--network", "testnet")
	require.NoError(t, err)
	assert.JSONEq(t, fromFlag, fromEnv)

	for _, sub := range []string{"address", "fees", "send"} {
		help, err := runWithPhraseEnv(t, devPhrase, sub, "--help")
		require.NoError(t, err)
		assert.Contains(t, help, "--phrase", sub)
		assert.NotContains(t, help, "bottom drive", sub)
	}
}

func TestValidateCmd(t *testing.T) {
	out, err := run(t, "validate", "--network", "testnet", "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)

	out, err = run(t, "validate", "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)

	out, err = run(t, "validate", "--network", "testnet", "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": false`)

	_, err = run(t, "validate", "--network", "devnet", "x")
	require.ErrorIs(t, err, chain.ErrInvalidNetwork)
}

func TestSendCmdValidatesLocally(t *testing.T) {
	_, err := run(t, "send", "--network", "testnet", "--phrase", devPhrase,
		"--to", "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", "--amount", "0")
	require.ErrorIs(t, err, chain.ErrInvalidAmount)

	_, err = run(t, "send", "--network", "testnet", "--phrase", devPhrase,
		"--to", "garbage", "--amount", "1")
	require.ErrorIs(t, err, chain.ErrInvalidAddress)
}

func TestNetworkParamsOverride(t *testing.T) {
	cfg := config.PolkadotConfig{
		Testnet: config.Endpoints{RPC: "ws://127.0.0.1:9944", Indexer: "http://127.0.0.1:4399/"},
	}
	params := networkParams(cfg)

	require.Len(t, params, 3)
	assert.Equal(t, "ws://127.0.0.1:9944", params[chain.Testnet].RPC)
	assert.Equal(t, "http://127.0.0.1:4399", params[chain.Testnet].Indexer)
	assert.Equal(t, "https://westend.subscan.io", params[chain.Testnet].Explorer)
	assert.Equal(t, uint16(42), params[chain.Testnet].SS58Prefix)
	assert.Equal(t, "wss://rpc.polkadot.io", params[chain.Mainnet].RPC)
}
