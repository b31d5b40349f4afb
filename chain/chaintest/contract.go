// Package chaintest holds the conformance suite every chain.Client adapter
// runs from its own tests.
package chaintest

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
)

// Harness wires an adapter to the suite. New must return a client with no
// phrase set whose backends answer balance, history and fee queries for any
// valid address.
type Harness struct {
	New func(t *testing.T) chain.Client
	// Phrase is a valid mnemonic for the adapter.
	Phrase string
	// Submitted reports how many transfers reached the backend.
	Submitted func() int
	// TxID is a hash the history backend knows.
	TxID string
}

func RunClientContract(t *testing.T, h Harness) {
	t.Helper()
	ctx := context.Background()

	t.Run("Address requires phrase", func(t *testing.T) {
		c := h.New(t)
		_, err := c.Address(0)
		require.ErrorIs(t, err, chain.ErrPhraseNotSet)
	})

	t.Run("SetPhrase rejects invalid phrase", func(t *testing.T) {
		c := h.New(t)
		_, err := c.SetPhrase("definitely not a mnemonic", 0)
		require.ErrorIs(t, err, chain.ErrInvalidPhrase)

		_, err = c.Address(0)
		require.ErrorIs(t, err, chain.ErrPhraseNotSet)
	})

	t.Run("SetPhrase returns Address", func(t *testing.T) {
		c := h.New(t)
		addr, err := c.SetPhrase(h.Phrase, 1)
		require.NoError(t, err)

		got, err := c.Address(1)
		require.NoError(t, err)
		assert.Equal(t, addr, got)
	})

	t.Run("addresses are deterministic and distinct per index", func(t *testing.T) {
		a, b := h.New(t), h.New(t)
		_, err := a.SetPhrase(h.Phrase, 0)
		require.NoError(t, err)
		_, err = b.SetPhrase(h.Phrase, 0)
		require.NoError(t, err)

		seen := map[string]bool{}
		for i := uint32(0); i < 3; i++ {
			addrA, err := a.Address(i)
			require.NoError(t, err)
			addrB, err := b.Address(i)
			require.NoError(t, err)
			assert.Equal(t, addrA, addrB)
			assert.False(t, seen[addrA], "index %d repeats an address", i)
			seen[addrA] = true
		}
	})

	t.Run("ValidateAddress", func(t *testing.T) {
		c := h.New(t)
		addr, err := c.SetPhrase(h.Phrase, 0)
		require.NoError(t, err)

		assert.True(t, c.ValidateAddress(addr))
		assert.False(t, c.ValidateAddress(""))
		assert.False(t, c.ValidateAddress("garbage"))
		assert.False(t, c.ValidateAddress(addr[:len(addr)-1]))
	})

	t.Run("SetNetwork rejects unknown network", func(t *testing.T) {
		c := h.New(t)
		before := c.Network()
		require.ErrorIs(t, c.SetNetwork("devnet"), chain.ErrInvalidNetwork)
		assert.Equal(t, before, c.Network())
	})

	t.Run("explorer URLs share the explorer root", func(t *testing.T) {
		c := h.New(t)
		addr, err := c.SetPhrase(h.Phrase, 0)
		require.NoError(t, err)

		root := c.ExplorerURL()
		require.NotEmpty(t, root)
		assert.True(t, strings.HasPrefix(c.ExplorerAddressURL(addr), root))
		assert.Contains(t, c.ExplorerAddressURL(addr), addr)
		assert.True(t, strings.HasPrefix(c.ExplorerTxURL("0xabc"), root))
		assert.Contains(t, c.ExplorerTxURL("0xabc"), "0xabc")
	})

	t.Run("Balance", func(t *testing.T) {
		c := h.New(t)
		addr, err := c.SetPhrase(h.Phrase, 0)
		require.NoError(t, err)

		balances, err := c.Balance(ctx, addr, nil)
		require.NoError(t, err)
		require.NotEmpty(t, balances)
		for _, b := range balances {
			require.NotNil(t, b.Amount)
			assert.GreaterOrEqual(t, b.Amount.Sign(), 0)
		}

		_, err = c.Balance(ctx, "garbage", nil)
		require.ErrorIs(t, err, chain.ErrInvalidAddress)
	})

	t.Run("Transactions", func(t *testing.T) {
		c := h.New(t)
		addr, err := c.SetPhrase(h.Phrase, 0)
		require.NoError(t, err)

		page, err := c.Transactions(ctx, chain.TxHistoryParams{Address: addr, Limit: 10})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, page.Total, len(page.Txs))
		for _, tx := range page.Txs {
			assert.NotEmpty(t, tx.Hash)
		}
	})

	t.Run("TransactionData", func(t *testing.T) {
		if h.TxID == "" {
			t.Skip("no known transaction")
		}
		c := h.New(t)
		tx, err := c.TransactionData(ctx, h.TxID)
		require.NoError(t, err)
		assert.Equal(t, h.TxID, tx.Hash)
	})

	t.Run("Fees are ordered", func(t *testing.T) {
		c := h.New(t)
		_, err := c.SetPhrase(h.Phrase, 0)
		require.NoError(t, err)

		fees, err := c.Fees(ctx, nil)
		require.NoError(t, err)
		require.NotNil(t, fees.Average)
		assert.LessOrEqual(t, fees.Average.Cmp(fees.Fast), 0)
		assert.LessOrEqual(t, fees.Fast.Cmp(fees.Fastest), 0)
	})

	t.Run("Transfer validates before broadcasting", func(t *testing.T) {
		c := h.New(t)
		addr, err := c.SetPhrase(h.Phrase, 0)
		require.NoError(t, err)
		before := submitted(h)

		for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
			_, err = c.Transfer(ctx, chain.TxParams{Amount: amount, Recipient: addr})
			require.ErrorIs(t, err, chain.ErrInvalidAmount)
		}
		_, err = c.Transfer(ctx, chain.TxParams{Amount: big.NewInt(1), Recipient: "garbage"})
		require.ErrorIs(t, err, chain.ErrInvalidAddress)

		assert.Equal(t, before, submitted(h))
	})

	t.Run("Transfer requires phrase", func(t *testing.T) {
		c := h.New(t)
		other := h.New(t)
		addr, err := other.SetPhrase(h.Phrase, 0)
		require.NoError(t, err)

		_, err = c.Transfer(ctx, chain.TxParams{Amount: big.NewInt(1), Recipient: addr})
		require.ErrorIs(t, err, chain.ErrPhraseNotSet)
	})

	t.Run("PurgeClient forgets phrase", func(t *testing.T) {
		c := h.New(t)
		_, err := c.SetPhrase(h.Phrase, 0)
		require.NoError(t, err)

		c.PurgeClient()
		_, err = c.Address(0)
		require.ErrorIs(t, err, chain.ErrPhraseNotSet)
	})
}

func submitted(h Harness) int {
	if h.Submitted == nil {
		return 0
	}
	return h.Submitted()
}
