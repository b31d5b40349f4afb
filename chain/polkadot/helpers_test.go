package polkadot

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/linlinbupt123-crypto/polkadot_wallet/chain"
	"github.com/linlinbupt123-crypto/polkadot_wallet/retry"
)

const (
	devPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

	alicePubHex     = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceWestend    = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	alicePolkadot   = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	bobPubHex       = "0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48"
	bobWestend      = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
	knownTransferTx = "0x6f2a9b8c0d1e2f30415263748596a7b8c9d0e1f20314253647586970a1b2c3d4"
)

type submission struct {
	Signer string
	Call   TransferCall
}

type fakeNode struct {
	mu             sync.Mutex
	balances       map[string]*big.Int
	defaultBalance *big.Int
	fee            *big.Int
	feeErr         error
	submitErr      error
	submissions    []submission
	feeCalls       []TransferCall
	closed         int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		balances:       map[string]*big.Int{},
		defaultBalance: big.NewInt(0),
		fee:            big.NewInt(15_700_000),
	}
}

func (f *fakeNode) setBalance(pubHex string, v int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[pubHex] = big.NewInt(v)
}

func (f *fakeNode) FreeBalance(_ context.Context, accountID []byte) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.balances[hexutil.Encode(accountID)]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int).Set(f.defaultBalance), nil
}

func (f *fakeNode) EstimateFee(_ context.Context, _ signature.KeyringPair, call TransferCall) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeCalls = append(f.feeCalls, call)
	if f.feeErr != nil {
		return nil, f.feeErr
	}
	return new(big.Int).Set(f.fee), nil
}

func (f *fakeNode) SubmitTransfer(_ context.Context, signer signature.KeyringPair, call TransferCall) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submissions = append(f.submissions, submission{Signer: signer.Address, Call: call})
	return "0xfeedbeef", nil
}

func (f *fakeNode) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeNode) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeNode) submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submissions)
}

// fakeSubscan serves canned Subscan responses and records request bodies.
type fakeSubscan struct {
	mu        sync.Mutex
	transfers []Transfer
	count     int
	extrinsic map[string]json.RawMessage
	requests  []map[string]any
	apiKeys   []string
}

func newFakeSubscan(t *testing.T) (*fakeSubscan, *httptest.Server) {
	t.Helper()
	f := &fakeSubscan{extrinsic: map[string]json.RawMessage{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeSubscan) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req map[string]any
	_ = json.Unmarshal(body, &req)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.apiKeys = append(f.apiKeys, r.Header.Get("X-API-Key"))
	transfers, count := f.transfers, f.count
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case pathTransfers:
		data, _ := json.Marshal(TransfersData{Count: count, Transfers: transfers})
		writeEnvelope(w, 0, "Success", data)
	case pathExtrinsic:
		hash, _ := req["hash"].(string)
		f.mu.Lock()
		data, ok := f.extrinsic[hash]
		f.mu.Unlock()
		if !ok {
			data = json.RawMessage("null")
		}
		writeEnvelope(w, 0, "Success", data)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSubscan) lastRequest() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data json.RawMessage) {
	_ = json.NewEncoder(w).Encode(envelope{Code: code, Message: message, GeneratedAt: time.Now().Unix(), Data: data})
}

func fastRetry() retry.Config {
	return retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

type testEnv struct {
	node       *fakeNode
	subscan    *fakeSubscan
	subscanURL string

	mu    sync.Mutex
	dials int
}

func (e *testEnv) dialCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dials
}

// newTestClient returns a testnet client wired to a fake node and a fake
// Subscan server. opts apply after the fake dialer and may replace it.
func newTestClient(t *testing.T, env *testEnv, p ClientParams, opts ...Option) *Client {
	t.Helper()
	if env.node == nil {
		env.node = newFakeNode()
	}
	if env.subscan == nil {
		var srv *httptest.Server
		env.subscan, srv = newFakeSubscan(t)
		env.subscanURL = srv.URL
	}
	if p.Network == "" {
		p.Network = chain.Testnet
	}
	if p.Logger == nil {
		p.Logger = zaptest.NewLogger(t)
	}
	p.Retry = fastRetry()
	p.Params = map[chain.Network]Params{}
	for n, def := range defaultParams {
		p.Params[n] = def.Override("ws://node.invalid", env.subscanURL, "")
	}

	dialer := WithNodeDialer(func(ctx context.Context, url string) (Node, error) {
		env.mu.Lock()
		env.dials++
		env.mu.Unlock()
		return env.node, nil
	})
	c, err := NewClient(p, append([]Option{dialer}, opts...)...)
	require.NoError(t, err)
	return c
}
