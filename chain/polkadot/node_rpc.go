package polkadot

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/extrinsic"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/extrinsic/extensions"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	wrapErrors "github.com/linlinbupt123-crypto/polkadot_wallet/errors"
)

const (
	callTransfer = "Balances.transfer_keep_alive"
	callRemark   = "System.remark"
	callBatchAll = "Utility.batch_all"
)

// rpcNode talks to a substrate node through go-substrate-rpc-client.
// Metadata is fetched once per connection.
type rpcNode struct {
	api    *gsrpc.SubstrateAPI
	logger *zap.Logger

	mu   sync.Mutex
	meta *types.Metadata
}

// RPCDialer returns a NodeDialer backed by go-substrate-rpc-client.
func RPCDialer(logger *zap.Logger) NodeDialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, url string) (Node, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		api, err := gsrpc.NewSubstrateAPI(url)
		if err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNodeDial, "dial "+url, err)
		}
		logger.Info("connected to substrate node", zap.String("url", url))
		return &rpcNode{api: api, logger: logger}, nil
	}
}

func (n *rpcNode) metadata() (*types.Metadata, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.meta != nil {
		return n.meta, nil
	}
	meta, err := n.api.RPC.State.GetMetadataLatest()
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNodeRPC, "get metadata", err)
	}
	n.meta = meta
	return meta, nil
}

func (n *rpcNode) accountInfo(meta *types.Metadata, accountID []byte) (*types.AccountInfo, error) {
	key, err := types.CreateStorageKey(meta, "System", "Account", accountID)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNodeRPC, "storage key", err)
	}
	var info types.AccountInfo
	ok, err := n.api.RPC.State.GetStorageLatest(key, &info)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNodeRPC, "get account", err)
	}
	if !ok {
		// never-funded accounts have no storage entry
		return &types.AccountInfo{}, nil
	}
	return &info, nil
}

func (n *rpcNode) FreeBalance(ctx context.Context, accountID []byte) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := n.metadata()
	if err != nil {
		return nil, err
	}
	info, err := n.accountInfo(meta, accountID)
	if err != nil {
		return nil, err
	}
	n.logger.Debug("account info",
		zap.String("account", hexutil.Encode(accountID)),
		zap.Uint32("nonce", uint32(info.Nonce)))
	return freeOf(info), nil
}

// freeOf copies the free balance; a missing account reads as zero.
func freeOf(info *types.AccountInfo) *big.Int {
	if info == nil || info.Data.Free.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(info.Data.Free.Int)
}

// callBuilder encodes a named call with its arguments.
type callBuilder func(name string, args ...any) (types.Call, error)

func metadataCalls(meta *types.Metadata) callBuilder {
	return func(name string, args ...any) (types.Call, error) {
		return types.NewCall(meta, name, args...)
	}
}

func buildCall(newCall callBuilder, call TransferCall) (types.Call, error) {
	dest, err := types.NewMultiAddressFromAccountID(call.Dest)
	if err != nil {
		return types.Call{}, err
	}
	amount := call.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	transfer, err := newCall(callTransfer, dest, types.NewUCompact(amount))
	if err != nil {
		return types.Call{}, err
	}
	if call.Memo == "" {
		return transfer, nil
	}
	remark, err := newCall(callRemark, types.NewBytes([]byte(call.Memo)))
	if err != nil {
		return types.Call{}, err
	}
	return newCall(callBatchAll, []types.Call{transfer, remark})
}

// signingOptions signs an immortal extrinsic. The signed extensions are
// taken from the runtime metadata; CheckMetadataHash is sent disabled.
func signingOptions(genesisHash types.Hash, rv *types.RuntimeVersion, nonce uint64) []extrinsic.SigningOption {
	return []extrinsic.SigningOption{
		extrinsic.WithEra(types.ExtrinsicEra{IsImmortalEra: true}, genesisHash),
		extrinsic.WithNonce(types.NewUCompactFromUInt(nonce)),
		extrinsic.WithTip(types.NewUCompactFromUInt(0)),
		extrinsic.WithSpecVersion(rv.SpecVersion),
		extrinsic.WithTransactionVersion(rv.TransactionVersion),
		extrinsic.WithGenesisHash(genesisHash),
		extrinsic.WithMetadataMode(extensions.CheckMetadataModeDisabled, extensions.CheckMetadataHash{
			Hash: types.NewEmptyOption[types.H256](),
		}),
	}
}

func (n *rpcNode) signedExtrinsic(meta *types.Metadata, signer signature.KeyringPair, call TransferCall) (extrinsic.DynamicExtrinsic, error) {
	c, err := buildCall(metadataCalls(meta), call)
	if err != nil {
		return extrinsic.DynamicExtrinsic{}, wrapErrors.WrapWithCode(wrapErrors.CodeBuildTx, "build call", err)
	}

	genesisHash, err := n.api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return extrinsic.DynamicExtrinsic{}, wrapErrors.WrapWithCode(wrapErrors.CodeNodeRPC, "genesis hash", err)
	}
	rv, err := n.api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return extrinsic.DynamicExtrinsic{}, wrapErrors.WrapWithCode(wrapErrors.CodeNodeRPC, "runtime version", err)
	}
	info, err := n.accountInfo(meta, signer.PublicKey)
	if err != nil {
		return extrinsic.DynamicExtrinsic{}, err
	}

	ext := extrinsic.NewDynamicExtrinsic(&c)
	if err := ext.Sign(signer, meta, signingOptions(genesisHash, rv, uint64(info.Nonce))...); err != nil {
		return extrinsic.DynamicExtrinsic{}, wrapErrors.WrapWithCode(wrapErrors.SignerErr, "sign extrinsic", err)
	}
	return ext, nil
}

type queryInfo struct {
	PartialFee json.RawMessage `json:"partialFee"`
}

func (n *rpcNode) EstimateFee(ctx context.Context, signer signature.KeyringPair, call TransferCall) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := n.metadata()
	if err != nil {
		return nil, err
	}
	ext, err := n.signedExtrinsic(meta, signer, call)
	if err != nil {
		return nil, err
	}
	enc, err := codec.EncodeToHex(&ext)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeFeeEstimate, "encode extrinsic", err)
	}

	var info queryInfo
	if err := n.api.Client.Call(&info, "payment_queryInfo", enc); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeFeeEstimate, "payment_queryInfo", err)
	}
	fee, err := parsePartialFee(info.PartialFee)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeFeeEstimate, "partial fee", err)
	}
	return fee, nil
}

func (n *rpcNode) SubmitTransfer(ctx context.Context, signer signature.KeyringPair, call TransferCall) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	meta, err := n.metadata()
	if err != nil {
		return "", err
	}
	ext, err := n.signedExtrinsic(meta, signer, call)
	if err != nil {
		return "", err
	}
	hash, err := n.api.RPC.Author.SubmitDynamicExtrinsic(ext)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.SendTxErr, "submit extrinsic", err)
	}
	return hash.Hex(), nil
}

func (n *rpcNode) Close() {
	n.api.Client.Close()
}

// parsePartialFee accepts the fee as a JSON string ("154000000"), a hex
// string or a bare number, depending on node version.
func parsePartialFee(raw json.RawMessage) (*big.Int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil, fmt.Errorf("missing partialFee")
	}
	if strings.HasPrefix(s, "0x") {
		return hexutil.DecodeBig(s)
	}
	fee, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid partialFee %q", s)
	}
	return fee, nil
}
