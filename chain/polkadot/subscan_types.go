package polkadot

import "encoding/json"

type envelope struct {
	Code        int             `json:"code"`
	Message     string          `json:"message"`
	GeneratedAt int64           `json:"generated_at"`
	Data        json.RawMessage `json:"data"`
}

type transfersRequest struct {
	Address string `json:"address"`
	Row     int    `json:"row"`
	Page    int    `json:"page"`
}

type extrinsicRequest struct {
	Hash string `json:"hash"`
}

// Transfer is one row of /api/scan/transfers. Amount is in display units,
// AmountV2 (when present) and Fee are in planck.
type Transfer struct {
	From           string `json:"from"`
	To             string `json:"to"`
	ExtrinsicIndex string `json:"extrinsic_index"`
	Success        bool   `json:"success"`
	Hash           string `json:"hash"`
	BlockNum       uint64 `json:"block_num"`
	BlockTimestamp int64  `json:"block_timestamp"`
	Module         string `json:"module"`
	Amount         string `json:"amount"`
	AmountV2       string `json:"amount_v2"`
	Fee            string `json:"fee"`
	Nonce          uint64 `json:"nonce"`
	AssetSymbol    string `json:"asset_symbol"`
}

type TransfersData struct {
	Count     int        `json:"count"`
	Transfers []Transfer `json:"transfers"`
}

type AccountDisplay struct {
	Address string `json:"address"`
}

// ExtrinsicData is the payload of /api/scan/extrinsic. AccountID is an SS58
// address on older deployments and a hex public key on newer ones.
type ExtrinsicData struct {
	BlockTimestamp     int64           `json:"block_timestamp"`
	BlockNum           uint64          `json:"block_num"`
	ExtrinsicIndex     string          `json:"extrinsic_index"`
	CallModuleFunction string          `json:"call_module_function"`
	CallModule         string          `json:"call_module"`
	AccountID          string          `json:"account_id"`
	AccountDisplay     *AccountDisplay `json:"account_display"`
	Nonce              uint64          `json:"nonce"`
	ExtrinsicHash      string          `json:"extrinsic_hash"`
	Success            bool            `json:"success"`
	Fee                string          `json:"fee"`
	Transfer           *Transfer       `json:"transfer"`
}
