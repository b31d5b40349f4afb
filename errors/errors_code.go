package errors

type Code string

const (
	CodeIndexer     Code = "INDEXER_ERROR"
	CodeNodeDial    Code = "NODE_DIAL_ERROR"
	CodeNodeRPC     Code = "NODE_RPC_ERROR"
	CodeBalance     Code = "BALANCE_ERROR"
	CodeFeeEstimate Code = "FEE_ESTIMATE_ERROR"
	CodeBuildTx     Code = "BUILD_TX_ERROR"
	SignerErr       Code = "SIGNER_ERROR"
	SendTxErr       Code = "SEND_TX_ERROR"
	CodeKeyDerive   Code = "KEY_DERIVE_ERROR"
	CodeKeystore    Code = "KEYSTORE_ERROR"
	CodeStorage     Code = "STORAGE_ERROR"
)
