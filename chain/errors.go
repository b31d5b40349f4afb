package chain

import "errors"

var (
	ErrPhraseNotSet      = errors.New("phrase must be provided")
	ErrInvalidPhrase     = errors.New("invalid phrase")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidNetwork    = errors.New("invalid network")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrUnsupportedAsset  = errors.New("unsupported asset")
	ErrTxNotFound        = errors.New("transaction not found")
	ErrInvalidPath       = errors.New("invalid derivation path")
)
