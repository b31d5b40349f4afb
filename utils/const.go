package utils

/*
Substrate derivation paths are junction lists appended to the mnemonic:
"//hard" junctions cannot be derived from the public key, "/soft" ones can.
Wallet index N > 0 is the hard junction "//N" after the configured prefix,
so index 0 with an empty prefix is the plain phrase, which is the same
account polkadot.js and subkey show for that mnemonic.
*/
const (
	ChainDOT = "DOT"

	DefaultDerivationPrefix = ""
	DefaultMnemonicWords    = 12
)
