package chain

import (
	"math/big"
	"strings"
)

func splitWords(s string) []string { return strings.Fields(s) }

func big1(v int64) *big.Int { return big.NewInt(v) }
