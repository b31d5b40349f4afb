package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int32
		want     string
		wantErr  bool
	}{
		{name: "whole DOT", amount: "1", decimals: 10, want: "10000000000"},
		{name: "fractional DOT", amount: "1.25", decimals: 10, want: "12500000000"},
		{name: "smallest unit", amount: "0.0000000001", decimals: 10, want: "1"},
		{name: "westend decimals", amount: "0.5", decimals: 12, want: "500000000000"},
		{name: "too precise", amount: "0.00000000001", decimals: 10, wantErr: true},
		{name: "garbage", amount: "one", decimals: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseAmount(tt.amount, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFromBaseAmount(t *testing.T) {
	assert.Equal(t, "1.2500000000", FromBaseAmount(big.NewInt(12500000000), 10))
	assert.Equal(t, "0.000000000001", FromBaseAmount(big.NewInt(1), 12))
	assert.Equal(t, "0.0000000000", FromBaseAmount(nil, 10))
}
