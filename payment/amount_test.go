package payment

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		amount   string
		decimals uint8
		want     *big.Int
	}{
		{"100.00", 6, big.NewInt(100_000_000)},
		{"50.00", 6, big.NewInt(50_000_000)},
		{"150.00", 6, big.NewInt(150_000_000)},
		{"0.5", 6, big.NewInt(500_000)},
		{".5", 6, big.NewInt(500_000)},
		{"1", 18, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)},
		{"0", 6, big.NewInt(0)},
		{"100.000000000", 6, big.NewInt(100_000_000)}, // trailing zeros beyond precision
		{"0.000001", 6, big.NewInt(1)},
		{" 42 ", 0, big.NewInt(42)},
	}
	for _, c := range cases {
		got, err := ToBaseUnits(c.amount, c.decimals)
		require.NoError(t, err, "amount=%q", c.amount)
		assert.Zero(t, c.want.Cmp(got), "amount=%q want=%s got=%s", c.amount, c.want, got)
	}
}

func TestToBaseUnitsRejectsBadInput(t *testing.T) {
	bad := []struct {
		amount   string
		decimals uint8
	}{
		{"", 6},
		{"-1", 6},
		{"1.2345678", 6}, // fractional base units
		{"0.0000001", 6},
		{"abc", 6},
		{"1.2.3", 6},
		{"1,5", 6},
		{".", 6},
	}
	for _, c := range bad {
		_, err := ToBaseUnits(c.amount, c.decimals)
		assert.Error(t, err, "amount=%q", c.amount)
	}
}
