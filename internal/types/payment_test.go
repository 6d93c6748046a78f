package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentConfigDecodeFieldVariants(t *testing.T) {
	// Current backend convention.
	current := `{
		"chain": "arbitrum",
		"pay_token": "usdc",
		"pay_contract": "0xToken",
		"disburse_contract": "0xBatch",
		"recipients": [{"wallet_address": "0xAA", "amount": "100.00"}]
	}`
	var cfg PaymentConfig
	require.NoError(t, json.Unmarshal([]byte(current), &cfg))
	assert.Equal(t, "arbitrum", cfg.Chain)
	assert.Equal(t, "0xToken", cfg.TokenContract)
	assert.Equal(t, "0xBatch", cfg.DisburseContract)
	require.Len(t, cfg.Recipients, 1)
	assert.Equal(t, "0xAA", cfg.Recipients[0].Address)

	// Older convention: numeric chain id, token_address, staff_list, bare address.
	legacy := `{
		"chain_id": 42161,
		"token_address": "0xToken2",
		"batch_contract": "0xBatch2",
		"staff_list": [{"address": "0xBB", "amount": "50.00"}]
	}`
	var cfg2 PaymentConfig
	require.NoError(t, json.Unmarshal([]byte(legacy), &cfg2))
	assert.Equal(t, "42161", cfg2.Chain)
	assert.Equal(t, "0xToken2", cfg2.TokenContract)
	assert.Equal(t, "0xBatch2", cfg2.DisburseContract)
	require.Len(t, cfg2.Recipients, 1)
	assert.Equal(t, "0xBB", cfg2.Recipients[0].Address)
	assert.Equal(t, "50.00", cfg2.Recipients[0].Amount)
}

func TestPaymentConfigDecodeEmptyRecipients(t *testing.T) {
	var cfg PaymentConfig
	require.NoError(t, json.Unmarshal([]byte(`{"chain":"ethereum"}`), &cfg))
	assert.Empty(t, cfg.Recipients)
}
