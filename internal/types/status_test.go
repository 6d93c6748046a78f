package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePayrollStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want PayrollStatus
	}{
		{"00", StatusDraft},
		{"create", StatusDraft},
		{"draft", StatusDraft},
		{"01", StatusSubmitted},
		{"submitted", StatusSubmitted},
		{"02", StatusApproved},
		{"approved", StatusApproved},
		{"audit_pass", StatusApproved},
		{"03", StatusRejected},
		{"rejected", StatusRejected},
		{"04", StatusPaid},
		{"paid", StatusPaid},
		{"05", StatusPaying},
		{"paying", StatusPaying},
		{" Approved ", StatusApproved},
		{"", StatusUnknown},
		{"whatever", StatusUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParsePayrollStatus(c.raw), "raw=%q", c.raw)
	}
}

func TestPayrollStatusTerminal(t *testing.T) {
	assert.True(t, StatusPaid.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusDraft.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.False(t, StatusPaying.Terminal())
}

func TestLineItemPayable(t *testing.T) {
	payable := PayrollLineItem{UserID: 1, WalletAddress: "0xAA", Amount: "100.00"}
	missing := PayrollLineItem{UserID: 2, WalletAddress: "  ", Amount: "50.00"}

	assert.True(t, payable.Payable())
	assert.False(t, missing.Payable())

	detail := PayrollDetail{Items: []PayrollLineItem{payable, missing}}
	items := detail.PayableItems()
	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].UserID)
}
