package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentRecipient is one address/amount pair resolved for a payment
// attempt. Amount is the per-recipient decimal string; it is the
// authoritative input for base-unit scaling.
type PaymentRecipient struct {
	Address string
	Amount  string
}

func (r *PaymentRecipient) UnmarshalJSON(b []byte) error {
	var raw struct {
		Address       string `json:"address"`
		WalletAddress string `json:"wallet_address"`
		Amount        string `json:"amount"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Address = firstNonEmpty(raw.WalletAddress, raw.Address)
	r.Amount = raw.Amount
	return nil
}

func (r PaymentRecipient) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Address string `json:"wallet_address"`
		Amount  string `json:"amount"`
	}{Address: r.Address, Amount: r.Amount})
}

// PaymentConfig is derived per payment attempt and never cached. The
// upstream field naming has drifted across backend versions, so decoding
// tolerates the known spellings for each field.
type PaymentConfig struct {
	Chain            string
	TokenSymbol      string
	TokenContract    string
	DisburseContract string
	Recipients       []PaymentRecipient
}

func (c *PaymentConfig) UnmarshalJSON(b []byte) error {
	var raw struct {
		Chain            string             `json:"chain"`
		ChainID          json.Number        `json:"chain_id"`
		PayToken         string             `json:"pay_token"`
		PayContract      string             `json:"pay_contract"`
		TokenAddress     string             `json:"token_address"`
		TokenContract    string             `json:"token_contract"`
		DisburseContract string             `json:"disburse_contract"`
		BatchContract    string             `json:"batch_contract"`
		Recipients       []PaymentRecipient `json:"recipients"`
		StaffList        []PaymentRecipient `json:"staff_list"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Chain = firstNonEmpty(raw.Chain, raw.ChainID.String())
	c.TokenSymbol = raw.PayToken
	c.TokenContract = firstNonEmpty(raw.PayContract, raw.TokenAddress, raw.TokenContract)
	c.DisburseContract = firstNonEmpty(raw.DisburseContract, raw.BatchContract)
	c.Recipients = raw.Recipients
	if len(c.Recipients) == 0 {
		c.Recipients = raw.StaffList
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

type AttemptState string

const (
	AttemptPending      AttemptState = "PENDING"
	AttemptBroadcast    AttemptState = "BROADCAST"
	AttemptAcknowledged AttemptState = "ACKNOWLEDGED"
	AttemptFailed       AttemptState = "FAILED"
)

// PaymentAttempt is one journal row of the local payment journal. A row in
// BROADCAST state means funds moved on chain but the upstream backend has
// not acknowledged it yet; such a payroll must go through reconciliation,
// never a second transfer.
type PaymentAttempt struct {
	ID             uuid.UUID    `json:"id"`
	PayrollID      int64        `json:"payroll_id"`
	State          AttemptState `json:"state"`
	ChainID        int64        `json:"chain_id"`
	TxHashes       []string     `json:"tx_hashes"`
	TotalBaseUnits string       `json:"total_base_units"`
	ErrorMessage   *string      `json:"error_message,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// PaymentReceipt is the archived proof of a completed payment.
type PaymentReceipt struct {
	PayrollID      int64     `json:"payroll_id"`
	Period         string    `json:"period"`
	ChainID        int64     `json:"chain_id"`
	TokenSymbol    string    `json:"token_symbol,omitempty"`
	TokenContract  string    `json:"token_contract"`
	TxHashes       []string  `json:"tx_hashes"`
	Recipients     int       `json:"recipients"`
	TotalBaseUnits string    `json:"total_base_units"`
	PaidAt         time.Time `json:"paid_at"`
}
