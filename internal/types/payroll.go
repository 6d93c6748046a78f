package types

import "strings"

type Payroll struct {
	ID          int64  `json:"id"`
	Name        string `json:"payroll_name"`
	Desc        string `json:"payroll_desc"`
	PayTime     string `json:"pay_time"` // period label, e.g. "2026-08"
	RawStatus   string `json:"status"`
	TotalAmount string `json:"total_amount"`
	AddTime     string `json:"add_time"`
	UpdateTime  string `json:"update_time"`
}

func (p Payroll) Status() PayrollStatus {
	return ParsePayrollStatus(p.RawStatus)
}

// PayrollLineItem is one recipient's entry within a payroll. Items are only
// editable while the parent payroll is in draft.
type PayrollLineItem struct {
	ID            int64  `json:"id,omitempty"`
	UserID        int64  `json:"user_id"`
	UserName      string `json:"user_name,omitempty"`
	WalletAddress string `json:"wallet_address"`
	WalletChain   string `json:"wallet_chain,omitempty"`
	WalletType    string `json:"wallet_type,omitempty"`
	Amount        string `json:"amount"`
	RawStatus     string `json:"status,omitempty"`
}

// Payable reports whether the item can be included in an on-chain batch.
// An item without a wallet address must be flagged and excluded.
func (li PayrollLineItem) Payable() bool {
	return strings.TrimSpace(li.WalletAddress) != ""
}

type PayrollDetail struct {
	Payroll Payroll           `json:"payroll"`
	Items   []PayrollLineItem `json:"staff_list"`
}

// PayableItems returns the line items eligible for payment, preserving order.
func (d PayrollDetail) PayableItems() []PayrollLineItem {
	var out []PayrollLineItem
	for _, li := range d.Items {
		if li.Payable() {
			out = append(out, li)
		}
	}
	return out
}

type Payslip struct {
	ID            int64  `json:"id"`
	PayrollID     int64  `json:"payroll_id"`
	UserID        int64  `json:"user_id"`
	WalletID      int64  `json:"wallet_id"`
	WalletAddress string `json:"wallet_address"`
	WalletType    string `json:"wallet_type"`
	WalletChain   string `json:"wallet_chain"`
	Amount        string `json:"amount"`
	Flag          int    `json:"flag"`
	TransTime     string `json:"trans_time"`
	ReceiptHash   string `json:"receipt_hash"`
	RollMonth     string `json:"roll_month"`
	RawStatus     string `json:"status"`
	PayTime       string `json:"pay_time"`
}

type PayrollStaffMember struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	LoginID       string `json:"login_id"`
	Location      string `json:"location,omitempty"`
	WalletAddress string `json:"wallet_address"`
	WalletChain   string `json:"wallet_chain,omitempty"`
	WalletType    string `json:"wallet_type,omitempty"`
	AddTime       string `json:"add_time,omitempty"`
}
