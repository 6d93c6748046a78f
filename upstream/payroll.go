package upstream

import (
	"context"
	"fmt"

	"github.com/chainhr/payportal/internal/types"
)

type CreatePayrollRequest struct {
	Name    string `json:"payroll_name"`
	Desc    string `json:"payroll_desc"`
	PayTime string `json:"pay_time"`
}

type UpdatePayrollRequest struct {
	ID      int64  `json:"id"`
	Name    string `json:"payroll_name"`
	Desc    string `json:"payroll_desc"`
	PayTime string `json:"pay_time"`
}

type StaffItem struct {
	UserID int64  `json:"user_id"`
	Amount string `json:"amount"`
}

func (c *Client) PayrollList(ctx context.Context) ([]types.Payroll, error) {
	var data struct {
		Payrolls []types.Payroll `json:"payrolls"`
	}
	if err := c.get(ctx, "/portal/payroll/list", &data); err != nil {
		return nil, err
	}
	return data.Payrolls, nil
}

func (c *Client) PayrollDetail(ctx context.Context, id int64) (*types.PayrollDetail, error) {
	var detail types.PayrollDetail
	if err := c.get(ctx, fmt.Sprintf("/portal/payroll/detail/%d", id), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) CreatePayroll(ctx context.Context, req CreatePayrollRequest) error {
	return c.post(ctx, "/portal/payroll/create", req, nil)
}

func (c *Client) UpdatePayroll(ctx context.Context, req UpdatePayrollRequest) error {
	return c.post(ctx, "/portal/payroll/update", req, nil)
}

func (c *Client) DeletePayroll(ctx context.Context, id int64) error {
	return c.post(ctx, "/portal/payroll/delete", map[string]int64{"id": id}, nil)
}

// SetPayrollStaff replaces the payroll's line items. Only valid while the
// payroll is in draft; the backend rejects it otherwise.
func (c *Client) SetPayrollStaff(ctx context.Context, payrollID int64, items []StaffItem) error {
	req := struct {
		PayrollID int64       `json:"payroll_id"`
		StaffList []StaffItem `json:"staff_list"`
	}{PayrollID: payrollID, StaffList: items}
	return c.post(ctx, "/portal/payroll/staff/set", req, nil)
}

func (c *Client) SetStaffWallet(ctx context.Context, userID int64, walletAddress string) error {
	req := map[string]string{"wallet_address": walletAddress}
	return c.post(ctx, fmt.Sprintf("/portal/payroll/staff/wallet/%d", userID), req, nil)
}

func (c *Client) PayrollStaffList(ctx context.Context) ([]types.PayrollStaffMember, error) {
	var data struct {
		StaffList []types.PayrollStaffMember `json:"staff_list"`
	}
	if err := c.get(ctx, "/portal/payroll/staff/list", &data); err != nil {
		return nil, err
	}
	return data.StaffList, nil
}

func (c *Client) SubmitPayroll(ctx context.Context, id int64) error {
	return c.post(ctx, "/portal/payroll/submit", map[string]int64{"id": id}, nil)
}

func (c *Client) AuditPayroll(ctx context.Context, payrollID int64, status string, reason string) error {
	req := struct {
		PayrollID int64  `json:"payroll_id"`
		Status    string `json:"status"`
		Reason    string `json:"reason,omitempty"`
	}{PayrollID: payrollID, Status: status, Reason: reason}
	return c.post(ctx, "/portal/payroll/audit", req, nil)
}

// PaymentConfig resolves the active chain, token contract, disbursement
// contract and recipient list for a payroll. It must be called fresh on
// every payment attempt; recipient wallets and authorization can change
// between attempts.
func (c *Client) PaymentConfig(ctx context.Context, payrollID int64) (*types.PaymentConfig, error) {
	var cfg types.PaymentConfig
	if err := c.get(ctx, fmt.Sprintf("/portal/payroll/pay/config/%d", payrollID), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NotifyPayment reports the mined transaction hash so the backend can move
// the payroll to paid.
func (c *Client) NotifyPayment(ctx context.Context, payrollID int64, txHash string) error {
	req := struct {
		PayrollID int64  `json:"payroll_id"`
		TxHash    string `json:"tx_hash"`
	}{PayrollID: payrollID, TxHash: txHash}
	return c.post(ctx, "/portal/payroll/pay/notify", req, nil)
}

// RecheckPayment asks the backend to re-derive the payroll status from
// actual chain state. It is the reconciliation path for the case where the
// transfer succeeded but the notify call did not.
func (c *Client) RecheckPayment(ctx context.Context, payrollID int64) (types.PayrollStatus, error) {
	var data struct {
		Status string `json:"status"`
	}
	req := map[string]int64{"payroll_id": payrollID}
	if err := c.post(ctx, "/portal/payroll/pay/recheck", req, &data); err != nil {
		return types.StatusUnknown, err
	}
	return types.ParsePayrollStatus(data.Status), nil
}

func (c *Client) PayslipList(ctx context.Context) ([]types.Payslip, error) {
	var payslips []types.Payslip
	if err := c.get(ctx, "/portal/payslip/list", &payslips); err != nil {
		return nil, err
	}
	return payslips, nil
}
