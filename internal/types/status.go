package types

import "strings"

// PayrollStatus is the single closed representation of a payroll lifecycle
// state. The upstream backend has shipped two conventions for the status
// field over time, two-digit flags ("00".."05") and word labels ("create",
// "approved", ...); ParsePayrollStatus folds both into this type so nothing
// downstream branches on the raw field.
type PayrollStatus int

const (
	StatusUnknown PayrollStatus = iota
	StatusDraft
	StatusSubmitted
	StatusApproved
	StatusRejected
	StatusPaying
	StatusPaid
)

func (s PayrollStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusSubmitted:
		return "submitted"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusPaying:
		return "paying"
	case StatusPaid:
		return "paid"
	}
	return "unknown"
}

// Terminal reports whether no further lifecycle transition is possible.
func (s PayrollStatus) Terminal() bool {
	return s == StatusRejected || s == StatusPaid
}

func ParsePayrollStatus(raw string) PayrollStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "00", "create", "draft":
		return StatusDraft
	case "01", "submit", "submitted":
		return StatusSubmitted
	case "02", "approve", "approved", "audit_pass":
		return StatusApproved
	case "03", "reject", "rejected", "audit_fail":
		return StatusRejected
	case "04", "paid", "success":
		return StatusPaid
	case "05", "pay", "paying":
		return StatusPaying
	}
	return StatusUnknown
}

// AuditStatus values accepted by the upstream audit endpoint.
const (
	AuditApprove = "02"
	AuditReject  = "03"
)
