package payment

import (
	"errors"
	"fmt"
)

// Kind classifies every payment flow failure into the fixed taxonomy the UI
// is allowed to see. Raw network or chain errors never cross the
// orchestrator boundary unclassified.
type Kind int

const (
	// KindPermissionDenied: payment config fetch rejected by the backend.
	// No chain interaction happened; fully recoverable.
	KindPermissionDenied Kind = iota
	// KindConfigUnavailable: config fetch failed or returned unusable data.
	KindConfigUnavailable
	// KindNoPayableRecipients: config loaded but nothing to pay.
	KindNoPayableRecipients
	// KindUnsupportedChain: backend named a chain this client cannot map to
	// an id. Needs a configuration fix, not a user retry.
	KindUnsupportedChain
	// KindChainSwitchFailed: wallet refused or failed the chain switch.
	KindChainSwitchFailed
	// KindApprovalFailed: allowance phase failed before any transfer. No
	// funds moved; retryable.
	KindApprovalFailed
	// KindTransferFailed: batch transfer rejected or reverted. The payroll
	// stays approved on the backend.
	KindTransferFailed
	// KindAcknowledgeFailed: the on-chain transfer succeeded but the backend
	// was not notified. Funds HAVE moved; the only safe follow-up is the
	// reconciliation path, never another payment attempt.
	KindAcknowledgeFailed
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindConfigUnavailable:
		return "config_unavailable"
	case KindNoPayableRecipients:
		return "no_payable_recipients"
	case KindUnsupportedChain:
		return "unsupported_chain"
	case KindChainSwitchFailed:
		return "chain_switch_failed"
	case KindApprovalFailed:
		return "approval_failed"
	case KindTransferFailed:
		return "transfer_failed"
	case KindAcknowledgeFailed:
		return "acknowledge_failed"
	}
	return "unknown"
}

// Retryable reports whether re-invoking the whole flow is safe.
func (k Kind) Retryable() bool {
	return k != KindUnsupportedChain && k != KindAcknowledgeFailed
}

// FlowError is the single discriminated failure the orchestrator returns.
type FlowError struct {
	Kind Kind
	Err  error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func failf(kind Kind, format string, args ...interface{}) *FlowError {
	return &FlowError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an orchestrator error.
func KindOf(err error) (Kind, bool) {
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr.Kind, true
	}
	return 0, false
}

// ErrPaymentInProgress: another flow for the same payroll holds the payment
// lock. Not part of the failure taxonomy; the caller simply waits.
var ErrPaymentInProgress = errors.New("payment already in progress for this payroll")

// ErrWrongStatus: the payroll is not in a payable lifecycle state.
var ErrWrongStatus = errors.New("payroll is not approved for payment")
