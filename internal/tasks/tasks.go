package tasks

import "github.com/google/uuid"

const (
	TypePaymentRecheck = "payment:recheck"

	QueueRecheck = "recheck"
)

type PaymentRecheckPayload struct {
	PayrollID int64
	AttemptID uuid.UUID
	TxHash    string
}
