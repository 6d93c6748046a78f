package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func NewPaymentRecheck(
	payrollID int64,
	attemptID uuid.UUID,
	txHash string,
) (*asynq.Task, error) {
	payload, err := json.Marshal(PaymentRecheckPayload{PayrollID: payrollID, AttemptID: attemptID, TxHash: txHash})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePaymentRecheck, payload), nil
}

// Enqueuer submits reconciliation tasks to the recheck worker.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueRecheck(ctx context.Context, payrollID int64, attemptID uuid.UUID, txHash string) error {
	task, err := NewPaymentRecheck(payrollID, attemptID, txHash)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(10),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Queue(QueueRecheck))
	return err
}
