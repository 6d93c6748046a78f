package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/chainhr/payportal/internal/types"
)

type DatabaseStorage interface {
	Close() error

	CreateAttempt(ctx context.Context, attempt types.PaymentAttempt) error
	MarkBroadcast(ctx context.Context, id uuid.UUID, txHashes []string) error
	MarkAcknowledged(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	LatestAttempt(ctx context.Context, payrollID int64) (*types.PaymentAttempt, error)
	AttemptByID(ctx context.Context, id uuid.UUID) (*types.PaymentAttempt, error)
	AttemptHistory(ctx context.Context, payrollID int64, take int, skip int) ([]types.PaymentAttempt, error)
}
