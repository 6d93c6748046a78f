package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chainhr/payportal/internal/types"
)

func (p *PostgresBackend) CreateAttempt(ctx context.Context, attempt types.PaymentAttempt) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	txHashes := attempt.TxHashes
	if txHashes == nil {
		txHashes = []string{}
	}
	query := `INSERT INTO payment_attempts
	(id, payroll_id, state, chain_id, tx_hashes, total_base_units, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`
	_, err := p.pool.Exec(ctx, query,
		attempt.ID, attempt.PayrollID, attempt.State, attempt.ChainID, txHashes, attempt.TotalBaseUnits)
	if err != nil {
		return fmt.Errorf("failed to insert payment attempt: %w", err)
	}
	return nil
}

func (p *PostgresBackend) MarkBroadcast(ctx context.Context, id uuid.UUID, txHashes []string) error {
	return p.setState(ctx, id, types.AttemptBroadcast, txHashes, nil)
}

func (p *PostgresBackend) MarkAcknowledged(ctx context.Context, id uuid.UUID) error {
	return p.setState(ctx, id, types.AttemptAcknowledged, nil, nil)
}

func (p *PostgresBackend) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return p.setState(ctx, id, types.AttemptFailed, nil, &reason)
}

func (p *PostgresBackend) setState(ctx context.Context, id uuid.UUID, state types.AttemptState, txHashes []string, errorMessage *string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	query := `UPDATE payment_attempts
	SET state = $2,
	    tx_hashes = COALESCE($3, tx_hashes),
	    error_message = COALESCE($4, error_message),
	    updated_at = now()
	WHERE id = $1
	`
	tag, err := p.pool.Exec(ctx, query, id, state, txHashes, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update payment attempt %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment attempt %s not found", id)
	}
	return nil
}

// LatestAttempt returns the most recent attempt for a payroll, or nil when
// the payroll has never been paid from this gateway.
func (p *PostgresBackend) LatestAttempt(ctx context.Context, payrollID int64) (*types.PaymentAttempt, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	query := `SELECT id, payroll_id, state, chain_id, tx_hashes, total_base_units, error_message, created_at, updated_at
	FROM payment_attempts
	WHERE payroll_id = $1
	ORDER BY created_at DESC
	LIMIT 1
	`
	attempt, err := scanAttempt(p.pool.QueryRow(ctx, query, payrollID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest attempt: %w", err)
	}
	return attempt, nil
}

func (p *PostgresBackend) AttemptByID(ctx context.Context, id uuid.UUID) (*types.PaymentAttempt, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	query := `SELECT id, payroll_id, state, chain_id, tx_hashes, total_base_units, error_message, created_at, updated_at
	FROM payment_attempts
	WHERE id = $1
	`
	attempt, err := scanAttempt(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt %s: %w", id, err)
	}
	return attempt, nil
}

func (p *PostgresBackend) AttemptHistory(ctx context.Context, payrollID int64, take int, skip int) ([]types.PaymentAttempt, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}
	query := `SELECT id, payroll_id, state, chain_id, tx_hashes, total_base_units, error_message, created_at, updated_at
	FROM payment_attempts
	WHERE payroll_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3
	`
	rows, err := p.pool.Query(ctx, query, payrollID, take, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt history: %w", err)
	}
	defer rows.Close()

	var attempts []types.PaymentAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		attempts = append(attempts, *attempt)
	}
	return attempts, rows.Err()
}

func scanAttempt(row pgx.Row) (*types.PaymentAttempt, error) {
	var attempt types.PaymentAttempt
	err := row.Scan(
		&attempt.ID,
		&attempt.PayrollID,
		&attempt.State,
		&attempt.ChainID,
		&attempt.TxHashes,
		&attempt.TotalBaseUnits,
		&attempt.ErrorMessage,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
