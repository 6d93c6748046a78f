package payment

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	gcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chainhr/payportal/chain"
	"github.com/chainhr/payportal/internal/chains"
	"github.com/chainhr/payportal/internal/types"
	"github.com/chainhr/payportal/upstream"
)

// DefaultBatchLimit is used when the disbursement contract's own limit
// cannot be read.
const DefaultBatchLimit = 100

// Backend is the slice of the upstream client the orchestrator consumes.
type Backend interface {
	PayrollDetail(ctx context.Context, id int64) (*types.PayrollDetail, error)
	PaymentConfig(ctx context.Context, id int64) (*types.PaymentConfig, error)
	NotifyPayment(ctx context.Context, id int64, txHash string) error
}

// Locker serializes payment flows per payroll within and across gateway
// processes.
type Locker interface {
	AcquirePaymentLock(ctx context.Context, payrollID int64) (bool, error)
	ReleasePaymentLock(ctx context.Context, payrollID int64) error
}

// Journal is the durable record of payment attempts. A BROADCAST row with
// no acknowledgement is the "already broadcast" guard: it blocks any further
// transfer for that payroll until reconciliation clears it.
type Journal interface {
	CreateAttempt(ctx context.Context, attempt types.PaymentAttempt) error
	MarkBroadcast(ctx context.Context, id uuid.UUID, txHashes []string) error
	MarkAcknowledged(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	LatestAttempt(ctx context.Context, payrollID int64) (*types.PaymentAttempt, error)
}

// Rechecker schedules the reconciliation path after a failed acknowledge.
type Rechecker interface {
	EnqueueRecheck(ctx context.Context, payrollID int64, attemptID uuid.UUID, txHash string) error
}

// Archiver persists the payment receipt after a fully acknowledged payment.
type Archiver interface {
	ArchiveReceipt(ctx context.Context, receipt types.PaymentReceipt) error
}

// Orchestrator drives a single payroll from approved to a broadcast,
// backend-acknowledged payment. Steps run strictly sequentially; every
// failure is classified into the FlowError taxonomy before it reaches the
// caller.
type Orchestrator struct {
	backend   Backend
	wallet    chain.Wallet
	locker    Locker
	journal   Journal
	rechecker Rechecker
	archiver  Archiver
	sdClient  *statsd.Client
	logger    *logrus.Logger
}

func NewOrchestrator(
	backend Backend,
	wallet chain.Wallet,
	locker Locker,
	journal Journal,
	rechecker Rechecker,
	archiver Archiver,
	sdClient *statsd.Client,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		backend:   backend,
		wallet:    wallet,
		locker:    locker,
		journal:   journal,
		rechecker: rechecker,
		archiver:  archiver,
		sdClient:  sdClient,
		logger:    logger,
	}
}

// Pay executes the payment flow for one payroll. It is safe to invoke
// repeatedly for the same payroll id: the lock rejects concurrent flows, and
// a broadcast-but-unacknowledged attempt routes to reconciliation instead
// of a second transfer.
func (o *Orchestrator) Pay(ctx context.Context, payrollID int64) (*types.PaymentReceipt, error) {
	ok, err := o.locker.AcquirePaymentLock(ctx, payrollID)
	if err != nil {
		return nil, fmt.Errorf("fail to acquire payment lock, err: %w", err)
	}
	if !ok {
		return nil, ErrPaymentInProgress
	}
	defer func() {
		if err := o.locker.ReleasePaymentLock(context.WithoutCancel(ctx), payrollID); err != nil {
			o.logger.Errorf("fail to release payment lock for payroll %d, err: %v", payrollID, err)
		}
	}()

	// Broadcast guard: funds already moved, only reconciliation may proceed.
	last, err := o.journal.LatestAttempt(ctx, payrollID)
	if err != nil {
		return nil, fmt.Errorf("fail to read payment journal, err: %w", err)
	}
	if last != nil && last.State == types.AttemptBroadcast {
		o.scheduleRecheck(ctx, payrollID, last.ID, lastHash(last.TxHashes))
		return nil, failf(KindAcknowledgeFailed,
			"payroll %d has a broadcast payment awaiting acknowledgement, reconciliation scheduled", payrollID)
	}

	detail, err := o.backend.PayrollDetail(ctx, payrollID)
	if err != nil {
		return nil, failf(KindConfigUnavailable, "fail to load payroll %d, err: %w", payrollID, err)
	}
	status := detail.Payroll.Status()
	if status != types.StatusApproved && status != types.StatusPaying {
		return nil, fmt.Errorf("%w: payroll %d is %s", ErrWrongStatus, payrollID, status)
	}

	// Step 1: resolve config, fresh on every attempt.
	cfg, err := o.backend.PaymentConfig(ctx, payrollID)
	if err != nil {
		if upstream.IsPermissionDenied(err) {
			return nil, failf(KindPermissionDenied, "payment config rejected for payroll %d, err: %w", payrollID, err)
		}
		return nil, failf(KindConfigUnavailable, "fail to fetch payment config for payroll %d, err: %w", payrollID, err)
	}

	// Step 2: at least one payable recipient.
	recipients := payableRecipients(cfg.Recipients)
	if len(recipients) == 0 {
		return nil, failf(KindNoPayableRecipients, "payroll %d has no payable recipients", payrollID)
	}
	for _, r := range recipients {
		if !gcommon.IsHexAddress(r.Address) {
			return nil, failf(KindConfigUnavailable, "invalid recipient address %q", r.Address)
		}
	}
	if !gcommon.IsHexAddress(cfg.TokenContract) {
		return nil, failf(KindConfigUnavailable, "invalid token contract %q", cfg.TokenContract)
	}
	if !gcommon.IsHexAddress(cfg.DisburseContract) {
		return nil, failf(KindConfigUnavailable, "invalid disbursement contract %q", cfg.DisburseContract)
	}
	token := gcommon.HexToAddress(cfg.TokenContract)
	disburser := gcommon.HexToAddress(cfg.DisburseContract)

	// Step 3: normalize the chain designator.
	chainID, err := chains.Resolve(cfg.Chain)
	if err != nil {
		return nil, failf(KindUnsupportedChain, "payroll %d, err: %w", payrollID, err)
	}

	// Step 4: ensure the wallet is on the target chain.
	current, err := o.wallet.ChainID(ctx)
	if err != nil {
		return nil, failf(KindChainSwitchFailed, "fail to read wallet chain, err: %w", err)
	}
	if current != chainID {
		if err := o.wallet.SwitchChain(ctx, chainID); err != nil {
			return nil, failf(KindChainSwitchFailed, "fail to switch wallet to %s, err: %w", chains.Name(chainID), err)
		}
	}

	// Step 5: read token decimals from the chain, never assume.
	decimals, err := o.wallet.TokenDecimals(ctx, token)
	if err != nil {
		return nil, failf(KindApprovalFailed, "fail to read token decimals, err: %w", err)
	}

	addresses := make([]gcommon.Address, len(recipients))
	amounts := make([]*big.Int, len(recipients))
	total := new(big.Int)
	for i, r := range recipients {
		scaled, err := ToBaseUnits(r.Amount, decimals)
		if err != nil {
			return nil, failf(KindConfigUnavailable, "recipient %s, err: %w", r.Address, err)
		}
		addresses[i] = gcommon.HexToAddress(r.Address)
		amounts[i] = scaled
		total.Add(total, scaled)
	}

	// Step 6: ensure allowance covers the batch total.
	if err := o.ensureAllowance(ctx, token, disburser, chainID, total); err != nil {
		return nil, err
	}

	// Step 7: batched transfer, chunked to the contract's batch limit.
	attempt := types.PaymentAttempt{
		ID:             uuid.New(),
		PayrollID:      payrollID,
		State:          types.AttemptPending,
		ChainID:        chainID,
		TotalBaseUnits: total.String(),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := o.journal.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("fail to journal payment attempt, err: %w", err)
	}

	period := periodLabel(detail.Payroll)
	txHashes, ferr := o.transfer(ctx, payrollID, attempt.ID, disburser, token, period, addresses, amounts)
	if ferr != nil {
		return nil, ferr
	}

	// Step 8: acknowledge to the backend.
	o.count("payment.broadcast")
	if err := o.backend.NotifyPayment(ctx, payrollID, strings.Join(txHashes, ",")); err != nil {
		o.logger.WithError(err).WithField("payroll_id", payrollID).
			Error("On-chain transfer succeeded but backend acknowledgement failed")
		o.scheduleRecheck(ctx, payrollID, attempt.ID, lastHash(txHashes))
		return nil, failf(KindAcknowledgeFailed,
			"transfer mined (%s) but backend notification failed, err: %w", lastHash(txHashes), err)
	}
	if err := o.journal.MarkAcknowledged(ctx, attempt.ID); err != nil {
		o.logger.Errorf("fail to mark attempt %s acknowledged, err: %v", attempt.ID, err)
	}

	receipt := types.PaymentReceipt{
		PayrollID:      payrollID,
		Period:         period,
		ChainID:        chainID,
		TokenSymbol:    cfg.TokenSymbol,
		TokenContract:  cfg.TokenContract,
		TxHashes:       txHashes,
		Recipients:     len(recipients),
		TotalBaseUnits: total.String(),
		PaidAt:         time.Now().UTC(),
	}
	if o.archiver != nil {
		if err := o.archiver.ArchiveReceipt(ctx, receipt); err != nil {
			o.logger.Errorf("fail to archive receipt for payroll %d, err: %v", payrollID, err)
		}
	}
	o.count("payment.paid")
	o.logger.WithFields(logrus.Fields{
		"payroll_id": payrollID,
		"chain":      chains.Name(chainID),
		"recipients": len(recipients),
		"total":      total.String(),
		"tx":         lastHash(txHashes),
	}).Info("Payroll paid")
	return &receipt, nil
}

func (o *Orchestrator) ensureAllowance(ctx context.Context, token gcommon.Address, disburser gcommon.Address, chainID int64, total *big.Int) error {
	allowance, err := o.wallet.Allowance(ctx, token, o.wallet.Address(), disburser)
	if err != nil {
		return failf(KindApprovalFailed, "fail to read allowance, err: %w", err)
	}
	if allowance.Cmp(total) >= 0 {
		return nil
	}

	approveHash, err := o.wallet.Approve(ctx, token, disburser, total)
	if err != nil {
		return failf(KindApprovalFailed, "fail to submit approval, err: %w", err)
	}
	if _, err := o.wallet.WaitMined(ctx, approveHash); err != nil {
		return failf(KindApprovalFailed, "approval %s not mined, err: %w", approveHash.Hex(), err)
	}
	o.count("payment.approve")

	// The approval wait is long enough for out-of-band wallet changes;
	// re-validate the connected chain before any transfer.
	current, err := o.wallet.ChainID(ctx)
	if err != nil {
		return failf(KindChainSwitchFailed, "fail to re-validate wallet chain, err: %w", err)
	}
	if current != chainID {
		return failf(KindChainSwitchFailed, "wallet chain changed during approval wait: on %d, expected %d", current, chainID)
	}
	return nil
}

func (o *Orchestrator) transfer(ctx context.Context, payrollID int64, attemptID uuid.UUID, disburser gcommon.Address, token gcommon.Address, period string, addresses []gcommon.Address, amounts []*big.Int) ([]string, *FlowError) {
	limit, err := o.wallet.BatchLimit(ctx, disburser)
	if err != nil || limit <= 0 {
		if err != nil {
			o.logger.WithError(err).Warnf("fail to read batch limit, using default %d", DefaultBatchLimit)
		}
		limit = DefaultBatchLimit
	}

	var txHashes []string
	for start := 0; start < len(addresses); start += int(limit) {
		end := start + int(limit)
		if end > len(addresses) {
			end = len(addresses)
		}

		hash, err := o.wallet.BatchTransfer(ctx, disburser, token, period, addresses[start:end], amounts[start:end])
		if err != nil {
			if len(txHashes) > 0 {
				// earlier chunks already moved funds; the row stays
				// BROADCAST so the guard blocks a retransfer
				o.scheduleRecheck(ctx, payrollID, attemptID, lastHash(txHashes))
				return nil, failf(KindAcknowledgeFailed,
					"batch transfer failed after %d broadcast chunk(s), reconciliation scheduled, err: %w", len(txHashes), err)
			}
			o.markFailed(ctx, attemptID, err)
			return nil, failf(KindTransferFailed, "fail to submit batch transfer, err: %w", err)
		}
		txHashes = append(txHashes, hash.Hex())
		// journal before the wait: from here on funds may be in flight
		if err := o.journal.MarkBroadcast(ctx, attemptID, txHashes); err != nil {
			o.logger.Errorf("fail to journal broadcast %s, err: %v", hash.Hex(), err)
		}

		if _, err := o.wallet.WaitMined(ctx, hash); err != nil {
			if len(txHashes) > 1 {
				o.scheduleRecheck(ctx, payrollID, attemptID, lastHash(txHashes))
				return nil, failf(KindAcknowledgeFailed,
					"chunk %s failed after earlier chunks mined, reconciliation scheduled, err: %w", hash.Hex(), err)
			}
			if errors.Is(err, chain.ErrReverted) {
				// a reverted sole batch moves no funds; clear the guard for retry
				o.markFailed(ctx, attemptID, err)
			}
			return nil, failf(KindTransferFailed, "batch transfer %s failed, err: %w", hash.Hex(), err)
		}
	}
	return txHashes, nil
}

func (o *Orchestrator) scheduleRecheck(ctx context.Context, payrollID int64, attemptID uuid.UUID, txHash string) {
	if o.rechecker == nil {
		return
	}
	if err := o.rechecker.EnqueueRecheck(ctx, payrollID, attemptID, txHash); err != nil {
		o.logger.Errorf("fail to enqueue recheck for payroll %d, err: %v", payrollID, err)
	}
}

func (o *Orchestrator) markFailed(ctx context.Context, attemptID uuid.UUID, cause error) {
	if err := o.journal.MarkFailed(ctx, attemptID, cause.Error()); err != nil {
		o.logger.Errorf("fail to mark attempt %s failed, err: %v", attemptID, err)
	}
}

func (o *Orchestrator) count(name string) {
	if o.sdClient == nil {
		return
	}
	if err := o.sdClient.Count(name, 1, nil, 1); err != nil {
		o.logger.Errorf("fail to count metric, err: %v", err)
	}
}

func payableRecipients(in []types.PaymentRecipient) []types.PaymentRecipient {
	var out []types.PaymentRecipient
	for _, r := range in {
		if strings.TrimSpace(r.Address) != "" {
			out = append(out, r)
		}
	}
	return out
}

func periodLabel(p types.Payroll) string {
	if p.PayTime != "" {
		return p.PayTime
	}
	return p.Name
}

func lastHash(hashes []string) string {
	if len(hashes) == 0 {
		return ""
	}
	return hashes[len(hashes)-1]
}
