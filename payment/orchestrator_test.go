package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"testing"

	gcommon "github.com/ethereum/go-ethereum/common"
	gtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainhr/payportal/chain"
	"github.com/chainhr/payportal/internal/types"
	"github.com/chainhr/payportal/upstream"
)

const (
	addrA = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	addrB = "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"

	tokenAddr    = "0x1111111111111111111111111111111111111111"
	disburseAddr = "0x2222222222222222222222222222222222222222"
)

type fakeBackend struct {
	detail      *types.PayrollDetail
	detailErr   error
	config      *types.PaymentConfig
	configErr   error
	configCalls int
	notifyErr   error
	notified    []string
}

func (b *fakeBackend) PayrollDetail(ctx context.Context, id int64) (*types.PayrollDetail, error) {
	if b.detailErr != nil {
		return nil, b.detailErr
	}
	return b.detail, nil
}

func (b *fakeBackend) PaymentConfig(ctx context.Context, id int64) (*types.PaymentConfig, error) {
	b.configCalls++
	if b.configErr != nil {
		return nil, b.configErr
	}
	return b.config, nil
}

func (b *fakeBackend) NotifyPayment(ctx context.Context, id int64, txHash string) error {
	if b.notifyErr != nil {
		return b.notifyErr
	}
	b.notified = append(b.notified, txHash)
	return nil
}

type batchCall struct {
	period     string
	recipients []gcommon.Address
	amounts    []*big.Int
}

type fakeWallet struct {
	ops []string

	chainID   int64
	switchErr error
	switches  []int64

	decimals  uint8
	allowance *big.Int

	approveErr    error
	approvals     []*big.Int
	batchLimit    int64
	limitErr      error
	transferErr   error
	transferErrAt int // 1-based call index to fail on; 0 fails every call
	transfers     []batchCall

	waitErr map[string]error
	nextTx  int
}

func (w *fakeWallet) op(name string) { w.ops = append(w.ops, name) }

func (w *fakeWallet) Address() gcommon.Address {
	return gcommon.HexToAddress("0x00000000000000000000000000000000000000FF")
}

func (w *fakeWallet) ChainID(ctx context.Context) (int64, error) {
	w.op("chainid")
	return w.chainID, nil
}

func (w *fakeWallet) SwitchChain(ctx context.Context, chainID int64) error {
	w.op("switch")
	w.switches = append(w.switches, chainID)
	if w.switchErr != nil {
		return w.switchErr
	}
	w.chainID = chainID
	return nil
}

func (w *fakeWallet) TokenDecimals(ctx context.Context, token gcommon.Address) (uint8, error) {
	w.op("decimals")
	return w.decimals, nil
}

func (w *fakeWallet) Allowance(ctx context.Context, token, owner, spender gcommon.Address) (*big.Int, error) {
	w.op("allowance")
	return new(big.Int).Set(w.allowance), nil
}

func (w *fakeWallet) Approve(ctx context.Context, token, spender gcommon.Address, amount *big.Int) (gcommon.Hash, error) {
	w.op("approve")
	if w.approveErr != nil {
		return gcommon.Hash{}, w.approveErr
	}
	w.approvals = append(w.approvals, new(big.Int).Set(amount))
	return w.newTx(), nil
}

func (w *fakeWallet) BatchLimit(ctx context.Context, contract gcommon.Address) (int64, error) {
	w.op("batchlimit")
	return w.batchLimit, w.limitErr
}

func (w *fakeWallet) BatchTransfer(ctx context.Context, contract, token gcommon.Address, period string, recipients []gcommon.Address, amounts []*big.Int) (gcommon.Hash, error) {
	w.op("transfer")
	if w.transferErr != nil && (w.transferErrAt == 0 || w.transferErrAt == len(w.transfers)+1) {
		return gcommon.Hash{}, w.transferErr
	}
	w.transfers = append(w.transfers, batchCall{period: period, recipients: recipients, amounts: amounts})
	return w.newTx(), nil
}

func (w *fakeWallet) WaitMined(ctx context.Context, txHash gcommon.Hash) (*gtypes.Receipt, error) {
	w.op("wait")
	if err, ok := w.waitErr[txHash.Hex()]; ok && err != nil {
		return nil, err
	}
	return &gtypes.Receipt{Status: gtypes.ReceiptStatusSuccessful}, nil
}

func (w *fakeWallet) newTx() gcommon.Hash {
	w.nextTx++
	return gcommon.HexToHash(fmt.Sprintf("0x%064x", w.nextTx))
}

type fakeLocker struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLocker) AcquirePaymentLock(ctx context.Context, payrollID int64) (bool, error) {
	l.acquired++
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLocker) ReleasePaymentLock(ctx context.Context, payrollID int64) error {
	l.held = false
	l.released++
	return nil
}

type fakeJournal struct {
	latest       *types.PaymentAttempt
	created      []types.PaymentAttempt
	broadcast    [][]string
	acknowledged []uuid.UUID
	failed       []string
}

func (j *fakeJournal) CreateAttempt(ctx context.Context, attempt types.PaymentAttempt) error {
	j.created = append(j.created, attempt)
	return nil
}

func (j *fakeJournal) MarkBroadcast(ctx context.Context, id uuid.UUID, txHashes []string) error {
	j.broadcast = append(j.broadcast, append([]string(nil), txHashes...))
	return nil
}

func (j *fakeJournal) MarkAcknowledged(ctx context.Context, id uuid.UUID) error {
	j.acknowledged = append(j.acknowledged, id)
	return nil
}

func (j *fakeJournal) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	j.failed = append(j.failed, reason)
	return nil
}

func (j *fakeJournal) LatestAttempt(ctx context.Context, payrollID int64) (*types.PaymentAttempt, error) {
	return j.latest, nil
}

type fakeRechecker struct {
	enqueued []int64
}

func (r *fakeRechecker) EnqueueRecheck(ctx context.Context, payrollID int64, attemptID uuid.UUID, txHash string) error {
	r.enqueued = append(r.enqueued, payrollID)
	return nil
}

func approvedDetail() *types.PayrollDetail {
	return &types.PayrollDetail{
		Payroll: types.Payroll{ID: 42, RawStatus: "02", PayTime: "2026-08", TotalAmount: "150.00"},
	}
}

func twoRecipientConfig() *types.PaymentConfig {
	return &types.PaymentConfig{
		Chain:            "arbitrum",
		TokenSymbol:      "USDT",
		TokenContract:    tokenAddr,
		DisburseContract: disburseAddr,
		Recipients: []types.PaymentRecipient{
			{Address: addrA, Amount: "100.00"},
			{Address: addrB, Amount: "50.00"},
		},
	}
}

func newTestOrchestrator(backend *fakeBackend, wallet *fakeWallet) (*Orchestrator, *fakeLocker, *fakeJournal, *fakeRechecker) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	locker := &fakeLocker{}
	journal := &fakeJournal{}
	rechecker := &fakeRechecker{}
	o := NewOrchestrator(backend, wallet, locker, journal, rechecker, nil, nil, logger)
	return o, locker, journal, rechecker
}

func TestPayRefusesWrongStatus(t *testing.T) {
	for _, raw := range []string{"00", "01", "03", "04"} {
		backend := &fakeBackend{detail: &types.PayrollDetail{Payroll: types.Payroll{ID: 42, RawStatus: raw}}}
		wallet := &fakeWallet{chainID: 42161, allowance: big.NewInt(0)}
		o, _, _, _ := newTestOrchestrator(backend, wallet)

		_, err := o.Pay(context.Background(), 42)
		require.Error(t, err, "status %s", raw)
		assert.ErrorIs(t, err, ErrWrongStatus)
		assert.Zero(t, backend.configCalls, "config must not be fetched for status %s", raw)
		assert.Empty(t, wallet.ops)
	}
}

func TestPayNoPayableRecipients(t *testing.T) {
	cfg := &types.PaymentConfig{
		Chain:            "arbitrum",
		TokenContract:    tokenAddr,
		DisburseContract: disburseAddr,
		Recipients: []types.PaymentRecipient{
			{Address: "", Amount: "100.00"},
			{Address: "   ", Amount: "50.00"},
		},
	}
	backend := &fakeBackend{detail: approvedDetail(), config: cfg}
	wallet := &fakeWallet{chainID: 1, allowance: big.NewInt(0)}
	o, _, _, _ := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindNoPayableRecipients, kind)
	assert.Empty(t, wallet.ops, "no chain read or write may happen")
}

func TestPayPermissionDeniedVsConfigUnavailable(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), configErr: &upstream.APIError{Code: 403, Msg: "no permission"}}
	wallet := &fakeWallet{chainID: 1, allowance: big.NewInt(0)}
	o, _, _, _ := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindPermissionDenied, kind)

	backend.configErr = errors.New("upstream down")
	_, err = o.Pay(context.Background(), 42)
	kind, ok = KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConfigUnavailable, kind)
	assert.Empty(t, wallet.ops)
}

func TestPayUnsupportedChain(t *testing.T) {
	cfg := twoRecipientConfig()
	cfg.Chain = "fantom"
	backend := &fakeBackend{detail: approvedDetail(), config: cfg}
	wallet := &fakeWallet{chainID: 1, allowance: big.NewInt(0)}
	o, _, _, _ := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindUnsupportedChain, kind)
	assert.False(t, KindUnsupportedChain.Retryable())
	assert.Empty(t, wallet.switches)
}

func TestPaySwitchesChainOnceBeforeTokenReads(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig()}
	wallet := &fakeWallet{chainID: 1, decimals: 6, allowance: big.NewInt(1_000_000_000), batchLimit: 100}
	o, _, _, _ := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, []int64{42161}, wallet.switches)
	// the switch happens before any token read
	require.GreaterOrEqual(t, len(wallet.ops), 3)
	assert.Equal(t, []string{"chainid", "switch", "decimals"}, wallet.ops[:3])
}

func TestPayChainSwitchFailureStopsBeforeWrites(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig()}
	wallet := &fakeWallet{chainID: 1, switchErr: errors.New("user declined"), allowance: big.NewInt(0)}
	o, _, _, _ := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindChainSwitchFailed, kind)
	assert.True(t, kind.Retryable())
	assert.Empty(t, wallet.approvals)
	assert.Empty(t, wallet.transfers)
}

func TestPaySkipsApprovalWhenAllowanceSufficient(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig()}
	// total required is 150_000_000 at 6 decimals
	wallet := &fakeWallet{chainID: 42161, decimals: 6, allowance: big.NewInt(150_000_000), batchLimit: 100}
	o, _, _, _ := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, wallet.approvals, "approve must be skipped entirely")
	assert.Len(t, wallet.transfers, 1)
}

func TestPayApprovesShortfallBeforeTransfer(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig()}
	wallet := &fakeWallet{chainID: 42161, decimals: 6, allowance: big.NewInt(149_999_999), batchLimit: 100}
	o, _, _, _ := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	require.NoError(t, err)

	require.Len(t, wallet.approvals, 1, "exactly one approve call")
	shortfall := big.NewInt(1)
	assert.True(t, wallet.approvals[0].Cmp(shortfall) >= 0, "approval must cover at least the shortfall")

	var approveIdx, transferIdx int
	for i, op := range wallet.ops {
		if op == "approve" {
			approveIdx = i
		}
		if op == "transfer" && transferIdx == 0 {
			transferIdx = i
		}
	}
	assert.Less(t, approveIdx, transferIdx, "approve must precede the transfer")
}

func TestPayApprovalFailure(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig()}
	wallet := &fakeWallet{chainID: 42161, decimals: 6, allowance: big.NewInt(0), approveErr: errors.New("rejected")}
	o, _, _, _ := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindApprovalFailed, kind)
	assert.True(t, kind.Retryable())
	assert.Empty(t, wallet.transfers)
}

func TestPayAmountsScaledAndAligned(t *testing.T) {
	// payroll 42, total 150.00, recipients 100.00 and 50.00, 6 decimals
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig()}
	wallet := &fakeWallet{chainID: 42161, decimals: 6, allowance: big.NewInt(1_000_000_000), batchLimit: 100}
	o, _, _, _ := newTestOrchestrator(backend, wallet)

	receipt, err := o.Pay(context.Background(), 42)
	require.NoError(t, err)

	require.Len(t, wallet.transfers, 1)
	call := wallet.transfers[0]
	require.Len(t, call.recipients, 2)
	require.Len(t, call.amounts, 2)
	assert.Equal(t, gcommon.HexToAddress(addrA), call.recipients[0])
	assert.Equal(t, gcommon.HexToAddress(addrB), call.recipients[1])
	assert.Equal(t, big.NewInt(100_000_000), call.amounts[0])
	assert.Equal(t, big.NewInt(50_000_000), call.amounts[1])
	assert.Equal(t, "2026-08", call.period)
	assert.Equal(t, "USDT", receipt.TokenSymbol)
	assert.Equal(t, tokenAddr, receipt.TokenContract)
}

func TestPayChunksToContractBatchLimit(t *testing.T) {
	cfg := &types.PaymentConfig{
		Chain:            "42161",
		TokenContract:    tokenAddr,
		DisburseContract: disburseAddr,
	}
	for i := 0; i < 5; i++ {
		cfg.Recipients = append(cfg.Recipients, types.PaymentRecipient{
			Address: fmt.Sprintf("0x%040d", i+1),
			Amount:  "10.00",
		})
	}
	backend := &fakeBackend{detail: approvedDetail(), config: cfg}
	wallet := &fakeWallet{chainID: 42161, decimals: 6, allowance: big.NewInt(1_000_000_000), batchLimit: 2}
	o, _, journal, _ := newTestOrchestrator(backend, wallet)

	receipt, err := o.Pay(context.Background(), 42)
	require.NoError(t, err)

	require.Len(t, wallet.transfers, 3)
	assert.Len(t, wallet.transfers[0].recipients, 2)
	assert.Len(t, wallet.transfers[1].recipients, 2)
	assert.Len(t, wallet.transfers[2].recipients, 1)
	// order preserved across chunks
	assert.Equal(t, gcommon.HexToAddress(fmt.Sprintf("0x%040d", 5)), wallet.transfers[2].recipients[0])
	assert.Len(t, receipt.TxHashes, 3)
	assert.NotEmpty(t, journal.acknowledged)
}

func TestPayAcknowledgeFailed(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig(), notifyErr: errors.New("backend down")}
	wallet := &fakeWallet{chainID: 42161, decimals: 6, allowance: big.NewInt(1_000_000_000), batchLimit: 100}
	o, _, journal, rechecker := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAcknowledgeFailed, kind)
	assert.NotEqual(t, KindTransferFailed, kind)
	assert.False(t, kind.Retryable())

	assert.Len(t, wallet.transfers, 1, "no second transfer may be triggered")
	assert.Empty(t, journal.acknowledged)
	assert.Equal(t, []int64{42}, rechecker.enqueued, "must route to reconciliation")
}

func TestPayBroadcastGuardBlocksRetry(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig()}
	wallet := &fakeWallet{chainID: 42161, decimals: 6, allowance: big.NewInt(1_000_000_000), batchLimit: 100}
	o, _, journal, rechecker := newTestOrchestrator(backend, wallet)
	journal.latest = &types.PaymentAttempt{
		ID:        uuid.New(),
		PayrollID: 42,
		State:     types.AttemptBroadcast,
		TxHashes:  []string{"0xdead"},
	}

	_, err := o.Pay(context.Background(), 42)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAcknowledgeFailed, kind)
	assert.Zero(t, backend.configCalls)
	assert.Empty(t, wallet.ops, "no chain interaction while an attempt awaits acknowledgement")
	assert.Equal(t, []int64{42}, rechecker.enqueued)
}

func TestPayTransferRevertClearsGuard(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig()}
	wallet := &fakeWallet{chainID: 42161, decimals: 6, allowance: big.NewInt(1_000_000_000), batchLimit: 100}
	wallet.waitErr = map[string]error{
		fmt.Sprintf("0x%064x", 1): fmt.Errorf("tx: %w", chain.ErrReverted),
	}
	o, _, journal, _ := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindTransferFailed, kind)
	assert.True(t, kind.Retryable())
	assert.NotEmpty(t, journal.failed, "reverted transfer must clear the broadcast guard")
	assert.Empty(t, backend.notified)
}

func fourRecipientConfig() *types.PaymentConfig {
	cfg := &types.PaymentConfig{
		Chain:            "42161",
		TokenContract:    tokenAddr,
		DisburseContract: disburseAddr,
	}
	for i := 0; i < 4; i++ {
		cfg.Recipients = append(cfg.Recipients, types.PaymentRecipient{
			Address: fmt.Sprintf("0x%040d", i+1),
			Amount:  "10.00",
		})
	}
	return cfg
}

func TestPayLaterChunkRevertRoutesToReconciliation(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: fourRecipientConfig()}
	wallet := &fakeWallet{chainID: 42161, decimals: 6, allowance: big.NewInt(1_000_000_000), batchLimit: 2}
	// first chunk mines, second chunk reverts
	wallet.waitErr = map[string]error{
		fmt.Sprintf("0x%064x", 2): fmt.Errorf("tx: %w", chain.ErrReverted),
	}
	o, _, journal, rechecker := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAcknowledgeFailed, kind)
	assert.False(t, kind.Retryable())

	assert.Empty(t, journal.failed, "a partially paid attempt must keep its broadcast guard")
	assert.Equal(t, []int64{42}, rechecker.enqueued, "must route to reconciliation")
	require.Len(t, wallet.transfers, 2)

	// a retry finds the broadcast row and must not transfer again
	journal.latest = &types.PaymentAttempt{
		ID:        journal.created[0].ID,
		PayrollID: 42,
		State:     types.AttemptBroadcast,
		TxHashes:  journal.broadcast[len(journal.broadcast)-1],
	}
	_, err = o.Pay(context.Background(), 42)
	kind, ok = KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAcknowledgeFailed, kind)
	assert.Len(t, wallet.transfers, 2, "already-paid recipients must not be paid again on retry")
}

func TestPayLaterChunkSubmitFailureRoutesToReconciliation(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: fourRecipientConfig()}
	wallet := &fakeWallet{
		chainID:       42161,
		decimals:      6,
		allowance:     big.NewInt(1_000_000_000),
		batchLimit:    2,
		transferErr:   errors.New("nonce too low"),
		transferErrAt: 2,
	}
	o, _, journal, rechecker := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAcknowledgeFailed, kind)
	assert.Empty(t, journal.failed, "the mined first chunk must keep the guard in place")
	assert.Equal(t, []int64{42}, rechecker.enqueued)
	assert.Len(t, wallet.transfers, 1, "only the first chunk may have been submitted")
}

func TestPayLockPreventsConcurrentFlows(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig()}
	wallet := &fakeWallet{chainID: 42161, allowance: big.NewInt(0)}
	o, locker, _, _ := newTestOrchestrator(backend, wallet)
	locker.held = true

	_, err := o.Pay(context.Background(), 42)
	assert.ErrorIs(t, err, ErrPaymentInProgress)
	assert.Empty(t, wallet.ops)
}

func TestPayReleasesLockOnCompletion(t *testing.T) {
	backend := &fakeBackend{detail: approvedDetail(), config: twoRecipientConfig()}
	wallet := &fakeWallet{chainID: 42161, decimals: 6, allowance: big.NewInt(1_000_000_000), batchLimit: 100}
	o, locker, _, _ := newTestOrchestrator(backend, wallet)

	_, err := o.Pay(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.released)
	assert.False(t, locker.held)
}
