package chain

import (
	"context"
	"errors"
	"math/big"

	gcommon "github.com/ethereum/go-ethereum/common"
	gtypes "github.com/ethereum/go-ethereum/core/types"
)

// ErrReverted marks a transaction that was mined but reverted: it consumed
// gas but moved no funds, so the payment may be retried.
var ErrReverted = errors.New("transaction reverted")

// Wallet is the narrow capability surface the payment orchestrator needs
// from a connected wallet. The production implementation is HotWallet;
// orchestrator tests inject a fake.
type Wallet interface {
	// Address returns the payer account.
	Address() gcommon.Address
	// ChainID returns the currently connected chain id, 0 when not connected.
	ChainID(ctx context.Context) (int64, error)
	// SwitchChain connects the wallet to the given chain. May be refused.
	SwitchChain(ctx context.Context, chainID int64) error

	TokenDecimals(ctx context.Context, token gcommon.Address) (uint8, error)
	Allowance(ctx context.Context, token gcommon.Address, owner gcommon.Address, spender gcommon.Address) (*big.Int, error)
	Approve(ctx context.Context, token gcommon.Address, spender gcommon.Address, amount *big.Int) (gcommon.Hash, error)

	// BatchLimit reads the disbursement contract's maximum batch size.
	BatchLimit(ctx context.Context, contract gcommon.Address) (int64, error)
	// BatchTransfer disburses amounts[i] of token to recipients[i] in one
	// transaction. Both slices must be equal length and index-aligned.
	BatchTransfer(ctx context.Context, contract gcommon.Address, token gcommon.Address, period string, recipients []gcommon.Address, amounts []*big.Int) (gcommon.Hash, error)

	// WaitMined blocks until the transaction has one confirmation. A mined
	// but reverted transaction is returned as an error.
	WaitMined(ctx context.Context, txHash gcommon.Hash) (*gtypes.Receipt, error)
}
