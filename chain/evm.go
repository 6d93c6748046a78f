package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	gcommon "github.com/ethereum/go-ethereum/common"
	gtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/chainhr/payportal/config"
)

const receiptPollInterval = 2 * time.Second

// HotWallet signs and broadcasts with a server-side key. "Switching chain"
// re-targets the dialed RPC client; one endpoint per chain id comes from
// config. The wallet owns the connection state; callers must not assume a
// chain survives between calls and should re-validate after long waits.
type HotWallet struct {
	mu            sync.Mutex
	rpcs          map[int64]string
	client        *ethclient.Client
	chainID       int64
	privateKey    *ecdsa.PrivateKey
	address       gcommon.Address
	erc20         abi.ABI
	disburser     abi.ABI
	confirmations int64
	logger        *logrus.Logger
}

func NewHotWallet(cfg config.Config, logger *logrus.Logger) (*HotWallet, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(cfg.Chain.PrivateKey), "0x")
	privateKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("fail to parse payer private key, err: %w", err)
	}

	rpcs := make(map[int64]string, len(cfg.Chain.RPC))
	for rawID, url := range cfg.Chain.RPC {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q in rpc config, err: %w", rawID, err)
		}
		rpcs[id] = url
	}

	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("fail to parse erc20 abi, err: %w", err)
	}
	disburser, err := abi.JSON(strings.NewReader(disburserABI))
	if err != nil {
		return nil, fmt.Errorf("fail to parse disburser abi, err: %w", err)
	}

	confirmations := cfg.Chain.Confirmations
	if confirmations <= 0 {
		confirmations = 1
	}

	return &HotWallet{
		rpcs:          rpcs,
		privateKey:    privateKey,
		address:       crypto.PubkeyToAddress(privateKey.PublicKey),
		erc20:         erc20,
		disburser:     disburser,
		confirmations: confirmations,
		logger:        logger,
	}, nil
}

func (w *HotWallet) Address() gcommon.Address {
	return w.address
}

func (w *HotWallet) ChainID(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID, nil
}

func (w *HotWallet) SwitchChain(ctx context.Context, chainID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.client != nil && w.chainID == chainID {
		return nil
	}
	url, ok := w.rpcs[chainID]
	if !ok {
		return fmt.Errorf("no rpc endpoint configured for chain %d", chainID)
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return fmt.Errorf("fail to dial rpc for chain %d, err: %w", chainID, err)
	}
	remoteID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("fail to read chain id from rpc, err: %w", err)
	}
	if remoteID.Int64() != chainID {
		client.Close()
		return fmt.Errorf("rpc endpoint reports chain %s, expected %d", remoteID, chainID)
	}

	if w.client != nil {
		w.client.Close()
	}
	w.client = client
	w.chainID = chainID
	w.logger.WithFields(logrus.Fields{
		"chain_id": chainID,
		"account":  w.address.Hex(),
	}).Info("Wallet connected to chain")
	return nil
}

func (w *HotWallet) connection() (*ethclient.Client, int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client == nil {
		return nil, 0, fmt.Errorf("wallet is not connected to a chain")
	}
	return w.client, w.chainID, nil
}

func (w *HotWallet) read(ctx context.Context, parsed abi.ABI, contract gcommon.Address, method string, args ...interface{}) ([]interface{}, error) {
	client, _, err := w.connection()
	if err != nil {
		return nil, err
	}
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("fail to pack %s call, err: %w", method, err)
	}
	output, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("fail to call %s on %s, err: %w", method, contract.Hex(), err)
	}
	result, err := parsed.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("fail to unpack %s result, err: %w", method, err)
	}
	return result, nil
}

func (w *HotWallet) TokenDecimals(ctx context.Context, token gcommon.Address) (uint8, error) {
	result, err := w.read(ctx, w.erc20, token, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := result[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result type %T", result[0])
	}
	return decimals, nil
}

func (w *HotWallet) Allowance(ctx context.Context, token gcommon.Address, owner gcommon.Address, spender gcommon.Address) (*big.Int, error) {
	result, err := w.read(ctx, w.erc20, token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	allowance, ok := result[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance result type %T", result[0])
	}
	return allowance, nil
}

func (w *HotWallet) Approve(ctx context.Context, token gcommon.Address, spender gcommon.Address, amount *big.Int) (gcommon.Hash, error) {
	input, err := w.erc20.Pack("approve", spender, amount)
	if err != nil {
		return gcommon.Hash{}, fmt.Errorf("fail to pack approve data, err: %w", err)
	}
	return w.sendTransaction(ctx, token, input)
}

func (w *HotWallet) BatchLimit(ctx context.Context, contract gcommon.Address) (int64, error) {
	result, err := w.read(ctx, w.disburser, contract, "maxBatchSize")
	if err != nil {
		return 0, err
	}
	limit, ok := result[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected maxBatchSize result type %T", result[0])
	}
	return limit.Int64(), nil
}

func (w *HotWallet) BatchTransfer(ctx context.Context, contract gcommon.Address, token gcommon.Address, period string, recipients []gcommon.Address, amounts []*big.Int) (gcommon.Hash, error) {
	if len(recipients) != len(amounts) {
		return gcommon.Hash{}, fmt.Errorf("recipients/amounts length mismatch: %d != %d", len(recipients), len(amounts))
	}
	input, err := w.disburser.Pack("batchTransfer", token, period, recipients, amounts)
	if err != nil {
		return gcommon.Hash{}, fmt.Errorf("fail to pack batchTransfer data, err: %w", err)
	}
	return w.sendTransaction(ctx, contract, input)
}

func (w *HotWallet) sendTransaction(ctx context.Context, to gcommon.Address, input []byte) (gcommon.Hash, error) {
	client, chainID, err := w.connection()
	if err != nil {
		return gcommon.Hash{}, err
	}

	nonce, err := client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return gcommon.Hash{}, fmt.Errorf("fail to get nonce, err: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return gcommon.Hash{}, fmt.Errorf("fail to get gas price, err: %w", err)
	}
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: w.address,
		To:   &to,
		Data: input,
	})
	if err != nil {
		return gcommon.Hash{}, fmt.Errorf("fail to estimate gas, err: %w", err)
	}
	// headroom against estimate drift between simulation and inclusion
	gasLimit = gasLimit * 120 / 100

	tx := gtypes.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, input)
	signedTx, err := gtypes.SignTx(tx, gtypes.NewEIP155Signer(big.NewInt(chainID)), w.privateKey)
	if err != nil {
		return gcommon.Hash{}, fmt.Errorf("fail to sign transaction, err: %w", err)
	}
	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return gcommon.Hash{}, fmt.Errorf("fail to broadcast transaction, err: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"hash":      signedTx.Hash().Hex(),
		"to":        to.Hex(),
		"nonce":     nonce,
		"gas_limit": gasLimit,
		"gas_price": gasPrice.String(),
		"chain_id":  chainID,
	}).Info("Transaction broadcast")
	return signedTx.Hash(), nil
}

func (w *HotWallet) WaitMined(ctx context.Context, txHash gcommon.Hash) (*gtypes.Receipt, error) {
	client, _, err := w.connection()
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != gtypes.ReceiptStatusSuccessful {
				return nil, fmt.Errorf("transaction %s: %w", txHash.Hex(), ErrReverted)
			}
			if err := w.waitConfirmed(ctx, client, receipt.BlockNumber.Uint64(), ticker); err != nil {
				return nil, err
			}
			return receipt, nil
		}
		if err != ethereum.NotFound {
			w.logger.WithError(err).Warnf("fail to fetch receipt for %s, will retry", txHash.Hex())
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitConfirmed blocks until the mined block is buried under the configured
// confirmation depth. The inclusion block itself counts as confirmation one.
func (w *HotWallet) waitConfirmed(ctx context.Context, client *ethclient.Client, minedAt uint64, ticker *time.Ticker) error {
	for {
		head, err := client.BlockNumber(ctx)
		if err != nil {
			w.logger.WithError(err).Warn("fail to fetch head block, will retry")
		} else if confirmed(minedAt, head, w.confirmations) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func confirmed(minedAt, head uint64, confirmations int64) bool {
	if confirmations <= 1 {
		return true
	}
	if head < minedAt {
		return false
	}
	return head-minedAt+1 >= uint64(confirmations)
}
