package chains

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedChain is returned when a backend chain designator cannot be
// mapped to a numeric chain id. This is a configuration problem, not
// something a user retry fixes.
var ErrUnsupportedChain = errors.New("unsupported chain designator")

// symbolic network labels the upstream backend is known to send.
var chainIDByName = map[string]int64{
	"ethereum":    1,
	"mainnet":     1,
	"goerli":      5,
	"optimism":    10,
	"bsc":         56,
	"bsc-testnet": 97,
	"polygon":     137,
	"base":        8453,
	"arbitrum":    42161,
	"sepolia":     11155111,
}

// Resolve maps a chain designator to a numeric chain id. The designator may
// be a numeric id encoded as text ("42161") or a symbolic name ("arbitrum").
func Resolve(designator string) (int64, error) {
	d := strings.ToLower(strings.TrimSpace(designator))
	if d == "" {
		return 0, fmt.Errorf("%w: empty designator", ErrUnsupportedChain)
	}
	if id, err := strconv.ParseInt(d, 10, 64); err == nil {
		if id <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedChain, designator)
		}
		return id, nil
	}
	if id, ok := chainIDByName[d]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedChain, designator)
}

// Name returns a display name for a chain id, for logging.
func Name(chainID int64) string {
	switch chainID {
	case 1:
		return "Ethereum"
	case 5:
		return "Goerli"
	case 10:
		return "Optimism"
	case 56:
		return "BNB Smart Chain"
	case 97:
		return "BSC Testnet"
	case 137:
		return "Polygon"
	case 8453:
		return "Base"
	case 42161:
		return "Arbitrum"
	case 11155111:
		return "Sepolia"
	}
	return fmt.Sprintf("chain-%d", chainID)
}
