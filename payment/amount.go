package payment

import (
	"fmt"
	"math/big"
	"strings"
)

// ToBaseUnits scales a decimal amount string to the token's integer base
// unit (amount * 10^decimals). All on-chain arithmetic goes through here;
// floating point is never involved. Digits beyond the token's precision are
// rejected unless they are zeros.
func ToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount %q", amount)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("malformed amount %q", amount)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("malformed amount %q", amount)
	}

	if len(frac) > int(decimals) {
		extra := frac[decimals:]
		if strings.Trim(extra, "0") != "" {
			return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
		}
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("fail to parse amount %q", amount)
	}
	return value, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
