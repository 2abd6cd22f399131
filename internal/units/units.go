package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// MaxDecimals bounds the scale so 10^decimals still fits a uint256.
const MaxDecimals = 77

// ErrInvalidAmount is returned for malformed or over-precise decimal input.
var ErrInvalidAmount = errors.New("invalid amount")

// Scale returns 10^decimals.
func Scale(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// ToBaseUnits converts a decimal string like "1.05" into base units.
func ToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: decimals %d out of range", ErrInvalidAmount, decimals)
	}
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	negative := false
	if strings.HasPrefix(amount, "-") {
		negative = true
		amount = amount[1:]
		if amount == "" {
			return nil, fmt.Errorf("%w: missing digits", ErrInvalidAmount)
		}
	}

	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, amount, decimals)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if negative {
		value.Neg(value)
	}
	return value, nil
}

// FromBaseUnits renders base units as a decimal string without trailing zeros.
func FromBaseUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	rat := new(big.Rat).SetFrac(abs, Scale(decimals))
	text := rat.FloatString(int(decimals))
	text = strings.TrimRight(text, "0")
	text = strings.TrimSuffix(text, ".")
	if sign < 0 {
		return "-" + text
	}
	return text
}

// WholeUnits returns n whole tokens expressed in base units.
func WholeUnits(n int64, decimals uint8) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Scale(decimals))
}

func isDigits(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
