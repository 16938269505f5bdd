package common

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	SOLDecimals = 9 // SOL has 9 decimals (lamports)
)

// ParseSOLAmount parses a positive SOL amount with at most 9 decimals.
// Example: ParseSOLAmount(" 1.50 ") = 1.5
func ParseSOLAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount '%s': %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}
	if !d.Equal(d.Truncate(SOLDecimals)) {
		return decimal.Zero, fmt.Errorf("amount has more than %d decimals", SOLDecimals)
	}
	return d, nil
}

// FormatSOL renders a SOL amount without exponent or trailing zeros.
// Example: FormatSOL(1.500) = "1.5"
func FormatSOL(d decimal.Decimal) string {
	return d.String()
}

// LamportsToSOL converts lamports to SOL.
// Example: LamportsToSOL(1500000000) = 1.5
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.New(int64(lamports), -SOLDecimals)
}
