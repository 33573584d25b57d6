// Package money converts between user-entered decimal amounts and the cents the ledger stores.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

var hundred = decimal.NewFromInt(100)

// Parse converts an amount string into cents.
// Both "1234.56" and European "1.234,56" forms are accepted; more than two
// fractional digits is an error rather than a silent rounding.
func Parse(s string) (int64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.ReplaceAll(clean, " ", "")

	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed amount %q", ledger.ErrInvalidInput, s)
	}

	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount %q has more than two decimal places", ledger.ErrInvalidInput, s)
	}

	return cents.IntPart(), nil
}

// ParsePositive is Parse with the additional requirement that the amount is above zero.
func ParsePositive(s string) (int64, error) {
	cents, err := Parse(s)
	if err != nil {
		return 0, err
	}

	if cents <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidInput)
	}

	return cents, nil
}

// Format renders cents as a fixed two-decimal string, e.g. 1050 -> "10.50".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Decimal returns cents as a decimal amount in whole units.
func Decimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FromDecimal converts a whole-unit decimal amount into cents, rounding half away from zero.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}
