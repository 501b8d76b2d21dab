package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

var hundred = decimal.NewFromInt(100)

// ParseMinor converts a decimal currency string ("50", "49.99") into minor
// units. At most two decimal places are accepted.
func ParseMinor(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if value.Exponent() < -2 {
		return 0, ErrTooManyDecimals
	}
	return value.Mul(hundred).IntPart(), nil
}

// FormatMinor renders minor units as a currency string with two decimals.
func FormatMinor(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	formatted := fmt.Sprintf("%d.%02d", value/100, value%100)
	if negative {
		return "-" + formatted
	}
	return formatted
}

// RateOf scales a minor-unit value by a rate (fee, interest, collateral),
// banker's-rounded to the minor unit.
func RateOf(valueMinor int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(valueMinor).Mul(rate).RoundBank(0).IntPart()
}
