package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the fixed number of decimal places of every amount
const MoneyPlaces = 2

// MaxPrice is the largest accepted menu price (8 significant digits)
var MaxPrice = decimal.RequireFromString("999999.99")

// HasMoneyPrecision reports whether d has at most two decimal places
func HasMoneyPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces))
}

// ErrAmountOutOfRange is returned for amounts that do not fit in int64 cents
var ErrAmountOutOfRange = errors.New("amount out of range")

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// ToCents converts an amount with at most two decimal places to integer cents
func ToCents(d decimal.Decimal) (int64, error) {
	cents := d.Shift(MoneyPlaces).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, FormatMoney(d))
	}
	return cents.IntPart(), nil
}

// FromCents converts integer cents to an amount
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -MoneyPlaces)
}

// FormatMoney renders an amount with exactly two decimals, e.g. "10.00"
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
