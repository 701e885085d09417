// Package model defines the unified financial entities shared by ingestion,
// the store, and the agent tool set.
package model

import "github.com/shopspring/decimal"

// BalanceTolerance is the allowed drift between net_profit and
// revenue-expenses, and between account-value sums and record totals.
const BalanceTolerance = "0.01"

// NewMoney parses a decimal string at two fractional digits, half-even
// rounding. Financial amounts are never carried as float64 past the parse
// boundary.
func NewMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.RoundBank(2), nil
}

// MoneyFromFloat widens a float64 (e.g. decoded JSON number) into a
// two-decimal Money value. Used only at parser boundaries where the source
// dialect encodes amounts as JSON numbers.
func MoneyFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).RoundBank(2)
}

// WithinTolerance reports whether |a-b| <= tolerance.
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// Tolerance01 is decimal 0.01, the balance/sum tolerance used throughout.
func Tolerance01() decimal.Decimal {
	d, _ := decimal.NewFromString(BalanceTolerance)
	return d
}
