package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies which dialect produced a record or account.
type Source string

const (
	SourceDialectA Source = "DialectA"
	SourceDialectB Source = "DialectB"
)

// FinancialRecord is an aggregate per (source, period, currency).
type FinancialRecord struct {
	ID         string          `json:"id"`
	Source     Source          `json:"source"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Currency    string         `json:"currency"`
	Revenue     decimal.Decimal `json:"revenue"`
	Expenses    decimal.Decimal `json:"expenses"`
	NetProfit   decimal.Decimal `json:"net_profit"`
	RawData     map[string]interface{} `json:"raw_data"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RecordID computes the stable hash id for a record key.
// id = sha256(source | period_start | period_end | disambiguator)[:32]
func RecordID(source Source, periodStart, periodEnd time.Time, disambiguator string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", source, periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"), disambiguator)
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Balanced reports whether net_profit matches revenue-expenses within tolerance.
func (r *FinancialRecord) Balanced() bool {
	return WithinTolerance(r.NetProfit, r.Revenue.Sub(r.Expenses), Tolerance01())
}
