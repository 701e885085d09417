// Package dialect implements the C1 component: source detection plus the
// two concrete dialect parsers. Each parser turns raw decoded JSON into the
// intermediate triple (record candidate, accounts, values) described in the
// ingestion spec; nothing here talks to the store.
package dialect

import (
	"time"

	"github.com/shopspring/decimal"

	"finagent/pkg/model"
)

// Candidate is the intermediate parser output for one financial record,
// prior to normalization and persistence.
type Candidate struct {
	Source        model.Source
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Currency      string
	Revenue       decimal.Decimal
	Expenses      decimal.Decimal
	NetProfit     decimal.Decimal
	Disambiguator string
	RawData       map[string]interface{}
	Accounts      []model.Account
	Values        []model.AccountValue
	Issues        []model.Issue
}

// ParseResult is what a dialect parser returns for one input file: zero or
// more candidates (one per period) plus file-level issues.
type ParseResult struct {
	Candidates []Candidate
	Issues     []model.Issue
}

func info(code, msg string) model.Issue {
	return model.Issue{Code: code, Severity: model.SeverityInfo, Message: msg}
}

func warn(code, msg string) model.Issue {
	return model.Issue{Code: code, Severity: model.SeverityWarning, Message: msg}
}

func errIssue(code, msg string) model.Issue {
	return model.Issue{Code: code, Severity: model.SeverityError, Message: msg}
}
