// Package normalize implements the C3 component: it turns a validated
// parser candidate into persistence-ready unified entities and resolves
// conflicts when two sources (or a new ingestion and an already-persisted
// record) disagree about the same (period, currency) key.
package normalize

import (
	"time"

	"finagent/pkg/core/dialect"
	"finagent/pkg/model"
)

// Normalized is the persistence-ready output for one candidate.
type Normalized struct {
	Record   model.FinancialRecord
	Accounts []model.Account
	Values   []model.AccountValue
}

// FromCandidate maps a dialect.Candidate into a Normalized record. Dates
// and currency are already normalized by the parsers; this step assigns
// the stable id and timestamps.
func FromCandidate(c dialect.Candidate, now time.Time) Normalized {
	id := model.RecordID(c.Source, c.PeriodStart, c.PeriodEnd, c.Disambiguator)

	raw := c.RawData
	if raw == nil {
		raw = map[string]interface{}{}
	}

	rec := model.FinancialRecord{
		ID:          id,
		Source:      c.Source,
		PeriodStart: c.PeriodStart,
		PeriodEnd:   c.PeriodEnd,
		Currency:    c.Currency,
		Revenue:     c.Revenue,
		Expenses:    c.Expenses,
		NetProfit:   c.NetProfit,
		RawData:     raw,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	values := make([]model.AccountValue, len(c.Values))
	for i, v := range c.Values {
		values[i] = model.AccountValue{
			FinancialRecordID: id,
			AccountID:         v.AccountID,
			Value:             v.Value,
		}
	}

	return Normalized{Record: rec, Accounts: c.Accounts, Values: values}
}

// SameKey reports whether two records share the key used for conflict
// detection: (period_start, period_end, currency).
func SameKey(a, b model.FinancialRecord) bool {
	return a.PeriodStart.Equal(b.PeriodStart) && a.PeriodEnd.Equal(b.PeriodEnd) && a.Currency == b.Currency
}

// HasConflict reports whether two records sharing a key disagree beyond
// tolerance on revenue or expenses. Currency is not compared here: SameKey
// already requires matching currency, and no caller checks for a currency
// mismatch.
func HasConflict(a, b model.FinancialRecord) bool {
	tol := model.Tolerance01()
	if !model.WithinTolerance(a.Revenue, b.Revenue, tol) {
		return true
	}
	if !model.WithinTolerance(a.Expenses, b.Expenses, tol) {
		return true
	}
	return false
}

// Resolve picks a winner between two records sharing a key, using the
// configured source priority map. The loser is retained as an attribution
// entry in the winner's raw_data.conflicts, and accounts from both sources
// are merged by globally-unique account id (the winner's values are kept;
// see MergeAccounts). net_profit is always recomputed from the winner's
// revenue/expenses so the balance equation holds after resolution.
func Resolve(incoming, existing model.FinancialRecord, priority map[string]int) (winner model.FinancialRecord, issues []model.Issue) {
	if !SameKey(incoming, existing) {
		return incoming, []model.Issue{{
			Code: "KEY_MISMATCH", Severity: model.SeverityCritical,
			Message: "Resolve called with records that do not share a (period_start, period_end, currency) key",
		}}
	}

	incomingPriority := priority[string(incoming.Source)]
	existingPriority := priority[string(existing.Source)]

	if incomingPriority >= existingPriority {
		winner = incoming
		winner.UpdatedAt = incoming.UpdatedAt
		appendConflict(&winner, existing)
	} else {
		winner = existing
		issues = append(issues, model.Issue{
			Code:     "CONFLICT_KEPT_EXISTING",
			Severity: model.SeverityInfo,
			Message:  "incoming record has lower source priority than the persisted record; existing record kept",
		})
		appendConflict(&winner, incoming)
	}

	winner.NetProfit = winner.Revenue.Sub(winner.Expenses)
	return winner, issues
}

func appendConflict(winner *model.FinancialRecord, loser model.FinancialRecord) {
	if winner.RawData == nil {
		winner.RawData = map[string]interface{}{}
	}
	conflicts, _ := winner.RawData["conflicts"].([]interface{})
	conflicts = append(conflicts, map[string]interface{}{
		"source":        loser.Source,
		"revenue":       loser.Revenue.String(),
		"expenses":      loser.Expenses.String(),
		"net_profit":    loser.NetProfit.String(),
		"delta_revenue": winner.Revenue.Sub(loser.Revenue).String(),
	})
	winner.RawData["conflicts"] = conflicts
}

// MergeAccounts unions two account slices by globally-unique account id,
// preferring the winner's copy of an account when both sources defined the
// same id (which should not normally happen, since ids are source-prefixed).
func MergeAccounts(winnerAccounts, loserAccounts []model.Account) []model.Account {
	seen := make(map[string]bool, len(winnerAccounts)+len(loserAccounts))
	merged := make([]model.Account, 0, len(winnerAccounts)+len(loserAccounts))
	for _, a := range winnerAccounts {
		if !seen[a.AccountID] {
			seen[a.AccountID] = true
			merged = append(merged, a)
		}
	}
	for _, a := range loserAccounts {
		if !seen[a.AccountID] {
			seen[a.AccountID] = true
			merged = append(merged, a)
		}
	}
	return merged
}
