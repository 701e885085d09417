// Package validate implements the C2 component: a pure function over a
// parsed candidate (and, for cross-checks, the account/value set attached
// to it) that emits a severity-tagged issue list and a deterministic
// quality score. Nothing here mutates state or touches the store.
package validate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finagent/pkg/core/dialect"
	"finagent/pkg/model"
)

// Result is the validator's report for one candidate.
type Result struct {
	Issues       []model.Issue
	QualityScore float64
	IsValid      bool
}

var commonCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CNY": true,
	"CAD": true, "AUD": true, "CHF": true, "INR": true, "BRL": true,
}

const oldPeriodYears = 10

// Validate applies the full rule set from the validator design to a single
// parsed candidate. existingAccounts supplies the already-persisted
// accounts referenced by parent ids for orphan/cycle checks (nil is valid
// for a first-time ingestion with no cross-references yet).
func Validate(c dialect.Candidate, now time.Time, existingAccounts map[string]model.Account) Result {
	var issues []model.Issue
	issues = append(issues, c.Issues...)

	tol := model.Tolerance01()

	if !model.WithinTolerance(c.NetProfit, c.Revenue.Sub(c.Expenses), tol) {
		issues = append(issues, model.Issue{Code: "BAL_EQ", Severity: model.SeverityError,
			Message: "net_profit does not equal revenue-expenses within tolerance"})
	}

	if c.Revenue.IsNegative() {
		issues = append(issues, model.Issue{Code: "NEG_REV", Severity: model.SeverityWarning, Message: "revenue is negative"})
	}
	if c.Expenses.IsNegative() {
		issues = append(issues, model.Issue{Code: "NEG_EXP", Severity: model.SeverityWarning, Message: "expenses is negative"})
	}

	high := decimal.New(1, 12)
	for _, v := range []decimal.Decimal{c.Revenue, c.Expenses, c.NetProfit} {
		if v.Abs().GreaterThan(high) {
			issues = append(issues, model.Issue{Code: "HIGH_VAL", Severity: model.SeverityWarning, Message: "value exceeds 10^12"})
			break
		}
	}

	if c.PeriodEnd.Before(c.PeriodStart) {
		issues = append(issues, model.Issue{Code: "DATE_RANGE", Severity: model.SeverityError, Message: "period_end before period_start"})
	}

	if c.PeriodEnd.After(now) {
		issues = append(issues, model.Issue{Code: "FUTURE_PERIOD", Severity: model.SeverityWarning, Message: "period_end is in the future"})
	}

	if c.PeriodEnd.Before(now.AddDate(-oldPeriodYears, 0, 0)) {
		issues = append(issues, model.Issue{Code: "OLD_PERIOD", Severity: model.SeverityInfo, Message: "period_end is more than 10 years old"})
	}

	if !isThreeUpperLetters(c.Currency) {
		issues = append(issues, model.Issue{Code: "CUR_FMT", Severity: model.SeverityError, Message: "currency is not exactly three uppercase letters"})
	} else if !commonCurrencies[c.Currency] {
		issues = append(issues, model.Issue{Code: "CUR_UNCOMMON", Severity: model.SeverityInfo, Message: "currency outside the common-codes set"})
	}

	issues = append(issues, validateAccounts(c.Accounts, existingAccounts)...)
	issues = append(issues, validateSums(c, tol)...)

	score := Score(issues)
	isValid := true
	for _, is := range issues {
		if is.Severity == model.SeverityError || is.Severity == model.SeverityCritical {
			isValid = false
			break
		}
	}

	return Result{Issues: issues, QualityScore: score, IsValid: isValid}
}

// Score implements the documented scoring formula, clamped to [0,1].
func Score(issues []model.Issue) float64 {
	score := 1.0
	for _, is := range issues {
		switch is.Severity {
		case model.SeverityInfo:
			score -= 0.05
		case model.SeverityWarning:
			score -= 0.15
		case model.SeverityError:
			score -= 0.35
		case model.SeverityCritical:
			score -= 0.50
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func isThreeUpperLetters(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func validateAccounts(accounts []model.Account, existing map[string]model.Account) []model.Issue {
	var issues []model.Issue

	byID := make(map[string]model.Account, len(accounts)+len(existing))
	for id, a := range existing {
		byID[id] = a
	}
	for _, a := range accounts {
		byID[a.AccountID] = a
	}

	for _, a := range accounts {
		if a.ParentAccountID == nil {
			continue
		}
		parent, ok := byID[*a.ParentAccountID]
		if !ok {
			issues = append(issues, model.Issue{Code: "ACC_ORPHAN", Severity: model.SeverityError,
				Message: fmt.Sprintf("account %s references unknown parent %s", a.AccountID, *a.ParentAccountID)})
			continue
		}
		if !model.SameFamily(a.AccountType, parent.AccountType) {
			issues = append(issues, model.Issue{Code: "ACC_TYPE_MIX", Severity: model.SeverityWarning,
				Message: fmt.Sprintf("account %s type %s differs from parent %s type %s", a.AccountID, a.AccountType, parent.AccountID, parent.AccountType)})
		}
		if hasCycle(a.AccountID, byID) {
			issues = append(issues, model.Issue{Code: "ACC_CYCLE", Severity: model.SeverityError,
				Message: fmt.Sprintf("account %s parent chain forms a cycle", a.AccountID)})
		}
	}
	return issues
}

// hasCycle walks the parent chain from id with a visited set, bounded by
// the total number of known accounts so a genuine cycle terminates instead
// of looping forever.
func hasCycle(id string, byID map[string]model.Account) bool {
	visited := map[string]bool{}
	cur := id
	for i := 0; i <= len(byID); i++ {
		if visited[cur] {
			return true
		}
		visited[cur] = true
		acc, ok := byID[cur]
		if !ok || acc.ParentAccountID == nil {
			return false
		}
		cur = *acc.ParentAccountID
	}
	return true
}

func validateSums(c dialect.Candidate, tol decimal.Decimal) []model.Issue {
	// A candidate with no account values has no account-level detail to
	// cross-check against its totals.
	if len(c.Values) == 0 {
		return nil
	}

	accType := make(map[string]model.AccountType, len(c.Accounts))
	for _, a := range c.Accounts {
		accType[a.AccountID] = a.AccountType
	}

	revSum := decimal.Zero
	expSum := decimal.Zero
	for _, v := range c.Values {
		switch accType[v.AccountID] {
		case model.AccountRevenue:
			revSum = revSum.Add(v.Value)
		case model.AccountExpense:
			expSum = expSum.Add(v.Value)
		}
	}

	var issues []model.Issue
	if !model.WithinTolerance(revSum, c.Revenue, tol) {
		issues = append(issues, model.Issue{Code: "SUM_MISMATCH", Severity: model.SeverityError,
			Message: "sum of revenue-typed account values does not match record revenue"})
	}
	if !model.WithinTolerance(expSum, c.Expenses, tol) {
		issues = append(issues, model.Issue{Code: "SUM_MISMATCH", Severity: model.SeverityError,
			Message: "sum of expense-typed account values does not match record expenses"})
	}
	return issues
}
