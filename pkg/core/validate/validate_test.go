package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finagent/pkg/core/dialect"
	"finagent/pkg/model"
)

func TestValidate_PerfectRecord(t *testing.T) {
	rev, _ := model.NewMoney("10000.00")
	exp, _ := model.NewMoney("6000.00")
	np, _ := model.NewMoney("4000.00")

	c := dialect.Candidate{
		Source:      model.SourceDialectA,
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Currency:    "USD",
		Revenue:     rev,
		Expenses:    exp,
		NetProfit:   np,
	}

	result := Validate(c, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), nil)
	require.True(t, result.IsValid)
	require.Equal(t, 1.0, result.QualityScore)
}

func TestValidate_ImbalancedRecord(t *testing.T) {
	rev, _ := model.NewMoney("100")
	exp, _ := model.NewMoney("40")
	np, _ := model.NewMoney("50") // true diff is 60, declared 50

	c := dialect.Candidate{
		Source:      model.SourceDialectB,
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Currency:    "USD",
		Revenue:     rev,
		Expenses:    exp,
		NetProfit:   np,
	}

	result := Validate(c, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), nil)
	require.False(t, result.IsValid)

	var found bool
	for _, is := range result.Issues {
		if is.Code == "BAL_EQ" {
			found = true
			require.Equal(t, model.SeverityError, is.Severity)
		}
	}
	require.True(t, found, "expected BAL_EQ issue")
}

func TestValidate_FuturePeriodIsWarningNotError(t *testing.T) {
	rev, _ := model.NewMoney("100.00")
	exp, _ := model.NewMoney("40.00")
	np, _ := model.NewMoney("60.00")

	c := dialect.Candidate{
		PeriodStart: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC),
		Currency:    "USD",
		Revenue:     rev,
		Expenses:    exp,
		NetProfit:   np,
	}

	result := Validate(c, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), nil)
	require.True(t, result.IsValid)

	var found bool
	for _, is := range result.Issues {
		if is.Code == "FUTURE_PERIOD" {
			found = true
			require.Equal(t, model.SeverityWarning, is.Severity)
		}
	}
	require.True(t, found)
}

func TestValidate_CurrencyFormat(t *testing.T) {
	rev, _ := model.NewMoney("100.00")
	exp, _ := model.NewMoney("40.00")
	np, _ := model.NewMoney("60.00")

	c := dialect.Candidate{
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Currency:    "xx",
		Revenue:     rev,
		Expenses:    exp,
		NetProfit:   np,
	}

	result := Validate(c, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), nil)
	require.False(t, result.IsValid)
}

func TestValidate_AccountOrphanAndCycle(t *testing.T) {
	parentID := "missing-parent"
	accounts := []model.Account{
		{AccountID: "a1", Name: "Revenue", AccountType: model.AccountRevenue, ParentAccountID: &parentID},
	}
	rev, _ := model.NewMoney("0")
	exp, _ := model.NewMoney("0")
	np, _ := model.NewMoney("0")

	c := dialect.Candidate{
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Currency:    "USD",
		Revenue:     rev,
		Expenses:    exp,
		NetProfit:   np,
		Accounts:    accounts,
	}

	result := Validate(c, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), nil)
	require.False(t, result.IsValid)

	var found bool
	for _, is := range result.Issues {
		if is.Code == "ACC_ORPHAN" {
			found = true
		}
	}
	require.True(t, found)
}

func TestScore_Clamping(t *testing.T) {
	many := make([]model.Issue, 10)
	for i := range many {
		many[i] = model.Issue{Severity: model.SeverityCritical}
	}
	require.Equal(t, 0.0, Score(many))
	require.Equal(t, 1.0, Score(nil))
}
