package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finagent/pkg/model"
)

func mkRecord(t *testing.T, source model.Source, revenue, expenses string) model.FinancialRecord {
	t.Helper()
	rev, err := model.NewMoney(revenue)
	require.NoError(t, err)
	exp, err := model.NewMoney(expenses)
	require.NoError(t, err)
	return model.FinancialRecord{
		Source:      source,
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Currency:    "USD",
		Revenue:     rev,
		Expenses:    exp,
		NetProfit:   rev.Sub(exp),
		RawData:     map[string]interface{}{},
	}
}

func TestResolve_HigherPriorityWins(t *testing.T) {
	a := mkRecord(t, model.SourceDialectA, "15000", "9000")
	b := mkRecord(t, model.SourceDialectB, "14500", "9000")

	priority := map[string]int{"DialectA": 2, "DialectB": 1}

	winner, _ := Resolve(a, b, priority)
	require.Equal(t, model.SourceDialectA, winner.Source)

	conflicts, ok := winner.RawData["conflicts"].([]interface{})
	require.True(t, ok)
	require.Len(t, conflicts, 1)
	entry := conflicts[0].(map[string]interface{})
	require.Equal(t, model.SourceDialectB, entry["source"])
}

func TestResolve_LowerPriorityIncomingKeepsExisting(t *testing.T) {
	existing := mkRecord(t, model.SourceDialectA, "15000", "9000")
	incoming := mkRecord(t, model.SourceDialectB, "14500", "9000")

	priority := map[string]int{"DialectA": 2, "DialectB": 1}

	winner, issues := Resolve(incoming, existing, priority)
	require.Equal(t, model.SourceDialectA, winner.Source)
	require.NotEmpty(t, issues)
	require.Equal(t, "CONFLICT_KEPT_EXISTING", issues[0].Code)
}

func TestHasConflict(t *testing.T) {
	a := mkRecord(t, model.SourceDialectA, "15000", "9000")
	b := mkRecord(t, model.SourceDialectB, "14500", "9000")
	require.True(t, HasConflict(a, b))

	c := mkRecord(t, model.SourceDialectB, "15000.005", "9000")
	require.False(t, HasConflict(a, c))
}

func TestResolve_DifferentKeyRefusesToMerge(t *testing.T) {
	a := mkRecord(t, model.SourceDialectA, "15000", "9000")
	b := mkRecord(t, model.SourceDialectB, "14500", "9000")
	b.PeriodStart = b.PeriodStart.AddDate(0, 1, 0)
	b.PeriodEnd = b.PeriodEnd.AddDate(0, 1, 0)

	priority := map[string]int{"DialectA": 2, "DialectB": 1}

	winner, issues := Resolve(a, b, priority)
	require.Equal(t, a, winner)
	require.NotEmpty(t, issues)
	require.Equal(t, "KEY_MISMATCH", issues[0].Code)
	require.Equal(t, model.SeverityCritical, issues[0].Severity)
}

func TestMergeAccounts_UnionByID(t *testing.T) {
	winnerAccounts := []model.Account{{AccountID: "A:rev"}}
	loserAccounts := []model.Account{{AccountID: "B:rev"}, {AccountID: "A:rev"}}

	merged := MergeAccounts(winnerAccounts, loserAccounts)
	require.Len(t, merged, 2)
}
