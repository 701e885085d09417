package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"finagent/pkg/apperr"
	"finagent/pkg/core/normalize"
	"finagent/pkg/model"
)

// UpsertOutcome reports whether upsert_record created a new row or updated
// an existing one.
type UpsertOutcome string

const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
)

// UpsertResult is the return value of UpsertRecord.
type UpsertResult struct {
	Outcome        UpsertOutcome
	Prior          *model.FinancialRecord
	ConflictIssues []model.Issue // non-empty when a cross-source conflict was resolved against an already-persisted record
}

// UpsertRecord persists a FinancialRecord plus its accounts and values in a
// single transaction. The transaction locks any existing row sharing the
// record's (period_start, period_end, currency) key — regardless of
// source — with SELECT ... FOR UPDATE, so two files writing the same
// period (even from different dialects) are serialized by the database
// rather than by application-level coordination.
//
// When the locked row belongs to the same source, this is an idempotent
// re-ingestion and the row is overwritten in place. When it belongs to a
// different source, this is the cross-source conflict case from the C3
// design: priority decides a single winner (normalize.Resolve), account
// definitions from both sides are unioned (normalize.MergeAccounts), and
// only the winner's row survives — the loser's row is deleted so the two
// sources never coexist as separate rows for the same period.
func (s *Store) UpsertRecord(ctx context.Context, rec model.FinancialRecord, accounts []model.Account, values []model.AccountValue, sourcePriority map[string]int) (*UpsertResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, wrapTransient(err, "begin transaction")
	}
	defer tx.Rollback(ctx)

	existing, err := lockExistingByPeriodKey(ctx, tx, rec.PeriodStart, rec.PeriodEnd, rec.Currency)
	if err != nil {
		return nil, err
	}

	finalRec := rec
	finalAccounts := accounts
	finalValues := values
	skipValues := false
	staleRowID := ""
	var conflictIssues []model.Issue
	var prior *model.FinancialRecord

	switch {
	case existing == nil:
		// No record has ever claimed this period/currency; nothing to resolve.
	case existing.Source == rec.Source:
		// Same-source re-ingestion: the existing plain-overwrite behavior.
		prior = existing
	default:
		existingAccounts, err := loadAccountsForRecord(ctx, tx, existing.ID)
		if err != nil {
			return nil, err
		}

		severity := model.SeverityInfo
		if normalize.HasConflict(rec, *existing) {
			severity = model.SeverityWarning
		}

		winner, resolveIssues := normalize.Resolve(rec, *existing, sourcePriority)
		conflictIssues = append(conflictIssues, model.Issue{
			Code:     "CROSS_SOURCE_CONFLICT",
			Severity: severity,
			Message:  fmt.Sprintf("period %s..%s %s already has data from %s", rec.PeriodStart.Format("2006-01-02"), rec.PeriodEnd.Format("2006-01-02"), rec.Currency, existing.Source),
		})
		conflictIssues = append(conflictIssues, resolveIssues...)

		if winner.Source == rec.Source {
			// The incoming record wins; it keeps its own row and id, and the
			// superseded row from the other source is removed.
			finalRec = winner
			finalAccounts = normalize.MergeAccounts(accounts, existingAccounts)
			staleRowID = existing.ID
			prior = existing
		} else {
			// The already-persisted record wins; update it in place with the
			// appended conflict attribution and leave its own values alone —
			// the incoming (losing) side's values are never persisted.
			finalRec = winner
			finalRec.ID = existing.ID
			finalAccounts = normalize.MergeAccounts(existingAccounts, accounts)
			finalValues = nil
			skipValues = true
			prior = existing
		}
	}

	rawJSON, err := json.Marshal(finalRec.RawData)
	if err != nil {
		return nil, apperr.Internal(err, "marshal raw_data")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO financial_records (id, source, period_start, period_end, currency, revenue, expenses, net_profit, raw_data, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (source, period_start, period_end, currency) DO UPDATE SET
			revenue = EXCLUDED.revenue,
			expenses = EXCLUDED.expenses,
			net_profit = EXCLUDED.net_profit,
			raw_data = EXCLUDED.raw_data,
			updated_at = EXCLUDED.updated_at
	`, finalRec.ID, string(finalRec.Source), finalRec.PeriodStart, finalRec.PeriodEnd, finalRec.Currency,
		finalRec.Revenue.String(), finalRec.Expenses.String(), finalRec.NetProfit.String(), rawJSON, finalRec.CreatedAt, finalRec.UpdatedAt)
	if err != nil {
		return nil, wrapTransient(err, "upsert financial_records: %v", err)
	}

	for _, a := range finalAccounts {
		if err := upsertAccount(ctx, tx, a); err != nil {
			return nil, err
		}
	}

	if !skipValues {
		// account_values are only ever visible once their owning record commits
		// (they reference financial_record_id, inserted above in the same
		// transaction), so a partially-inserted record is never observable.
		if _, err := tx.Exec(ctx, `DELETE FROM account_values WHERE financial_record_id = $1`, finalRec.ID); err != nil {
			return nil, wrapTransient(err, "clear prior account_values: %v", err)
		}
		for _, v := range finalValues {
			_, err := tx.Exec(ctx, `
				INSERT INTO account_values (financial_record_id, account_id, value)
				VALUES ($1,$2,$3)
				ON CONFLICT (financial_record_id, account_id) DO UPDATE SET value = EXCLUDED.value
			`, finalRec.ID, v.AccountID, v.Value.String())
			if err != nil {
				return nil, wrapTransient(err, "upsert account_values: %v", err)
			}
		}
	}

	if staleRowID != "" {
		if _, err := tx.Exec(ctx, `DELETE FROM account_values WHERE financial_record_id = $1`, staleRowID); err != nil {
			return nil, wrapTransient(err, "delete superseded account_values: %v", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM financial_records WHERE id = $1`, staleRowID); err != nil {
			return nil, wrapTransient(err, "delete superseded record: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapTransient(err, "commit: %v", err)
	}

	if prior == nil {
		return &UpsertResult{Outcome: OutcomeCreated, ConflictIssues: conflictIssues}, nil
	}
	return &UpsertResult{Outcome: OutcomeUpdated, Prior: prior, ConflictIssues: conflictIssues}, nil
}

// lockExistingByPeriodKey locks any row sharing (period_start, period_end,
// currency) regardless of source, so cross-source conflicts on the same
// period are detected rather than silently coexisting as separate rows.
func lockExistingByPeriodKey(ctx context.Context, tx pgx.Tx, start, end time.Time, currency string) (*model.FinancialRecord, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, source, period_start, period_end, currency, revenue, expenses, net_profit, raw_data, created_at, updated_at
		FROM financial_records
		WHERE period_start = $1 AND period_end = $2 AND currency = $3
		FOR UPDATE
	`, start, end, currency)

	rec, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapTransient(err, "lock existing record: %v", err)
	}
	return &rec, nil
}

// loadAccountsForRecord returns the account definitions referenced by an
// already-persisted record's account_values, used to merge account
// metadata across a resolved cross-source conflict (normalize.MergeAccounts
// needs both sides' Account slices, not just the winner's).
func loadAccountsForRecord(ctx context.Context, tx pgx.Tx, recordID string) ([]model.Account, error) {
	rows, err := tx.Query(ctx, `
		SELECT a.account_id, a.name, a.account_type, a.parent_account_id, a.source, a.description, a.is_active
		FROM account_values av
		JOIN accounts a ON a.account_id = av.account_id
		WHERE av.financial_record_id = $1
	`, recordID)
	if err != nil {
		return nil, wrapTransient(err, "load accounts for record: %v", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		var accountType, source string
		if err := rows.Scan(&a.AccountID, &a.Name, &accountType, &a.ParentAccountID, &source, &a.Description, &a.IsActive); err != nil {
			return nil, wrapTransient(err, "scan account: %v", err)
		}
		a.AccountType = model.AccountType(accountType)
		a.Source = model.Source(source)
		out = append(out, a)
	}
	return out, nil
}

func upsertAccount(ctx context.Context, tx pgx.Tx, a model.Account) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO accounts (account_id, name, account_type, parent_account_id, source, description, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (account_id) DO UPDATE SET
			name = EXCLUDED.name,
			account_type = EXCLUDED.account_type,
			parent_account_id = EXCLUDED.parent_account_id,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active
	`, a.AccountID, a.Name, string(a.AccountType), a.ParentAccountID, string(a.Source), a.Description, a.IsActive)
	if err != nil {
		return wrapTransient(err, "upsert account %s: %v", a.AccountID, err)
	}
	return nil
}

type row interface {
	Scan(dest ...interface{}) error
}

func scanRecord(r row) (model.FinancialRecord, error) {
	var rec model.FinancialRecord
	var source string
	var revenue, expenses, netProfit string
	var rawJSON []byte

	err := r.Scan(&rec.ID, &source, &rec.PeriodStart, &rec.PeriodEnd, &rec.Currency,
		&revenue, &expenses, &netProfit, &rawJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return rec, err
	}
	rec.Source = model.Source(source)
	rec.Revenue, _ = decimal.NewFromString(revenue)
	rec.Expenses, _ = decimal.NewFromString(expenses)
	rec.NetProfit, _ = decimal.NewFromString(netProfit)
	if len(rawJSON) > 0 {
		_ = json.Unmarshal(rawJSON, &rec.RawData)
	}
	return rec, nil
}

// RecordFilter is the filter set accepted by find_records.
type RecordFilter struct {
	Source      *model.Source
	PeriodFrom  *time.Time
	PeriodTo    *time.Time
	Currency    *string
	MinRevenue  *decimal.Decimal
	MaxRevenue  *decimal.Decimal
	MinExpenses *decimal.Decimal
	MaxExpenses *decimal.Decimal
	SortField   string // "period_start", "revenue", "expenses", "net_profit"
	SortDesc    bool
	Page        int
	PageSize    int
}

// Page is the paginated response envelope for find_records/find_accounts.
type Page struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalItems int         `json:"total_items"`
}

var sortFieldColumns = map[string]string{
	"period_start": "period_start",
	"revenue":      "revenue",
	"expenses":     "expenses",
	"net_profit":   "net_profit",
}

// FindRecords implements find_records: paginated, filtered reads.
func (s *Store) FindRecords(ctx context.Context, f RecordFilter) ([]model.FinancialRecord, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	where, args := buildRecordWhere(f)

	var total int
	countQuery := "SELECT COUNT(*) FROM financial_records " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, wrapTransient(err, "count financial_records: %v", err)
	}

	sortCol := sortFieldColumns[f.SortField]
	if sortCol == "" {
		sortCol = "period_start"
	}
	order := "ASC"
	if f.SortDesc {
		order = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT id, source, period_start, period_end, currency, revenue, expenses, net_profit, raw_data, created_at, updated_at
		FROM financial_records %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, sortCol, order, len(args)+1, len(args)+2)

	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapTransient(err, "query financial_records: %v", err)
	}
	defer rows.Close()

	var out []model.FinancialRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, wrapTransient(err, "scan financial_record: %v", err)
		}
		out = append(out, rec)
	}
	return out, total, nil
}

func buildRecordWhere(f RecordFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	i := 1

	add := func(clause string, val interface{}) {
		clauses = append(clauses, fmt.Sprintf(clause, i))
		args = append(args, val)
		i++
	}

	if f.Source != nil {
		add("source = $%d", string(*f.Source))
	}
	if f.PeriodFrom != nil {
		add("period_start >= $%d", *f.PeriodFrom)
	}
	if f.PeriodTo != nil {
		add("period_end <= $%d", *f.PeriodTo)
	}
	if f.Currency != nil {
		add("currency = $%d", *f.Currency)
	}
	if f.MinRevenue != nil {
		add("revenue >= $%d", f.MinRevenue.String())
	}
	if f.MaxRevenue != nil {
		add("revenue <= $%d", f.MaxRevenue.String())
	}
	if f.MinExpenses != nil {
		add("expenses >= $%d", f.MinExpenses.String())
	}
	if f.MaxExpenses != nil {
		add("expenses <= $%d", f.MaxExpenses.String())
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// AggregateResult holds aggregate_period's totals for one period spec.
type AggregateResult struct {
	Period    string          `json:"period"`
	Revenue   decimal.Decimal `json:"revenue"`
	Expenses  decimal.Decimal `json:"expenses"`
	NetProfit decimal.Decimal `json:"net_profit"`
	Count     int             `json:"count"`
	Sources   []string        `json:"sources"`
}

// AggregatePeriod implements aggregate_period. periodSpec is one of
// YYYY, YYYY-Qn, YYYY-MM, or YYYY-MM-DD.
func (s *Store) AggregatePeriod(ctx context.Context, periodSpec string) (*AggregateResult, error) {
	start, end, err := ParsePeriodSpec(periodSpec)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT source, revenue, expenses, net_profit
		FROM financial_records
		WHERE period_start >= $1 AND period_end <= $2
	`, start, end)
	if err != nil {
		return nil, wrapTransient(err, "aggregate query: %v", err)
	}
	defer rows.Close()

	result := &AggregateResult{Period: periodSpec, Revenue: decimal.Zero, Expenses: decimal.Zero, NetProfit: decimal.Zero}
	sourceSet := map[string]bool{}
	for rows.Next() {
		var source, revenue, expenses, netProfit string
		if err := rows.Scan(&source, &revenue, &expenses, &netProfit); err != nil {
			return nil, wrapTransient(err, "scan aggregate row: %v", err)
		}
		r, _ := decimal.NewFromString(revenue)
		e, _ := decimal.NewFromString(expenses)
		n, _ := decimal.NewFromString(netProfit)
		result.Revenue = result.Revenue.Add(r)
		result.Expenses = result.Expenses.Add(e)
		result.NetProfit = result.NetProfit.Add(n)
		result.Count++
		sourceSet[source] = true
	}
	for src := range sourceSet {
		result.Sources = append(result.Sources, src)
	}
	return result, nil
}

// ParsePeriodSpec resolves a YYYY / YYYY-Qn / YYYY-MM / YYYY-MM-DD spec
// into an inclusive [start, end] date range.
func ParsePeriodSpec(spec string) (time.Time, time.Time, error) {
	switch {
	case len(spec) == 4:
		year, err := strconv.Atoi(spec)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.ValidationError("invalid year period %q", spec)
		}
		start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
		return start, end, nil

	case len(spec) == 7 && spec[4] == '-' && (spec[5] == 'Q' || spec[5] == 'q'):
		year, err := strconv.Atoi(spec[:4])
		if err != nil {
			return time.Time{}, time.Time{}, apperr.ValidationError("invalid quarter period %q", spec)
		}
		q, err := strconv.Atoi(spec[6:])
		if err != nil || q < 1 || q > 4 {
			return time.Time{}, time.Time{}, apperr.ValidationError("invalid quarter %q", spec)
		}
		startMonth := time.Month((q-1)*3 + 1)
		start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 3, -1)
		return start, end, nil

	case len(spec) == 7 && spec[4] == '-':
		t, err := time.Parse("2006-01", spec)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.ValidationError("invalid month period %q", spec)
		}
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		return start, end, nil

	case len(spec) == 10:
		t, err := time.Parse("2006-01-02", spec)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.ValidationError("invalid date period %q", spec)
		}
		return t, t, nil
	}

	return time.Time{}, time.Time{}, apperr.ValidationError("unrecognized period spec %q", spec)
}
