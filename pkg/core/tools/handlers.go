package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finagent/pkg/apperr"
	"finagent/pkg/core/metrics"
	"finagent/pkg/core/store"
	"finagent/pkg/model"
)

func dateParams(extra ...ParamSchema) []ParamSchema {
	base := []ParamSchema{
		{Name: "start_date", Type: "string", Description: "inclusive start date, YYYY-MM-DD", Required: true},
		{Name: "end_date", Type: "string", Description: "inclusive end date, YYYY-MM-DD", Required: true},
		{Name: "source", Type: "string", Description: "restrict to one dialect", Enum: []string{"DialectA", "DialectB"}},
		{Name: "currency", Type: "string", Description: "restrict to one three-letter currency code"},
	}
	return append(base, extra...)
}

// periodPoint is one period's contribution to a per-period breakdown.
type periodPoint struct {
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	Source      string  `json:"source"`
	Value       float64 `json:"value"`
}

func recordsInRange(ctx context.Context, st *store.Store, args map[string]interface{}) ([]model.FinancialRecord, error) {
	start, err := argDate(args, "start_date")
	if err != nil {
		return nil, err
	}
	end, err := argDate(args, "end_date")
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperr.ValidationError("end_date must not be before start_date")
	}

	filter := store.RecordFilter{PeriodFrom: &start, PeriodTo: &end, Page: 1, PageSize: 100}
	if s := argString(args, "source"); s != "" {
		src := model.Source(s)
		filter.Source = &src
	}
	if c := argString(args, "currency"); c != "" {
		filter.Currency = &c
	}

	var all []model.FinancialRecord
	for {
		batch, total, err := st.FindRecords(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(all) >= total || len(batch) == 0 {
			break
		}
		filter.Page++
	}
	return all, nil
}

func getRevenueByPeriod(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	records, err := recordsInRange(ctx, st, args)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	points := make([]periodPoint, 0, len(records))
	for _, r := range records {
		total = total.Add(r.Revenue)
		rv, _ := r.Revenue.Float64()
		points = append(points, periodPoint{
			PeriodStart: r.PeriodStart.Format("2006-01-02"),
			PeriodEnd:   r.PeriodEnd.Format("2006-01-02"),
			Source:      string(r.Source),
			Value:       rv,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].PeriodStart < points[j].PeriodStart })
	tv, _ := total.Float64()

	return map[string]interface{}{"total": tv, "per_period": points}, nil
}

func getExpensesByPeriod(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	records, err := recordsInRange(ctx, st, args)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	points := make([]periodPoint, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		total = total.Add(r.Expenses)
		ev, _ := r.Expenses.Float64()
		points = append(points, periodPoint{
			PeriodStart: r.PeriodStart.Format("2006-01-02"),
			PeriodEnd:   r.PeriodEnd.Format("2006-01-02"),
			Source:      string(r.Source),
			Value:       ev,
		})
		ids = append(ids, r.ID)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].PeriodStart < points[j].PeriodStart })
	tv, _ := total.Float64()

	categories, err := expenseCategoryTotals(ctx, st, ids)
	if err != nil {
		// Category split is a best-effort addition; its absence doesn't
		// invalidate the total/per-period result the tool promises.
		categories = nil
	}

	return map[string]interface{}{"total": tv, "per_period": points, "category_split": categories}, nil
}

// expenseCategoryTotals sums account_values for Expense-typed accounts
// across the given record ids, grouped by account name.
func expenseCategoryTotals(ctx context.Context, st *store.Store, recordIDs []string) (map[string]float64, error) {
	if len(recordIDs) == 0 {
		return map[string]float64{}, nil
	}
	rows, err := st.Pool().Query(ctx, `
		SELECT a.name, SUM(v.value)
		FROM account_values v
		JOIN accounts a ON a.account_id = v.account_id
		WHERE v.financial_record_id = ANY($1) AND a.account_type = 'Expense'
		GROUP BY a.name
	`, recordIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var name string
		var sum string
		if err := rows.Scan(&name, &sum); err != nil {
			return nil, err
		}
		d, _ := decimal.NewFromString(sum)
		f, _ := d.Float64()
		out[name] = f
	}
	return out, nil
}

func metricTotal(records []model.FinancialRecord, metric string) (float64, error) {
	total := decimal.Zero
	for _, r := range records {
		switch metric {
		case "revenue":
			total = total.Add(r.Revenue)
		case "expenses":
			total = total.Add(r.Expenses)
		case "net_profit":
			total = total.Add(r.NetProfit)
		default:
			return 0, apperr.ValidationError("unknown metric %q", metric)
		}
	}
	f, _ := total.Float64()
	return f, nil
}

func compareFinancialMetrics(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	start1, err := argDate(args, "start1")
	if err != nil {
		return nil, err
	}
	end1, err := argDate(args, "end1")
	if err != nil {
		return nil, err
	}
	start2, err := argDate(args, "start2")
	if err != nil {
		return nil, err
	}
	end2, err := argDate(args, "end2")
	if err != nil {
		return nil, err
	}
	metricNames := argStringSlice(args, "metrics")
	if len(metricNames) == 0 {
		return nil, apperr.ValidationError("metrics must be a non-empty array")
	}

	r1, _, err := st.FindRecords(ctx, store.RecordFilter{PeriodFrom: &start1, PeriodTo: &end1, Page: 1, PageSize: 100})
	if err != nil {
		return nil, err
	}
	r2, _, err := st.FindRecords(ctx, store.RecordFilter{PeriodFrom: &start2, PeriodTo: &end2, Page: 1, PageSize: 100})
	if err != nil {
		return nil, err
	}

	out := map[string]interface{}{}
	for _, m := range metricNames {
		v1, err := metricTotal(r1, m)
		if err != nil {
			return nil, err
		}
		v2, err := metricTotal(r2, m)
		if err != nil {
			return nil, err
		}
		out[m] = map[string]interface{}{
			"period1": v1,
			"period2": v2,
			"absolute_change": v2 - v1,
			"percent_change":  metrics.CalculateYoY(v2, v1),
		}
	}
	return out, nil
}

func calculateGrowthRate(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	metric := argString(args, "metric")
	periods := argStringSlice(args, "periods")
	if len(periods) < 2 {
		return nil, apperr.ValidationError("periods must contain at least two period specs")
	}

	values := make([]float64, len(periods))
	for i, p := range periods {
		start, end, err := store.ParsePeriodSpec(p)
		if err != nil {
			return nil, err
		}
		records, _, err := st.FindRecords(ctx, store.RecordFilter{PeriodFrom: &start, PeriodTo: &end, Page: 1, PageSize: 100})
		if err != nil {
			return nil, err
		}
		v, err := metricTotal(records, metric)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	pairwise := make([]map[string]interface{}, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		pairwise = append(pairwise, map[string]interface{}{
			"from_period": periods[i-1],
			"to_period":   periods[i],
			"growth_pct":  metrics.CalculateYoY(values[i], values[i-1]),
		})
	}

	cagr := metrics.CalculateCAGR(values[0], values[len(values)-1], len(values)-1)

	return map[string]interface{}{"pairwise": pairwise, "cagr_pct": cagr}, nil
}

func detectAnomalies(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	metric := argString(args, "metric")
	threshold := argFloatDefault(args, "threshold", 0.2) * 100
	lookback := int(argFloatDefault(args, "lookback_months", 12))
	if lookback < 1 || lookback > 120 {
		return nil, apperr.ValidationError("lookback_months must be in [1,120]")
	}

	end := time.Now().UTC()
	start := end.AddDate(0, -lookback, 0)
	records, _, err := st.FindRecords(ctx, store.RecordFilter{PeriodFrom: &start, PeriodTo: &end, SortField: "period_start", Page: 1, PageSize: 100})
	if err != nil {
		return nil, err
	}

	type point struct {
		period string
		value  float64
	}
	points := make([]point, 0, len(records))
	for _, r := range records {
		v, err := metricTotal([]model.FinancialRecord{r}, metric)
		if err != nil {
			return nil, err
		}
		points = append(points, point{period: r.PeriodStart.Format("2006-01-02"), value: v})
	}

	var outliers []map[string]interface{}
	for i := 1; i < len(points); i++ {
		check := metrics.CheckForOutlier(points[i].period, points[i].value, points[i-1].value, threshold)
		if check.IsOutlier {
			outliers = append(outliers, map[string]interface{}{
				"period":     points[i].period,
				"value":      check.Value,
				"change_pct": check.ChangePct,
				"reason":     check.Reason,
			})
		}
	}
	return map[string]interface{}{"outliers": outliers}, nil
}

func analyzeExpenseTrends(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	records, err := recordsInRange(ctx, st, args)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PeriodStart.Before(records[j].PeriodStart) })

	var segments []map[string]interface{}
	var inflections []string
	if len(records) >= 2 {
		dir := 0 // -1 falling, 0 unknown, 1 rising
		segStart := records[0].PeriodStart.Format("2006-01-02")
		for i := 1; i < len(records); i++ {
			prev, _ := records[i-1].Expenses.Float64()
			cur, _ := records[i].Expenses.Float64()
			newDir := 0
			if cur > prev {
				newDir = 1
			} else if cur < prev {
				newDir = -1
			}
			if newDir != 0 && dir != 0 && newDir != dir {
				inflections = append(inflections, records[i-1].PeriodStart.Format("2006-01-02"))
				segments = append(segments, map[string]interface{}{
					"from": segStart, "to": records[i-1].PeriodStart.Format("2006-01-02"), "direction": directionLabel(dir),
				})
				segStart = records[i-1].PeriodStart.Format("2006-01-02")
			}
			if newDir != 0 {
				dir = newDir
			}
		}
		segments = append(segments, map[string]interface{}{
			"from": segStart, "to": records[len(records)-1].PeriodStart.Format("2006-01-02"), "direction": directionLabel(dir),
		})
	}

	return map[string]interface{}{"segments": segments, "inflection_points": inflections}, nil
}

func directionLabel(dir int) string {
	switch {
	case dir > 0:
		return "rising"
	case dir < 0:
		return "falling"
	default:
		return "flat"
	}
}

func getExpenseCategories(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	records, err := recordsInRange(ctx, st, args)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(records))
	totalExpense := decimal.Zero
	for i, r := range records {
		ids[i] = r.ID
		totalExpense = totalExpense.Add(r.Expenses)
	}

	categories, err := expenseCategoryTotals(ctx, st, ids)
	if err != nil {
		return nil, err
	}

	totalF, _ := totalExpense.Float64()
	out := make(map[string]interface{}, len(categories))
	for name, v := range categories {
		share := 0.0
		if totalF != 0 {
			share = v / totalF * 100
		}
		out[name] = map[string]interface{}{"total": v, "share_pct": share}
	}
	return map[string]interface{}{"categories": out}, nil
}

func analyzeSeasonalPatterns(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	metric := argString(args, "metric")
	years := argStringSlice(args, "years")
	if len(years) == 0 {
		return nil, apperr.ValidationError("years must be a non-empty array")
	}

	monthSums := make(map[int]float64)
	monthCounts := make(map[int]int)

	for _, y := range years {
		start, end, err := store.ParsePeriodSpec(y)
		if err != nil {
			return nil, err
		}
		records, _, err := st.FindRecords(ctx, store.RecordFilter{PeriodFrom: &start, PeriodTo: &end, Page: 1, PageSize: 100})
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			v, err := metricTotal([]model.FinancialRecord{r}, metric)
			if err != nil {
				return nil, err
			}
			m := int(r.PeriodStart.Month())
			monthSums[m] += v
			monthCounts[m]++
		}
	}

	averages := make(map[string]float64, 12)
	peak, trough := "", ""
	peakVal, troughVal := math.Inf(-1), math.Inf(1)
	for m := 1; m <= 12; m++ {
		if monthCounts[m] == 0 {
			continue
		}
		avg := monthSums[m] / float64(monthCounts[m])
		averages[fmt.Sprintf("%02d", m)] = avg
		if avg > peakVal {
			peakVal, peak = avg, fmt.Sprintf("%02d", m)
		}
		if avg < troughVal {
			troughVal, trough = avg, fmt.Sprintf("%02d", m)
		}
	}

	return map[string]interface{}{"monthly_average": averages, "peak_month": peak, "trough_month": trough}, nil
}

func getQuarterlyPerformance(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	year := int(argFloatDefault(args, "year", 0))
	if year == 0 {
		return nil, apperr.ValidationError("year is required")
	}
	metric := argString(args, "metric")

	quarters := make([]map[string]interface{}, 0, 4)
	for q := 1; q <= 4; q++ {
		spec := fmt.Sprintf("%d-Q%d", year, q)
		start, end, err := store.ParsePeriodSpec(spec)
		if err != nil {
			return nil, err
		}
		records, _, err := st.FindRecords(ctx, store.RecordFilter{PeriodFrom: &start, PeriodTo: &end, Page: 1, PageSize: 100})
		if err != nil {
			return nil, err
		}
		cur, err := metricTotal(records, metric)
		if err != nil {
			return nil, err
		}

		priorSpec := fmt.Sprintf("%d-Q%d", year-1, q)
		priorStart, priorEnd, _ := store.ParsePeriodSpec(priorSpec)
		priorRecords, _, _ := st.FindRecords(ctx, store.RecordFilter{PeriodFrom: &priorStart, PeriodTo: &priorEnd, Page: 1, PageSize: 100})
		var yoy interface{}
		if len(priorRecords) > 0 {
			prior, _ := metricTotal(priorRecords, metric)
			yoy = metrics.CalculateYoY(cur, prior)
		}

		quarters = append(quarters, map[string]interface{}{
			"quarter": spec, "value": cur, "yoy_pct": yoy,
		})
	}
	return map[string]interface{}{"quarters": quarters}, nil
}

// getNetProfitMargin and getAccountBreakdown are the two supplemental tools
// drawn from the pack's broader valuation/analysis surface rather than
// recovered source, per the domain stack expansion.

func getNetProfitMargin(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	records, err := recordsInRange(ctx, st, args)
	if err != nil {
		return nil, err
	}

	points := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		rev, _ := r.Revenue.Float64()
		np, _ := r.NetProfit.Float64()
		margin := 0.0
		if rev != 0 {
			margin = np / rev * 100
		}
		points = append(points, map[string]interface{}{
			"period_start": r.PeriodStart.Format("2006-01-02"),
			"period_end":   r.PeriodEnd.Format("2006-01-02"),
			"margin_pct":   margin,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i]["period_start"].(string) < points[j]["period_start"].(string)
	})
	return map[string]interface{}{"per_period": points}, nil
}

func getAccountBreakdown(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error) {
	accountType := argString(args, "account_type")
	records, err := recordsInRange(ctx, st, args)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	if len(ids) == 0 {
		return map[string]interface{}{"accounts": map[string]float64{}}, nil
	}

	rows, err := st.Pool().Query(ctx, `
		SELECT a.account_id, a.name, SUM(v.value)
		FROM account_values v
		JOIN accounts a ON a.account_id = v.account_id
		WHERE v.financial_record_id = ANY($1) AND a.account_type = $2
		GROUP BY a.account_id, a.name
	`, ids, accountType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]interface{}{}
	for rows.Next() {
		var id, name, sum string
		if err := rows.Scan(&id, &name, &sum); err != nil {
			return nil, err
		}
		d, _ := decimal.NewFromString(sum)
		f, _ := d.Float64()
		out[id] = map[string]interface{}{"name": name, "total": f}
	}
	return map[string]interface{}{"accounts": out}, nil
}
