package tools

// allTools is the constant catalog of every registered tool: the nine
// contracts from the tool registry design plus two supplemental tools
// drawn from the broader analytical surface of the example pack.
func allTools() []Tool {
	return []Tool{
		{
			Name:        "get_revenue_by_period",
			Description: "Total and per-period revenue within a date range.",
			Parameters:  dateParams(),
			Handler:     getRevenueByPeriod,
		},
		{
			Name:        "get_expenses_by_period",
			Description: "Total and per-period expenses within a date range, with a category split when account-level detail is available.",
			Parameters:  dateParams(),
			Handler:     getExpensesByPeriod,
		},
		{
			Name:        "compare_financial_metrics",
			Description: "Absolute and percent change for a set of metrics between two periods.",
			Parameters: []ParamSchema{
				{Name: "start1", Type: "string", Description: "period 1 start, YYYY-MM-DD", Required: true},
				{Name: "end1", Type: "string", Description: "period 1 end, YYYY-MM-DD", Required: true},
				{Name: "start2", Type: "string", Description: "period 2 start, YYYY-MM-DD", Required: true},
				{Name: "end2", Type: "string", Description: "period 2 end, YYYY-MM-DD", Required: true},
				{Name: "metrics", Type: "array", Description: "metric names: revenue, expenses, net_profit", Required: true},
			},
			Handler: compareFinancialMetrics,
		},
		{
			Name:        "calculate_growth_rate",
			Description: "Pairwise growth between consecutive periods plus a CAGR-style summary across all of them.",
			Parameters: []ParamSchema{
				{Name: "metric", Type: "string", Description: "revenue, expenses, or net_profit", Required: true, Enum: []string{"revenue", "expenses", "net_profit"}},
				{Name: "periods", Type: "array", Description: "ordered list of period specs (YYYY, YYYY-Qn, YYYY-MM)", Required: true},
			},
			Handler: calculateGrowthRate,
		},
		{
			Name:        "detect_anomalies",
			Description: "Periods whose change versus the prior period exceeds a threshold, expressed as a z-score-like change measure.",
			Parameters: []ParamSchema{
				{Name: "metric", Type: "string", Description: "revenue, expenses, or net_profit", Required: true, Enum: []string{"revenue", "expenses", "net_profit"}},
				{Name: "threshold", Type: "number", Description: "fractional change threshold, default 0.2"},
				{Name: "lookback_months", Type: "number", Description: "months to look back, 1-120", Required: true},
			},
			Handler: detectAnomalies,
		},
		{
			Name:        "analyze_expense_trends",
			Description: "Monotonic rising/falling segments of expenses over a range, with inflection points.",
			Parameters:  dateParams(),
			Handler:     analyzeExpenseTrends,
		},
		{
			Name:        "get_expense_categories",
			Description: "Category totals and share of total expense over a range.",
			Parameters:  dateParams(),
			Handler:     getExpenseCategories,
		},
		{
			Name:        "analyze_seasonal_patterns",
			Description: "Per-calendar-month average of a metric across a set of years, with the peak and trough month.",
			Parameters: []ParamSchema{
				{Name: "metric", Type: "string", Description: "revenue, expenses, or net_profit", Required: true, Enum: []string{"revenue", "expenses", "net_profit"}},
				{Name: "years", Type: "array", Description: "list of four-digit years", Required: true},
			},
			Handler: analyzeSeasonalPatterns,
		},
		{
			Name:        "get_quarterly_performance",
			Description: "Four quarter summaries for a metric in a given year, with year-over-year change when the prior year is present.",
			Parameters: []ParamSchema{
				{Name: "year", Type: "number", Description: "four-digit year", Required: true},
				{Name: "metric", Type: "string", Description: "revenue, expenses, or net_profit", Required: true, Enum: []string{"revenue", "expenses", "net_profit"}},
			},
			Handler: getQuarterlyPerformance,
		},
		{
			Name:        "get_net_profit_margin",
			Description: "Net profit margin percentage per period within a date range.",
			Parameters:  dateParams(),
			Handler:     getNetProfitMargin,
		},
		{
			Name:        "get_account_breakdown",
			Description: "Per-account totals for a given account type within a date range.",
			Parameters: dateParams(ParamSchema{
				Name: "account_type", Type: "string", Description: "account type to break down", Required: true,
				Enum: []string{"Revenue", "Expense", "Asset", "Liability", "Other"},
			}),
			Handler: getAccountBreakdown,
		},
	}
}
