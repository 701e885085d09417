package prompt

// GetAgentPrompt returns the agent controller's static system prompt.
func GetAgentPrompt(r *Registry) (string, error) {
	return r.GetSystemPrompt(PromptIDs.AgentSystem)
}

// GetInsightPrompt returns an insights engine composition's system prompt
// by its insight_type name.
func GetInsightPrompt(r *Registry, insightType string) (string, error) {
	return r.GetSystemPrompt("insights." + insightType)
}

// PromptIDs contains every known prompt identifier in this system: the
// agent's single system prompt plus one per insights-engine composition.
var PromptIDs = struct {
	AgentSystem string

	InsightRevenueTrends        string
	InsightExpenseAnalysis      string
	InsightCashFlow             string
	InsightSeasonalPatterns     string
	InsightQuarterlyPerformance string
	InsightComprehensiveSummary string
}{
	AgentSystem: "agent.system",

	InsightRevenueTrends:        "insights.revenue-trends",
	InsightExpenseAnalysis:      "insights.expense-analysis",
	InsightCashFlow:             "insights.cash-flow",
	InsightSeasonalPatterns:     "insights.seasonal-patterns",
	InsightQuarterlyPerformance: "insights.quarterly-performance",
	InsightComprehensiveSummary: "insights.comprehensive-summary",
}
