// Package insights implements the C9 component: canned analytical
// compositions that gather data points through the C6 tool registry, ask
// the LLM Adapter to narrate them, and cache the result for a configurable
// TTL. Grounded on the teacher's edgar qualitative agents (provider.Generate
// + a JSON-extraction helper over a fenced/plain LLM reply), adapted here to
// read from C4's Store via C6 instead of from a 10-K filing.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"finagent/pkg/apperr"
	"finagent/pkg/config"
	"finagent/pkg/core/llm"
	"finagent/pkg/core/prompt"
	"finagent/pkg/core/store"
	"finagent/pkg/core/tools"
	"finagent/pkg/core/utils"
)

// Kind names one of the six canned compositions.
type Kind string

const (
	KindRevenueTrends        Kind = "revenue-trends"
	KindExpenseAnalysis      Kind = "expense-analysis"
	KindCashFlow             Kind = "cash-flow"
	KindSeasonalPatterns     Kind = "seasonal-patterns"
	KindQuarterlyPerformance Kind = "quarterly-performance"
	KindComprehensiveSummary Kind = "comprehensive-summary"
)

// Insight is what every composition returns.
type Insight struct {
	InsightType     Kind                   `json:"insight_type"`
	Period          string                 `json:"period"`
	Narrative       string                 `json:"narrative"`
	KeyFindings     []string               `json:"key_findings"`
	Recommendations []string               `json:"recommendations"`
	DataPoints      map[string]interface{} `json:"data_points"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// narrativeEnvelope is the JSON shape the LLM is asked to reply with.
type narrativeEnvelope struct {
	Narrative       string   `json:"narrative"`
	KeyFindings     []string `json:"key_findings"`
	Recommendations []string `json:"recommendations"`
}

type cacheEntry struct {
	insight   Insight
	expiresAt time.Time
}

// Engine composes canned insights over C6's tool catalog and C7's provider.
type Engine struct {
	store    *store.Store
	tools    *tools.Registry
	provider llm.Provider
	prompts  *prompt.Registry
	cfg      *config.Config

	cache sync.Map // string -> cacheEntry
}

// New builds an Engine over the given Store, tool registry, LLM provider,
// and prompt registry.
func New(st *store.Store, registry *tools.Registry, provider llm.Provider, prompts *prompt.Registry, cfg *config.Config) *Engine {
	return &Engine{store: st, tools: registry, provider: provider, prompts: prompts, cfg: cfg}
}

// Generate produces (or returns a cached copy of) the insight identified by
// kind and period. period is a period spec understood by
// store.ParsePeriodSpec (YYYY, YYYY-Qn, YYYY-MM, YYYY-MM-DD) except for
// seasonal-patterns, where it is a comma-separated list of years.
func (e *Engine) Generate(ctx context.Context, kind Kind, period string) (Insight, error) {
	cacheKey := string(kind) + "|" + period

	if cached, ok := e.cache.Load(cacheKey); ok {
		entry := cached.(cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			return entry.insight, nil
		}
		e.cache.Delete(cacheKey)
	}

	dataPoints, err := e.gatherDataPoints(ctx, kind, period)
	if err != nil {
		return Insight{}, err
	}

	narrative, err := e.narrate(ctx, kind, period, dataPoints)
	if err != nil {
		return Insight{}, err
	}

	insight := Insight{
		InsightType:     kind,
		Period:          period,
		Narrative:       narrative.Narrative,
		KeyFindings:     narrative.KeyFindings,
		Recommendations: narrative.Recommendations,
		DataPoints:      dataPoints,
		GeneratedAt:     time.Now().UTC(),
	}

	e.cache.Store(cacheKey, cacheEntry{insight: insight, expiresAt: time.Now().Add(e.cfg.InsightCacheTTL())})
	return insight, nil
}

// ClearCache drops every cached insight, forcing the next Generate call for
// any (kind, period) pair to recompute.
func (e *Engine) ClearCache() {
	e.cache.Range(func(key, _ interface{}) bool {
		e.cache.Delete(key)
		return true
	})
}

func (e *Engine) gatherDataPoints(ctx context.Context, kind Kind, period string) (map[string]interface{}, error) {
	switch kind {
	case KindRevenueTrends:
		return e.revenueTrendsData(ctx, period)
	case KindExpenseAnalysis:
		return e.expenseAnalysisData(ctx, period)
	case KindCashFlow:
		return e.cashFlowData(ctx, period)
	case KindSeasonalPatterns:
		return e.seasonalPatternsData(ctx, period)
	case KindQuarterlyPerformance:
		return e.quarterlyPerformanceData(ctx, period)
	case KindComprehensiveSummary:
		return e.comprehensiveSummaryData(ctx, period)
	default:
		return nil, apperr.ValidationError("unknown insight kind %q", kind)
	}
}

func (e *Engine) execTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, apperr.Internal(err, "marshal args for tool %s", name)
	}
	return e.tools.Execute(ctx, e.store, name, string(argsJSON))
}

func (e *Engine) periodBounds(period string) (string, string, error) {
	start, end, err := store.ParsePeriodSpec(period)
	if err != nil {
		return "", "", err
	}
	return start.Format("2006-01-02"), end.Format("2006-01-02"), nil
}

func (e *Engine) revenueTrendsData(ctx context.Context, period string) (map[string]interface{}, error) {
	start, end, err := e.periodBounds(period)
	if err != nil {
		return nil, err
	}
	revenue, err := e.execTool(ctx, "get_revenue_by_period", map[string]interface{}{"start_date": start, "end_date": end})
	if err != nil {
		return nil, err
	}
	growth, err := e.execTool(ctx, "calculate_growth_rate", map[string]interface{}{
		"metric": "revenue", "periods": []string{period},
	})
	if err != nil {
		growth = nil // growth rate needs >=2 periods; a single-period request degrades gracefully
	}
	return map[string]interface{}{"revenue_by_period": revenue, "growth": growth}, nil
}

func (e *Engine) expenseAnalysisData(ctx context.Context, period string) (map[string]interface{}, error) {
	start, end, err := e.periodBounds(period)
	if err != nil {
		return nil, err
	}
	categories, err := e.execTool(ctx, "get_expense_categories", map[string]interface{}{"start_date": start, "end_date": end})
	if err != nil {
		return nil, err
	}
	trends, err := e.execTool(ctx, "analyze_expense_trends", map[string]interface{}{"start_date": start, "end_date": end})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"expense_categories": categories, "expense_trends": trends}, nil
}

func (e *Engine) cashFlowData(ctx context.Context, period string) (map[string]interface{}, error) {
	start, end, err := e.periodBounds(period)
	if err != nil {
		return nil, err
	}
	margin, err := e.execTool(ctx, "get_net_profit_margin", map[string]interface{}{"start_date": start, "end_date": end})
	if err != nil {
		return nil, err
	}
	revenue, err := e.execTool(ctx, "get_revenue_by_period", map[string]interface{}{"start_date": start, "end_date": end})
	if err != nil {
		return nil, err
	}
	expenses, err := e.execTool(ctx, "get_expenses_by_period", map[string]interface{}{"start_date": start, "end_date": end})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"net_profit_margin": margin, "revenue": revenue, "expenses": expenses}, nil
}

func (e *Engine) seasonalPatternsData(ctx context.Context, period string) (map[string]interface{}, error) {
	years := strings.Split(period, ",")
	for i := range years {
		years[i] = strings.TrimSpace(years[i])
	}
	pattern, err := e.execTool(ctx, "analyze_seasonal_patterns", map[string]interface{}{
		"metric": "revenue", "years": years,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"seasonal_pattern": pattern}, nil
}

func (e *Engine) quarterlyPerformanceData(ctx context.Context, period string) (map[string]interface{}, error) {
	year, err := strconv.Atoi(strings.TrimSpace(period))
	if err != nil {
		return nil, apperr.ValidationError("quarterly-performance expects a four-digit year, got %q", period)
	}
	performance, err := e.execTool(ctx, "get_quarterly_performance", map[string]interface{}{
		"year": year, "metric": "revenue",
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"quarterly_performance": performance}, nil
}

func (e *Engine) comprehensiveSummaryData(ctx context.Context, period string) (map[string]interface{}, error) {
	revenue, err := e.revenueTrendsData(ctx, period)
	if err != nil {
		return nil, err
	}
	expense, err := e.expenseAnalysisData(ctx, period)
	if err != nil {
		return nil, err
	}
	cash, err := e.cashFlowData(ctx, period)
	if err != nil {
		return nil, err
	}
	combined := map[string]interface{}{}
	for k, v := range revenue {
		combined[k] = v
	}
	for k, v := range expense {
		combined[k] = v
	}
	for k, v := range cash {
		combined[k] = v
	}
	return combined, nil
}

func (e *Engine) narrate(ctx context.Context, kind Kind, period string, dataPoints map[string]interface{}) (narrativeEnvelope, error) {
	systemPrompt, err := prompt.GetInsightPrompt(e.prompts, string(kind))
	if err != nil {
		systemPrompt = defaultInsightPrompt
	}

	dataJSON, err := json.Marshal(dataPoints)
	if err != nil {
		return narrativeEnvelope{}, apperr.Internal(err, "marshal data points for insight %s", kind)
	}

	userPrompt := fmt.Sprintf(`Data points:
%s

Period: %s

Return JSON exactly in this shape, with no surrounding text or markdown fence:
{"narrative": "...", "key_findings": ["..."], "recommendations": ["..."]}`, string(dataJSON), period)

	timeout := e.cfg.LLMTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := e.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt},
	}, nil)
	if err != nil {
		return narrativeEnvelope{}, err
	}

	var envelope narrativeEnvelope
	if err := parseNarrativeJSON(result.AssistantText, &envelope); err != nil {
		// Degrade to a plain-text narrative rather than fail the whole
		// insight when the model didn't reply with the requested shape.
		return narrativeEnvelope{Narrative: result.AssistantText}, nil
	}
	return envelope, nil
}

// parseNarrativeJSON extracts a JSON object from a model reply that may be
// wrapped in a markdown code fence, preceded/followed by stray text, or
// malformed in the small ways LLMs tend to get JSON wrong (trailing commas,
// single quotes, unquoted keys). The fence/brace strip handles the common
// case cheaply; utils.SmartParse's repair and Hjson fallbacks catch the rest.
func parseNarrativeJSON(resp string, v interface{}) error {
	clean := strings.ReplaceAll(resp, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}

	return utils.SmartParse(clean, v)
}

const defaultInsightPrompt = `You analyze financial data points and produce a short narrative. ` +
	`Reply with JSON only: {"narrative": "...", "key_findings": ["..."], "recommendations": ["..."]}.`
