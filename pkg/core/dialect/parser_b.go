package dialect

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finagent/pkg/model"
)

const sourcePrefixB = "B:"

// lineItem is one node of a Dialect-B category tree. A node's own Value is
// the amount attributed to that node; the tree is a partition, not a
// rollup, so a parent's value (when present in the source at all) is never
// recomputed by summing children here; a category total is the sum of
// every node's own value, interior nodes included.
type lineItem struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Value    *leniteNumber `json:"value"`
	Children []lineItem    `json:"children"`
}

// leniteNumber decodes a "value" field leniently: a present-but-non-numeric
// value (a string, bool, object, or array) is substituted with zero and
// flagged Invalid instead of failing the whole file's decode. A JSON null
// or an absent key both leave the *leniteNumber field nil before
// UnmarshalJSON is ever called, preserving "this node carries no value"
// as a distinct case from "this node's value could not be parsed".
type leniteNumber struct {
	Value   float64
	Invalid bool
}

func (n *leniteNumber) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &n.Value); err == nil {
		return nil
	}
	n.Invalid = true
	n.Value = 0
	return nil
}

type recordB struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	CurrencyID  string `json:"currency_id"`

	Revenue              []lineItem `json:"revenue"`
	CostOfGoods          []lineItem `json:"cost_of_goods"`
	OperatingExpenses    []lineItem `json:"operating_expenses"`
	NonOperatingRevenue  []lineItem `json:"non_operating_revenue"`
	NonOperatingExpenses []lineItem `json:"non_operating_expenses"`
}

type rootB struct {
	Data []recordB `json:"data"`
}

var categoryType = map[string]model.AccountType{
	"revenue":                model.AccountRevenue,
	"cost_of_goods":          model.AccountExpense,
	"operating_expenses":     model.AccountExpense,
	"non_operating_revenue":  model.AccountRevenue,
	"non_operating_expenses": model.AccountExpense,
}

// ParseB implements Parser-B: a top-level data array of period-major
// records, each carrying five category line-item trees.
func ParseB(root map[string]interface{}) ParseResult {
	var res ParseResult

	var b rootB
	raw, err := json.Marshal(root)
	if err != nil {
		res.Issues = append(res.Issues, errIssue("PARSE_ERROR", "unable to re-encode root for Dialect-B decode"))
		return res
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		res.Issues = append(res.Issues, errIssue("PARSE_ERROR", "Dialect-B root does not match the expected shape"))
		return res
	}

	for idx, rec := range b.Data {
		cand, issues := parseRecordB(rec, idx)
		if cand == nil {
			// The record was skipped entirely (e.g. unparseable dates), so
			// there is no candidate left to own these issues; report them
			// at the file level instead. A record that does parse keeps its
			// own issues on cand.Issues only — they must not leak into
			// every sibling candidate's quality score.
			res.Issues = append(res.Issues, issues...)
			continue
		}
		res.Candidates = append(res.Candidates, *cand)
	}
	return res
}

func parseRecordB(rec recordB, idx int) (*Candidate, []model.Issue) {
	var issues []model.Issue

	start, err1 := time.Parse("2006-01-02", rec.PeriodStart)
	end, err2 := time.Parse("2006-01-02", rec.PeriodEnd)
	if err1 != nil || err2 != nil {
		issues = append(issues, errIssue("DATE_RANGE", fmt.Sprintf("data[%d] missing or unparseable period_start/period_end; record skipped", idx)))
		return nil, issues
	}

	currency := strings.ToUpper(rec.CurrencyID)
	if currency == "" {
		currency = "USD"
		issues = append(issues, info("CUR_DEFAULT", fmt.Sprintf("data[%d] missing currency_id; defaulting to USD", idx)))
	}

	var accounts []model.Account
	var values []model.AccountValue
	seen := map[string]int{}

	categories := []struct {
		key   string
		items []lineItem
	}{
		{"revenue", rec.Revenue},
		{"cost_of_goods", rec.CostOfGoods},
		{"operating_expenses", rec.OperatingExpenses},
		{"non_operating_revenue", rec.NonOperatingRevenue},
		{"non_operating_expenses", rec.NonOperatingExpenses},
	}

	var revenueTotal, expenseTotal float64

	var walk func(n lineItem, category string, parentID *string)
	walk = func(n lineItem, category string, parentID *string) {
		id := n.ID
		if id == "" {
			id = sourcePrefixB + category + "_" + slug(n.Name)
		} else {
			id = sourcePrefixB + id
		}
		if count, ok := seen[id]; ok {
			count++
			seen[id] = count
			id = fmt.Sprintf("%s#%d", id, count)
		} else {
			seen[id] = 0
		}

		acType := categoryType[category]
		acc := model.Account{
			AccountID:       id,
			Name:            n.Name,
			AccountType:     acType,
			ParentAccountID: parentID,
			Source:          model.SourceDialectB,
			IsActive:        true,
		}
		accounts = append(accounts, acc)

		if n.Value != nil {
			if n.Value.Invalid {
				issues = append(issues, warn("VALUE_PARSE", fmt.Sprintf("data[%d] node %q has a non-numeric value; substituting zero", idx, n.Name)))
			}
			v := n.Value.Value
			money := model.MoneyFromFloat(v)
			values = append(values, model.AccountValue{AccountID: acc.AccountID, Value: money})
			switch acType {
			case model.AccountRevenue:
				revenueTotal += v
			case model.AccountExpense:
				expenseTotal += v
			}
		}

		for _, c := range n.Children {
			walk(c, category, &acc.AccountID)
		}
	}

	for _, cat := range categories {
		for _, item := range cat.items {
			walk(item, cat.key, nil)
		}
	}

	revenue := model.MoneyFromFloat(revenueTotal)
	expenses := model.MoneyFromFloat(expenseTotal)
	netProfit := revenue.Sub(expenses)

	cand := &Candidate{
		Source:        model.SourceDialectB,
		PeriodStart:   start,
		PeriodEnd:     end,
		Currency:      currency,
		Revenue:       revenue,
		Expenses:      expenses,
		NetProfit:     netProfit,
		Disambiguator: fmt.Sprintf("data[%d]", idx),
		RawData: map[string]interface{}{
			"source_index": idx,
		},
		Accounts: accounts,
		Values:   values,
		Issues:   issues,
	}
	return cand, issues
}
