package dialect

import (
	"fmt"
	"strings"
	"time"

	"finagent/pkg/model"
)

const sourcePrefixA = "A:"

var keywordTable = map[model.AccountType][]string{
	model.AccountRevenue:  {"income", "revenue", "sales", "service", "consulting"},
	model.AccountExpense:  {"expense", "cost", "payroll", "rent", "marketing"},
	model.AccountAsset:    {"cash", "bank", "receivable", "inventory", "equipment"},
	model.AccountLiability: {"payable", "loan", "debt", "liability", "accrued"},
}

// periodColumn is one column descriptor parsed from column metadata.
type periodColumn struct {
	Title string
	Start time.Time
	End   time.Time
}

type rowNode struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Group    string          `json:"group"`
	Children []rowNode       `json:"children"`
	Values   []float64       `json:"values"`
}

type rootA struct {
	Header  map[string]interface{} `json:"header"`
	Columns []map[string]interface{} `json:"columns"`
	Rows    []rowNode               `json:"rows"`
}

// ParseA implements Parser-A: column-major P&L with a header block, ordered
// period columns, and a recursive row tree.
func ParseA(root map[string]interface{}) ParseResult {
	var res ParseResult

	a := decodeRootA(root)

	currency := "USD"
	if a.Header != nil {
		if c, ok := a.Header["currency"].(string); ok && c != "" {
			currency = strings.ToUpper(c)
		} else {
			res.Issues = append(res.Issues, info("CUR_DEFAULT", "currency missing from header; defaulting to USD"))
		}
	} else {
		res.Issues = append(res.Issues, info("CUR_DEFAULT", "header missing; defaulting currency to USD"))
	}

	periods, perIssues := parsePeriodColumns(a.Columns)
	res.Issues = append(res.Issues, perIssues...)
	if len(periods) == 0 {
		return res
	}

	// revenueSums[i] / expenseSums[i] accumulate across the whole row tree
	// for period index i.
	revenueSums := make([]float64, len(periods))
	expenseSums := make([]float64, len(periods))

	var accounts []model.Account
	// values[i] holds the per-account contributions for period index i.
	valuesByPeriod := make([][]model.AccountValue, len(periods))

	seen := map[string]int{}
	var walk func(n rowNode, inheritedGroup string, parentID *string)
	walk = func(n rowNode, inheritedGroup string, parentID *string) {
		group := n.Group
		if group == "" {
			group = inheritedGroup
		}
		accType := classify(n.Name, group)

		id := n.ID
		if id == "" {
			id = sourcePrefixA + slug(n.Name)
		} else {
			id = sourcePrefixA + id
		}
		if count, ok := seen[id]; ok {
			count++
			seen[id] = count
			id = fmt.Sprintf("%s#%d", id, count)
		} else {
			seen[id] = 0
		}

		acc := model.Account{
			AccountID:       id,
			Name:            n.Name,
			AccountType:     accType,
			ParentAccountID: parentID,
			Source:          model.SourceDialectA,
			IsActive:        true,
		}
		accounts = append(accounts, acc)

		if len(n.Children) > 0 {
			for _, c := range n.Children {
				walk(c, group, &acc.AccountID)
			}
			return
		}

		// Terminal row: a value per period, aligned positionally.
		for i := range periods {
			var v float64
			if i < len(n.Values) {
				v = n.Values[i]
			} else {
				res.Issues = append(res.Issues, warn("MISSING_VALUE", fmt.Sprintf("row %q missing value for period %d; substituting zero", n.Name, i)))
			}
			money := model.MoneyFromFloat(v)
			valuesByPeriod[i] = append(valuesByPeriod[i], model.AccountValue{
				AccountID: acc.AccountID,
				Value:     money,
			})
			switch accType {
			case model.AccountRevenue:
				revenueSums[i] += v
			case model.AccountExpense:
				expenseSums[i] += v
			}
		}
	}

	for _, r := range a.Rows {
		walk(r, "", nil)
	}

	for i, p := range periods {
		revenue := model.MoneyFromFloat(revenueSums[i])
		expenses := model.MoneyFromFloat(expenseSums[i])
		netProfit := revenue.Sub(expenses)

		cand := Candidate{
			Source:        model.SourceDialectA,
			PeriodStart:   p.Start,
			PeriodEnd:     p.End,
			Currency:      currency,
			Revenue:       revenue,
			Expenses:      expenses,
			NetProfit:     netProfit,
			Disambiguator: p.Title,
			RawData: map[string]interface{}{
				"column_title": p.Title,
			},
			Accounts: accounts,
			Values:   valuesByPeriod[i],
		}
		res.Candidates = append(res.Candidates, cand)
	}

	return res
}

func classify(name, group string) model.AccountType {
	label := strings.ToLower(group)
	if label != "" {
		if t, ok := matchKeyword(label); ok {
			return t
		}
	}
	if t, ok := matchKeyword(strings.ToLower(name)); ok {
		return t
	}
	return model.AccountOther
}

func matchKeyword(haystack string) (model.AccountType, bool) {
	for _, t := range []model.AccountType{model.AccountRevenue, model.AccountExpense, model.AccountAsset, model.AccountLiability} {
		for _, kw := range keywordTable[t] {
			if strings.Contains(haystack, kw) {
				return t, true
			}
		}
	}
	return "", false
}

func slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
