package dialect

import (
	"encoding/json"
	"fmt"
	"time"

	"finagent/pkg/model"
)

// decodeRootA re-marshals the generically-decoded root map into the typed
// rootA shape. The detector already confirmed "columns" and "rows" exist;
// any remaining shape mismatch surfaces as a best-effort zero value rather
// than a fatal error, consistent with the per-field error policy (missing
// required field -> skip subtree, emit ERROR/WARNING at the caller).
func decodeRootA(root map[string]interface{}) rootA {
	var a rootA
	b, err := json.Marshal(root)
	if err != nil {
		return a
	}
	_ = json.Unmarshal(b, &a)
	return a
}

// parsePeriodColumns extracts (title, start, end) triples from the column
// metadata array, in order. A column with an unparseable date range is
// skipped and reported as an ERROR issue rather than aborting the file.
func parsePeriodColumns(cols []map[string]interface{}) ([]periodColumn, []model.Issue) {
	var out []periodColumn
	var issues []model.Issue

	for i, c := range cols {
		title, _ := c["title"].(string)
		startStr, _ := c["start_date"].(string)
		endStr, _ := c["end_date"].(string)

		start, err1 := time.Parse("2006-01-02", startStr)
		end, err2 := time.Parse("2006-01-02", endStr)
		if err1 != nil || err2 != nil {
			issues = append(issues, errIssue("DATE_RANGE", fmt.Sprintf("column %d has an unparseable start_date/end_date; column skipped", i)))
			continue
		}
		out = append(out, periodColumn{Title: title, Start: start, End: end})
	}
	return out, issues
}
