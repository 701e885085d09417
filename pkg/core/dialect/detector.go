package dialect

import (
	"encoding/json"
	"fmt"

	"finagent/pkg/apperr"
)

// Kind is the detected dialect.
type Kind string

const (
	KindDialectA Kind = "DialectA"
	KindDialectB Kind = "DialectB"
)

// Detect inspects the top-level shape of the decoded JSON value and
// reports which dialect it belongs to. A root object with "columns" and
// "rows" is a column-major P&L (Dialect-A); a root object with a "data"
// array whose elements carry "period_start"/"period_end" is a period-major
// record set (Dialect-B). Anything else fails fast with ParseError/
// UnknownDialect.
func Detect(raw []byte) (Kind, map[string]interface{}, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(raw, &root); err != nil {
		return "", nil, apperr.ParseError(err, "malformed JSON")
	}

	if _, hasRows := root["rows"]; hasRows {
		if _, hasCols := root["columns"]; hasCols {
			return KindDialectA, root, nil
		}
	}

	if data, ok := root["data"].([]interface{}); ok {
		if len(data) == 0 {
			return KindDialectB, root, nil
		}
		if first, ok := data[0].(map[string]interface{}); ok {
			if _, hasStart := first["period_start"]; hasStart {
				return KindDialectB, root, nil
			}
		}
	}

	return "", nil, apperr.ParseError(fmt.Errorf("UnknownDialect"), "root JSON shape does not match Dialect-A or Dialect-B")
}
