package tools

import (
	"time"

	"finagent/pkg/apperr"
)

// validateArgs enforces required-ness, type, and enum membership for each
// declared parameter. It does not check date values or ranges: handlers
// parse dates with argDate, recordsInRange rejects end_date before
// start_date, and detectAnomalies checks lookback_months is in [1,120].
// The order of start1/end1 and start2/end2 and the sign of threshold are
// not checked anywhere.
func validateArgs(t Tool, args map[string]interface{}) error {
	for _, p := range t.Parameters {
		v, present := args[p.Name]
		if !present {
			if p.Required {
				return apperr.ValidationError("tool %q: missing required parameter %q", t.Name, p.Name)
			}
			continue
		}

		switch p.Type {
		case "string":
			s, ok := v.(string)
			if !ok {
				return apperr.ValidationError("tool %q: parameter %q must be a string", t.Name, p.Name)
			}
			if len(p.Enum) > 0 && !contains(p.Enum, s) {
				return apperr.ValidationError("tool %q: parameter %q must be one of %v", t.Name, p.Name, p.Enum)
			}
		case "number":
			if _, ok := asFloat(v); !ok {
				return apperr.ValidationError("tool %q: parameter %q must be a number", t.Name, p.Name)
			}
		case "array":
			if _, ok := v.([]interface{}); !ok {
				return apperr.ValidationError("tool %q: parameter %q must be an array", t.Name, p.Name)
			}
		case "boolean":
			if _, ok := v.(bool); !ok {
				return apperr.ValidationError("tool %q: parameter %q must be a boolean", t.Name, p.Name)
			}
		}
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// argString/argDate/argFloat are handler-side convenience accessors; the
// registry has already validated presence and type by the time a handler
// runs, so these only need to report a clean error for malformed dates.

func argString(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func argDate(args map[string]interface{}, key string) (time.Time, error) {
	s := argString(args, key)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperr.ValidationError("parameter %q is not a valid YYYY-MM-DD date: %q", key, s)
	}
	return t, nil
}

func argFloatDefault(args map[string]interface{}, key string, def float64) float64 {
	v, ok := args[key]
	if !ok {
		return def
	}
	f, ok := asFloat(v)
	if !ok {
		return def
	}
	return f
}

func argStringSlice(args map[string]interface{}, key string) []string {
	raw, _ := args[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
