// Package utils holds small, dependency-carrying helpers for coaxing
// structured data out of an LLM reply: the Insights Engine's narrative
// envelope arrives as free text that is usually, but not always, strict
// JSON.
package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON fixes common malformations in LLM-emitted JSON: missing quotes
// around keys, single quotes, trailing commas, unclosed brackets.
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("json repair: %w", err)
	}
	return repaired, nil
}

// ParseHJSON parses Hjson (unquoted keys, comments, optional commas) and
// returns standard JSON.
func ParseHJSON(hjsonData string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(hjsonData), &result); err != nil {
		return "", fmt.Errorf("hjson parse: %w", err)
	}
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("hjson to json: %w", err)
	}
	return string(jsonBytes), nil
}

// SmartParse tries standard JSON first, then repair, then Hjson, unmarshaling
// into schema on the first strategy that succeeds.
func SmartParse(input string, schema interface{}) error {
	if err := json.Unmarshal([]byte(input), schema); err == nil {
		return nil
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return nil
		}
	}

	if hjsonResult, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(hjsonResult), schema); err == nil {
			return nil
		}
	}

	return fmt.Errorf("smart parse: no strategy produced valid JSON for the given schema")
}
