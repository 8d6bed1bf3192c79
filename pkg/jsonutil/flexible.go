// Package jsonutil reads loosely shaped JSON settings values.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ScalarString renders a JSON scalar as text. Numbers and booleans are
// formatted, null and empty input yield "". ok is false for arrays and objects.
func ScalarString(raw json.RawMessage) (s string, ok bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", true
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal, true
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal)), true
		}
		return fmt.Sprintf("%g", numVal), true
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal), true
	}
	return "", false
}

// StringList reads a list of labels. It accepts an array of scalars or a
// single comma separated string, trims every entry and drops blanks and repeats.
func StringList(raw json.RawMessage) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		s, ok := ScalarString(raw)
		if !ok {
			return nil, fmt.Errorf("expected a list of strings")
		}
		for _, part := range strings.Split(s, ",") {
			items = append(items, mustQuote(part))
		}
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		s, ok := ScalarString(item)
		if !ok {
			return nil, fmt.Errorf("item %d is not a string", i)
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

func mustQuote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
