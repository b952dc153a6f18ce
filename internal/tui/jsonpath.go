// Copyright 2025 James Ross
package tui

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// extractField pulls a value out of a stored record's JSON payload by
// JSONPath (e.g. "$.accident_details[0].severity"), the way
// internal/dlq-remediation-pipeline/classifier.go extracts a condition
// field out of a job payload. No key binding or form in the TUI calls it;
// the manual-adjustment form's fields are typed in by hand.
func extractField(payload []byte, path string) (any, error) {
	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("tui: decode record payload: %w", err)
	}
	value, err := jsonpath.Get(path, data)
	if err != nil {
		return nil, fmt.Errorf("tui: jsonpath %q: %w", path, err)
	}
	return value, nil
}
