package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/mitchellh/mapstructure"
)

// Decode parses raw model output into out. Code fences are stripped, broken
// JSON is repaired, and the result is decoded weakly typed so that quoted
// numbers and booleans still conform to the schema. Any failure wraps
// ErrMalformed.
func Decode(raw string, out any) error {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return fmt.Errorf("%w: empty response", ErrMalformed)
	}

	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return fmt.Errorf("%w: %s", ErrMalformed, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &value); err != nil {
			return fmt.Errorf("%w: %s", ErrMalformed, err)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("building decoder: %w", err)
	}

	if err := decoder.Decode(value); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformed, err)
	}

	return nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
