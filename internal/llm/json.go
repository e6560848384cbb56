package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON parses model output into v. Markdown code fences around the
// payload are tolerated because models add them even in JSON mode.
func DecodeJSON(raw string, v any) error {
	s := StripFences(raw)
	if s == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	return nil
}

// StripFences removes a surrounding ```json ... ``` block.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
