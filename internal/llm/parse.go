// ABOUTME: Best-effort parsing of JSON embedded in model output
// ABOUTME: Extraction responses often carry prose around the JSON object

package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var jsonObjectPattern = regexp.MustCompile(`\{[^{}]*\}`)

// ParseExtraction parses a model's extraction response into field:value
// pairs. It tries the whole string first, then the first {...} object found
// inside it. Unparseable output yields an empty map; extraction failures
// must never abort a conversation.
func ParseExtraction(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err == nil && fields != nil {
		return fields
	}

	if match := jsonObjectPattern.FindString(raw); match != "" {
		if err := json.Unmarshal([]byte(match), &fields); err == nil && fields != nil {
			return fields
		}
	}

	return map[string]any{}
}
