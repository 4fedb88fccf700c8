package llm

import (
	"fmt"
	"strings"
)

// ExtractJSONObject pulls a JSON object out of a model response that may be
// wrapped in markdown code fences or conversational filler. Models asked for
// strict JSON mostly comply, but the cheap ones occasionally decorate.
func ExtractJSONObject(resp string) (string, error) {
	s := strings.TrimSpace(resp)

	// Strip markdown code fences.
	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if strings.HasPrefix(s, "json") {
			s = s[4:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	// Extract the object by brace position.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return s[start : end+1], nil
}
