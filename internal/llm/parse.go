package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled patterns for cleaning model output before JSON decoding.
var (
	// Matches fenced blocks like ```json\n{...}\n``` anywhere in the text.
	codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")

	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)

	// Greedy object/array extraction for JSON embedded in prose.
	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex  = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// ParseJSON decodes a model response into T, tolerating the formatting
// quirks of LLM output: code fences, trailing commas, and JSON embedded in
// surrounding prose.
//
// Strategy sequence:
//  1. Direct JSON parse
//  2. Strip code fences and retry
//  3. Remove trailing commas and retry
//  4. Extract the first JSON object/array from mixed content and retry
//
// A failure here is a Malformed-Response condition: callers treat it like
// exhausted retries, not something to retry indefinitely.
func ParseJSON[T any](text string) (T, error) {
	var zero T

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, fmt.Errorf("empty response")
	}

	candidates := []string{trimmed}

	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	candidates = append(candidates, trailingCommaRegex.ReplaceAllString(trimmed, "$1"))
	if m := objectRegex.FindString(trimmed); m != "" {
		candidates = append(candidates, m, trailingCommaRegex.ReplaceAllString(m, "$1"))
	} else if m := arrayRegex.FindString(trimmed); m != "" {
		candidates = append(candidates, m)
	}

	var lastErr error
	for _, candidate := range candidates {
		var result T
		if err := json.Unmarshal([]byte(candidate), &result); err == nil {
			return result, nil
		} else {
			lastErr = err
		}
	}

	return zero, fmt.Errorf("unparsable response: %w (response: %s)", lastErr, Truncate(text, 200))
}

// Truncate shortens a string for log output.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
