// Package taxonomy holds the fixed label sets used for classification:
// academic disciplines and position types. Labels outside these sets are
// discarded during validation rather than stored.
package taxonomy

import "strings"

// DisciplineOther is the fallback discipline when no valid label survives
// validation.
const DisciplineOther = "Other"

// Disciplines is the allowed discipline label set.
var Disciplines = []string{
	"Computer Science",
	"Biology",
	"Chemistry & Materials Science",
	"Physics",
	"Mathematics",
	"Medicine",
	"Psychology",
	"Economics",
	"Linguistics",
	"History",
	"Sociology & Political Science",
	"Arts & Humanities",
	"Education",
	"Other",
	"General call",
}

// PositionTypes is the allowed position-type label set.
var PositionTypes = []string{
	"PhD",
	"Postdoc",
	"Faculty",
	"Research Assistant",
	"Masters",
	"Internship",
	"Other",
}

// MatchDiscipline resolves a free-form model response to a canonical
// discipline label. Matching is case-insensitive and accepts responses that
// contain the label, since small models tend to echo surrounding words.
// Returns "" if nothing matches.
func MatchDiscipline(response string) string {
	lowered := strings.ToLower(strings.TrimSpace(response))
	if lowered == "" {
		return ""
	}
	for _, d := range Disciplines {
		if strings.Contains(lowered, strings.ToLower(d)) {
			return d
		}
	}
	return ""
}

// MatchPositionType resolves a free-form label to a canonical position type.
// Returns "" if nothing matches.
func MatchPositionType(response string) string {
	lowered := strings.ToLower(strings.TrimSpace(response))
	if lowered == "" {
		return ""
	}
	for _, p := range PositionTypes {
		if strings.Contains(lowered, strings.ToLower(p)) {
			return p
		}
	}
	return ""
}

// FilterDisciplines validates a candidate label list: out-of-taxonomy labels
// are dropped, duplicates removed, and the result capped at 3 entries. If
// nothing survives, the list defaults to ["Other"].
func FilterDisciplines(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	result := make([]string, 0, 3)
	for _, c := range candidates {
		matched := MatchDiscipline(c)
		if matched == "" || seen[matched] {
			continue
		}
		seen[matched] = true
		result = append(result, matched)
		if len(result) == 3 {
			break
		}
	}
	if len(result) == 0 {
		return []string{DisciplineOther}
	}
	return result
}

// FilterPositionTypes validates a candidate position-type list the same way,
// without the minimum-one rule: an empty result is allowed.
func FilterPositionTypes(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	result := make([]string, 0, len(candidates))
	for _, c := range candidates {
		matched := MatchPositionType(c)
		if matched == "" || seen[matched] {
			continue
		}
		seen[matched] = true
		result = append(result, matched)
	}
	return result
}
