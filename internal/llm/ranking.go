package llm

import (
	"sort"
	"strings"
)

// fallbackModels is the static candidate set used when discovery fails or
// misses models the deployment is known to reach. Order matters: it is the
// tie-break order after scoring.
var fallbackModels = []string{
	"gemini-exp-1206",
	"gemini-1.5-flash",
	"gemini-1.5-flash-8b",
	"gemini-2.0-flash-exp",
	"gemini-3-flash-preview",
}

// scoreModel ranks a model name by the quality/cost heuristic: experimental
// and newer-generation flash variants first, paid pro and preview variants
// last. Total over any string and stable by construction.
func scoreModel(name string) int {
	s := 0
	if strings.Contains(name, "exp") {
		s += 500
	}
	if strings.Contains(name, "3-") || strings.Contains(name, "2.5-") {
		s += 400
	}
	if strings.Contains(name, "flash") {
		s += 300
	}
	if strings.Contains(name, "8b") {
		s += 250
	}
	if strings.Contains(name, "lite") {
		s += 100
	}
	if strings.Contains(name, "1.5") {
		s += 50
	}
	if strings.Contains(name, "pro") {
		s -= 50
	}
	if strings.Contains(name, "preview") {
		s -= 20
	}
	return s
}

// RankModels merges discovered candidates with the static fallback set,
// drops duplicates preserving first-seen order, and sorts by descending
// score. The sort is stable, so equal scores keep discovery order — the
// same input always produces the same table.
func RankModels(discovered []string) []string {
	seen := make(map[string]bool, len(discovered)+len(fallbackModels))
	merged := make([]string, 0, len(discovered)+len(fallbackModels))
	for _, name := range discovered {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		merged = append(merged, name)
	}
	for _, name := range fallbackModels {
		if seen[name] {
			continue
		}
		seen[name] = true
		merged = append(merged, name)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return scoreModel(merged[i]) > scoreModel(merged[j])
	})
	return merged
}
