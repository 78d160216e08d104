package llm

import (
	"reflect"
	"testing"
)

func TestRankModelsDeterministic(t *testing.T) {
	discovered := []string{
		"gemini-1.5-pro",
		"gemini-2.0-flash-exp",
		"gemini-1.5-flash",
		"gemini-2.0-flash-exp", // duplicate
		"",
	}

	first := RankModels(discovered)
	for i := 0; i < 10; i++ {
		if got := RankModels(discovered); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced a different table:\n%v\nvs\n%v", i, got, first)
		}
	}

	seen := make(map[string]bool)
	for _, name := range first {
		if name == "" {
			t.Error("empty model name survived the merge")
		}
		if seen[name] {
			t.Errorf("duplicate %q in ranked table", name)
		}
		seen[name] = true
	}
}

func TestRankModelsIncludesFallbackSet(t *testing.T) {
	ranked := RankModels(nil)
	if len(ranked) != len(fallbackModels) {
		t.Fatalf("expected %d fallback models, got %d", len(fallbackModels), len(ranked))
	}
	got := make(map[string]bool, len(ranked))
	for _, name := range ranked {
		got[name] = true
	}
	for _, name := range fallbackModels {
		if !got[name] {
			t.Errorf("fallback model %q missing from empty-discovery table", name)
		}
	}
}

func TestScoreOrdering(t *testing.T) {
	cases := []struct {
		better, worse string
	}{
		{"gemini-2.0-flash-exp", "gemini-1.5-flash"}, // exp beats stable
		{"gemini-1.5-flash", "gemini-1.5-pro"},       // flash beats pro
		{"gemini-1.5-flash-8b", "gemini-1.5-flash"},  // cheaper variant preferred
		{"gemini-2.5-flash", "gemini-1.5-flash"},     // newer generation wins
		{"gemini-2.0-flash", "gemini-2.0-flash-preview"},
	}
	for _, tc := range cases {
		if scoreModel(tc.better) <= scoreModel(tc.worse) {
			t.Errorf("expected %q (%d) to outrank %q (%d)",
				tc.better, scoreModel(tc.better), tc.worse, scoreModel(tc.worse))
		}
	}
}

func TestRankModelsDescending(t *testing.T) {
	ranked := RankModels([]string{"gemini-1.5-pro", "gemini-2.5-flash", "gemini-2.0-flash-lite"})
	for i := 1; i < len(ranked); i++ {
		if scoreModel(ranked[i-1]) < scoreModel(ranked[i]) {
			t.Errorf("table not descending at %d: %q (%d) before %q (%d)",
				i, ranked[i-1], scoreModel(ranked[i-1]), ranked[i], scoreModel(ranked[i]))
		}
	}
}

func TestStableTieBreakKeepsInputOrder(t *testing.T) {
	// Two names with identical scores must keep their discovery order.
	a, b := "gemini-1.5-flash-alpha", "gemini-1.5-flash-beta"
	if scoreModel(a) != scoreModel(b) {
		t.Fatalf("test fixture broke: scores differ (%d vs %d)", scoreModel(a), scoreModel(b))
	}
	ranked := RankModels([]string{a, b})
	posA, posB := -1, -1
	for i, name := range ranked {
		switch name {
		case a:
			posA = i
		case b:
			posB = i
		}
	}
	if posA == -1 || posB == -1 || posA > posB {
		t.Errorf("tie broke input order: %v", ranked)
	}
}
