package persona

import (
	"strings"
	"testing"
)

func TestEmbeddedPromptsNonEmpty(t *testing.T) {
	for _, p := range All() {
		if strings.TrimSpace(p.System()) == "" {
			t.Errorf("persona %s has an empty system prompt", p.ID)
		}
		if !strings.Contains(p.System(), "ДИСКЛЕЙМЕР") {
			t.Errorf("persona %s prompt missing the mandatory disclaimer", p.ID)
		}
	}
}

func TestLookups(t *testing.T) {
	if p, ok := ByID(Gynecology); !ok || p.Command != "gen" {
		t.Errorf("ByID(Gynecology) = %v, %v", p, ok)
	}
	if _, ok := ByID("nope"); ok {
		t.Error("unknown id must not resolve")
	}

	if p, ok := ByTrigger("!врач"); !ok || p.ID != General {
		t.Errorf("ByTrigger(!врач) = %v, %v", p, ok)
	}
	if _, ok := ByTrigger("врач"); ok {
		t.Error("trigger without the bang must not resolve")
	}

	if p, ok := ByCommand("aku"); !ok || p.ID != Obstetrics {
		t.Errorf("ByCommand(aku) = %v, %v", p, ok)
	}
}

func TestDefaultResolvable(t *testing.T) {
	if _, ok := ByID(Default); !ok {
		t.Fatal("default persona must resolve")
	}
	MustByID(Default) // must not panic
}

func TestUniqueTriggersAndCommands(t *testing.T) {
	triggers := make(map[string]ID)
	commands := make(map[string]ID)
	for _, p := range All() {
		if prev, dup := triggers[p.Trigger]; dup {
			t.Errorf("trigger %q shared by %s and %s", p.Trigger, prev, p.ID)
		}
		triggers[p.Trigger] = p.ID
		if prev, dup := commands[p.Command]; dup {
			t.Errorf("command %q shared by %s and %s", p.Command, prev, p.ID)
		}
		commands[p.Command] = p.ID
	}
}
