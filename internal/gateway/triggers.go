package gateway

import (
	"strings"

	"github.com/roelfdiedericks/aibolit/internal/persona"
)

// In-chat trigger words. Matching is exact whole-word and case-insensitive:
// "!врач" in a message switches mode, "!врачебная" does not.
const (
	TriggerRefresh = "!обнови"
	TriggerInfo    = "!инфо"
)

type triggerKind int

const (
	triggerNone triggerKind = iota
	triggerPersona
	triggerRefresh
	triggerInfo
)

// detectTrigger scans the message for trigger words. The first match wins;
// a message carrying a trigger is consumed entirely and never reaches the
// model.
func detectTrigger(text string) (triggerKind, persona.Persona) {
	if text == "" {
		return triggerNone, persona.Persona{}
	}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if p, ok := persona.ByTrigger(word); ok {
			return triggerPersona, p
		}
		switch word {
		case TriggerRefresh:
			return triggerRefresh, persona.Persona{}
		case TriggerInfo:
			return triggerInfo, persona.Persona{}
		}
	}
	return triggerNone, persona.Persona{}
}
