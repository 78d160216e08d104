// Package persona defines the assistant's selectable system prompts. Each
// persona carries its Telegram command, its Russian chat trigger and the
// embedded system instruction sent to the model.
package persona

import (
	_ "embed"
)

// ID identifies a persona.
type ID string

const (
	General    ID = "general"
	Gynecology ID = "gynecology"
	Obstetrics ID = "obstetrics"
)

// Default is the persona assigned to users who never switched.
const Default = General

var (
	//go:embed prompts/general.md
	generalPrompt string

	//go:embed prompts/gynecology.md
	gynecologyPrompt string

	//go:embed prompts/obstetrics.md
	obstetricsPrompt string
)

// Persona is one selectable assistant mode.
type Persona struct {
	ID      ID
	Title   string // shown in menus and status output
	Command string // slash command without the slash
	Trigger string // Russian in-chat trigger word
	// Blurb is the confirmation text sent when the user switches here.
	Blurb  string
	system string
}

func (p Persona) System() string { return p.system }

var personas = []Persona{
	{
		ID:      General,
		Title:   "🏥 Общая медицина",
		Command: "medic",
		Trigger: "!врач",
		Blurb: "🏥 **Режим: Общая медицина** ✅\n\n" +
			"Готов анализировать гайдлайны по кардиологии, инфекциям, пульмологии и др.\n\n" +
			"_Триггер: !врач_",
		system: generalPrompt,
	},
	{
		ID:      Gynecology,
		Title:   "🏥 Гинекология",
		Command: "gen",
		Trigger: "!гениколог",
		Blurb: "🏥 **Режим: Гинекология** ✅\n\n" +
			"Готов анализировать клинические рекомендации ACOG, RCOG, ESHRE и Минздрава РФ.\n\n" +
			"_Триггер: !гениколог_",
		system: gynecologyPrompt,
	},
	{
		ID:      Obstetrics,
		Title:   "🤰 Акушерство",
		Command: "aku",
		Trigger: "!акушер",
		Blurb: "🤰 **Режим: Акушерство** ✅\n\n" +
			"Готов анализировать рекомендации WHO, ACOG, FIGO по ведению беременности и родов.\n\n" +
			"_Триггер: !акушер_",
		system: obstetricsPrompt,
	},
}

// All returns every persona in menu order.
func All() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}

// ByID looks a persona up by identifier.
func ByID(id ID) (Persona, bool) {
	for _, p := range personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// MustByID is ByID for identifiers known at compile time.
func MustByID(id ID) Persona {
	p, ok := ByID(id)
	if !ok {
		panic("persona: unknown id " + string(id))
	}
	return p
}

// ByTrigger matches a lowercased word against persona triggers.
func ByTrigger(word string) (Persona, bool) {
	for _, p := range personas {
		if p.Trigger == word {
			return p, true
		}
	}
	return Persona{}, false
}

// ByCommand matches a slash command name (without the slash).
func ByCommand(cmd string) (Persona, bool) {
	for _, p := range personas {
		if p.Command == cmd {
			return p, true
		}
	}
	return Persona{}, false
}
