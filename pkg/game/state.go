// Package game holds the encounter state model and the pure transition
// logic layered on it: whole-field merge of partial updates, initiative
// ordering rules, and the combat turn state machine. Nothing in this
// package touches storage or the network.
package game

import (
	"encoding/json"
	"time"
)

type Kind string

const (
	KindPlayer  Kind = "player"
	KindMonster Kind = "monster"
)

type ImportMode string

const (
	ImportManual   ImportMode = "manual"
	ImportExternal ImportMode = "import"
)

// Stats is the six-score ability block.
type Stats struct {
	Str int `json:"str"`
	Dex int `json:"dex"`
	Con int `json:"con"`
	Int int `json:"int"`
	Wis int `json:"wis"`
	Cha int `json:"cha"`
}

// Combatant is one entry in the initiative order. Players and monsters share
// the common block; the kind-specific fields are zero for the other kind.
// Actions, equipment and special abilities are opaque to the engine; they are
// carried verbatim from whatever source produced them.
type Combatant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       Kind   `json:"type"`
	Initiative int    `json:"initiative"`
	HP         int    `json:"hp"`
	MaxHP      int    `json:"maxHp"`
	AC         int    `json:"ac"`
	Stats      Stats  `json:"stats"`
	HasActed   bool   `json:"has_acted"`

	Actions          []json.RawMessage `json:"actions,omitempty"`
	Equipment        []json.RawMessage `json:"equipment,omitempty"`
	SpecialAbilities []json.RawMessage `json:"special_abilities,omitempty"`

	// Player fields.
	Level             int        `json:"level,omitempty"`
	ProficiencyBonus  int        `json:"proficiencyBonus,omitempty"`
	PassivePerception int        `json:"passivePerception,omitempty"`
	ImportMode        ImportMode `json:"importMode,omitempty"`
	SourceID          string     `json:"sourceId,omitempty"`
	SyncEnabled       bool       `json:"syncEnabled,omitempty"`

	// Monster fields. MonsterNumber 0 means unnumbered.
	BaseName      string `json:"baseName,omitempty"`
	MonsterNumber int    `json:"monsterNumber,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
}

// SyncEligible reports whether the combatant should be refreshed from its
// import provider when its turn begins.
func (c Combatant) SyncEligible() bool {
	return c.Kind == KindPlayer && c.SyncEnabled && c.ImportMode == ImportExternal && c.SourceID != ""
}

// State is the full game state of one encounter. InitiativeOrder is the
// authoritative turn sequence; CurrentTurnIndex points into it once combat
// has started.
type State struct {
	ActiveMap        string      `json:"active_map"`
	InitiativeOrder  []Combatant `json:"initiative_order"`
	CurrentTurnIndex int         `json:"current_turn_index"`
	CurrentRound     int         `json:"current_round"`
	CombatStarted    bool        `json:"combat_started"`
	TurnStartTime    *time.Time  `json:"turn_start_time"`
	Log              []string    `json:"log"`
}

func NewState() State {
	return State{
		InitiativeOrder:  []Combatant{},
		CurrentTurnIndex: 0,
		CurrentRound:     1,
		Log:              []string{},
	}
}

// IndexOf returns the position of the combatant with the given id, or -1.
func (s State) IndexOf(id string) int {
	for i, c := range s.InitiativeOrder {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Current returns the combatant at CurrentTurnIndex, or nil when the index
// is out of range.
func (s State) Current() *Combatant {
	if s.CurrentTurnIndex < 0 || s.CurrentTurnIndex >= len(s.InitiativeOrder) {
		return nil
	}
	return &s.InitiativeOrder[s.CurrentTurnIndex]
}

// Modifier is the ability modifier for a score, rounded down.
func Modifier(score int) int {
	m := score - 10
	if m < 0 {
		m--
	}
	return m / 2
}

// ProficiencyBonus derives the bonus from character level.
func ProficiencyBonus(level int) int {
	if level < 1 {
		level = 1
	}
	return 1 + (level+3)/4
}

// PassivePerception derives passive perception from the wisdom score.
func PassivePerception(st Stats) int {
	return 10 + Modifier(st.Wis)
}
