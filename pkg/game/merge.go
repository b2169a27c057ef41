package game

import "time"

// PartialUpdate names a subset of State's top-level fields. A nil field is
// left untouched; a non-nil field fully replaces the stored value, including
// the array fields, which are never merged element-wise. The caller supplies
// complete replacement arrays and owns the sequencing.
type PartialUpdate struct {
	ActiveMap        *string     `json:"active_map"`
	InitiativeOrder  []Combatant `json:"initiative_order"`
	CurrentTurnIndex *int        `json:"current_turn_index"`
	CurrentRound     *int        `json:"current_round"`
	CombatStarted    *bool       `json:"combat_started"`
	TurnStartTime    *time.Time  `json:"turn_start_time"`
	Log              []string    `json:"log"`
}

// Merge applies u to s field by field, last writer wins. Emptying the
// initiative order resets the turn cursor and round to their defaults.
func (s State) Merge(u PartialUpdate) State {
	out := s
	if u.ActiveMap != nil {
		out.ActiveMap = *u.ActiveMap
	}
	if u.InitiativeOrder != nil {
		out.InitiativeOrder = u.InitiativeOrder
		if len(u.InitiativeOrder) == 0 {
			out.CurrentTurnIndex = 0
			out.CurrentRound = 1
		}
	}
	if u.CurrentTurnIndex != nil {
		out.CurrentTurnIndex = *u.CurrentTurnIndex
	}
	if u.CurrentRound != nil {
		out.CurrentRound = *u.CurrentRound
	}
	if u.CombatStarted != nil {
		out.CombatStarted = *u.CombatStarted
	}
	if u.TurnStartTime != nil {
		out.TurnStartTime = u.TurnStartTime
	}
	if u.Log != nil {
		out.Log = u.Log
	}
	return out
}
