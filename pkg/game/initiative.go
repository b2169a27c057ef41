package game

import "sort"

// sortByInitiative orders combatants by descending initiative score.
// The sort is stable: ties keep their prior relative order.
func sortByInitiative(order []Combatant) []Combatant {
	out := make([]Combatant, len(order))
	copy(out, order)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Initiative > out[j].Initiative
	})
	return out
}

// AddCombatant appends c to the order, applying monster group numbering.
// Monsters sharing a base name are numbered in order of addition: the first
// stays unnumbered until a second arrives, which retroactively numbers the
// first #1 and itself #2; later additions take max(existing)+1. Outside
// combat the result is re-sorted; during combat the newcomer goes to the
// end so the current actor's position is untouched.
func (s State) AddCombatant(c Combatant) State {
	order := make([]Combatant, len(s.InitiativeOrder))
	copy(order, s.InitiativeOrder)

	if c.Kind == KindMonster && c.BaseName != "" {
		var group []int
		maxNum := 0
		for i, existing := range order {
			if existing.Kind == KindMonster && existing.BaseName == c.BaseName {
				group = append(group, i)
				if existing.MonsterNumber > maxNum {
					maxNum = existing.MonsterNumber
				}
			}
		}
		switch {
		case maxNum > 0:
			c.MonsterNumber = maxNum + 1
		case len(group) == 1:
			// Second of its name: number the lone unnumbered one retroactively.
			order[group[0]].MonsterNumber = 1
			c.MonsterNumber = 2
		}
	}

	order = append(order, c)

	out := s
	if !s.CombatStarted {
		order = sortByInitiative(order)
	}
	out.InitiativeOrder = order
	return out
}

// RemoveCombatant deletes the combatant with the given id, drops monster
// numbers on groups reduced to a single member, re-sorts, and re-targets
// the turn cursor at the previously-current combatant by identity. If the
// current combatant was the one removed (or is gone), the cursor resets to 0.
func (s State) RemoveCombatant(id string) State {
	var currentID string
	if cur := s.Current(); cur != nil {
		currentID = cur.ID
	}

	order := make([]Combatant, 0, len(s.InitiativeOrder))
	for _, c := range s.InitiativeOrder {
		if c.ID != id {
			order = append(order, c)
		}
	}
	order = cleanupNumbering(order)
	order = sortByInitiative(order)

	out := s
	out.InitiativeOrder = order
	out.CurrentTurnIndex = 0
	if len(order) == 0 {
		out.CurrentRound = 1
		return out
	}
	if currentID != "" && currentID != id {
		for i, c := range order {
			if c.ID == currentID {
				out.CurrentTurnIndex = i
				break
			}
		}
	}
	return out
}

// SetInitiative changes a combatant's initiative score, re-sorts the order,
// and resets the cursor to the top. Initiative is locked once combat has
// started; the call is then a no-op.
func (s State) SetInitiative(id string, score int) State {
	if s.CombatStarted {
		return s
	}
	order := make([]Combatant, len(s.InitiativeOrder))
	copy(order, s.InitiativeOrder)
	for i := range order {
		if order[i].ID == id {
			order[i].Initiative = score
		}
	}

	out := s
	out.InitiativeOrder = sortByInitiative(order)
	out.CurrentTurnIndex = 0
	return out
}

// cleanupNumbering drops the monster number from any base-name group that
// has exactly one member left. Numbers in larger groups are preserved as-is,
// gaps included.
func cleanupNumbering(order []Combatant) []Combatant {
	counts := make(map[string]int)
	for _, c := range order {
		if c.Kind == KindMonster && c.BaseName != "" {
			counts[c.BaseName]++
		}
	}
	out := make([]Combatant, len(order))
	copy(out, order)
	for i := range out {
		c := &out[i]
		if c.Kind == KindMonster && c.BaseName != "" && counts[c.BaseName] == 1 {
			c.MonsterNumber = 0
		}
	}
	return out
}
