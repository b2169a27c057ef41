package game

import "testing"

func monster(id, base string, init int) Combatant {
	return Combatant{ID: id, Name: base, Kind: KindMonster, BaseName: base, Initiative: init}
}

func player(id, name string, init int) Combatant {
	return Combatant{ID: id, Name: name, Kind: KindPlayer, Initiative: init}
}

func orderIDs(s State) []string {
	ids := make([]string, len(s.InitiativeOrder))
	for i, c := range s.InitiativeOrder {
		ids[i] = c.ID
	}
	return ids
}

func TestSetInitiative_SortsDescendingAndResetsCursor(t *testing.T) {
	s := NewState()
	s.InitiativeOrder = []Combatant{player("a", "Ayla", 15), player("b", "Bren", 10), player("c", "Cora", 5)}
	s.CurrentTurnIndex = 2

	got := s.SetInitiative("c", 20)

	want := []string{"c", "a", "b"}
	for i, id := range orderIDs(got) {
		if id != want[i] {
			t.Fatalf("order: want %v, got %v", want, orderIDs(got))
		}
	}
	if got.CurrentTurnIndex != 0 {
		t.Fatalf("cursor: want 0, got %d", got.CurrentTurnIndex)
	}
}

func TestSetInitiative_StableForTies(t *testing.T) {
	s := NewState()
	s.InitiativeOrder = []Combatant{player("a", "Ayla", 12), player("b", "Bren", 12), player("c", "Cora", 18)}

	// Changing an unrelated combatant re-sorts; a and b keep relative order.
	got := s.SetInitiative("c", 1)

	want := []string{"a", "b", "c"}
	for i, id := range orderIDs(got) {
		if id != want[i] {
			t.Fatalf("order: want %v, got %v", want, orderIDs(got))
		}
	}
}

func TestSetInitiative_LockedDuringCombat(t *testing.T) {
	s := NewState()
	s.InitiativeOrder = []Combatant{player("a", "Ayla", 15), player("b", "Bren", 10)}
	s.CombatStarted = true
	s.CurrentTurnIndex = 1

	got := s.SetInitiative("b", 99)

	if got.InitiativeOrder[1].Initiative != 10 {
		t.Fatalf("initiative changed during combat")
	}
	if got.CurrentTurnIndex != 1 {
		t.Fatalf("cursor moved during combat")
	}
}

// Six goblins with rolls [18,12,20,8,15,3]: numbers follow addition order,
// display order follows initiative.
func TestMonsterNumbering_SixGoblins(t *testing.T) {
	rolls := []int{18, 12, 20, 8, 15, 3}
	s := NewState()
	for i, r := range rolls {
		s = s.AddCombatant(monster(string(rune('a'+i)), "Goblin", r))
	}

	type row struct {
		number int
		init   int
	}
	want := []row{{3, 20}, {1, 18}, {5, 15}, {2, 12}, {4, 8}, {6, 3}}
	if len(s.InitiativeOrder) != len(want) {
		t.Fatalf("want %d combatants, got %d", len(want), len(s.InitiativeOrder))
	}
	seen := make(map[int]bool)
	for i, c := range s.InitiativeOrder {
		if c.MonsterNumber != want[i].number || c.Initiative != want[i].init {
			t.Fatalf("slot %d: want #%d(init %d), got #%d(init %d)",
				i, want[i].number, want[i].init, c.MonsterNumber, c.Initiative)
		}
		if seen[c.MonsterNumber] {
			t.Fatalf("duplicate monster number %d", c.MonsterNumber)
		}
		seen[c.MonsterNumber] = true
	}
}

func TestMonsterNumbering_FirstAloneIsUnnumbered(t *testing.T) {
	s := NewState().AddCombatant(monster("g1", "Goblin", 10))
	if n := s.InitiativeOrder[0].MonsterNumber; n != 0 {
		t.Fatalf("lone monster should be unnumbered, got #%d", n)
	}

	s = s.AddCombatant(monster("g2", "Goblin", 5))
	byID := map[string]int{}
	for _, c := range s.InitiativeOrder {
		byID[c.ID] = c.MonsterNumber
	}
	if byID["g1"] != 1 || byID["g2"] != 2 {
		t.Fatalf("want g1=#1 g2=#2, got %v", byID)
	}
}

func TestMonsterNumbering_SeparateGroups(t *testing.T) {
	s := NewState()
	s = s.AddCombatant(monster("g1", "Goblin", 12))
	s = s.AddCombatant(monster("o1", "Orc", 10))
	s = s.AddCombatant(monster("g2", "Goblin", 8))

	byID := map[string]int{}
	for _, c := range s.InitiativeOrder {
		byID[c.ID] = c.MonsterNumber
	}
	if byID["o1"] != 0 {
		t.Fatalf("orc should stay unnumbered, got #%d", byID["o1"])
	}
	if byID["g1"] != 1 || byID["g2"] != 2 {
		t.Fatalf("goblins misnumbered: %v", byID)
	}
}

func TestRemove_PairShrinksToOneDropsNumber(t *testing.T) {
	s := NewState()
	s = s.AddCombatant(monster("g1", "Goblin", 12))
	s = s.AddCombatant(monster("g2", "Goblin", 8))

	got := s.RemoveCombatant("g2")

	if len(got.InitiativeOrder) != 1 {
		t.Fatalf("want 1 combatant, got %d", len(got.InitiativeOrder))
	}
	if n := got.InitiativeOrder[0].MonsterNumber; n != 0 {
		t.Fatalf("survivor should be unnumbered, got #%d", n)
	}
}

func TestRemove_TrioKeepsNumbers(t *testing.T) {
	s := NewState()
	s = s.AddCombatant(monster("g1", "Goblin", 12))
	s = s.AddCombatant(monster("g2", "Goblin", 8))
	s = s.AddCombatant(monster("g3", "Goblin", 4))

	got := s.RemoveCombatant("g1")

	byID := map[string]int{}
	for _, c := range got.InitiativeOrder {
		byID[c.ID] = c.MonsterNumber
	}
	// Gap left by #1 stays; the other two keep their numbers.
	if byID["g2"] != 2 || byID["g3"] != 3 {
		t.Fatalf("numbers not preserved: %v", byID)
	}
}

func TestRemove_RetargetsCurrentByIdentity(t *testing.T) {
	s := NewState()
	s.InitiativeOrder = []Combatant{
		player("a", "Ayla", 20),
		player("b", "Bren", 15),
		player("c", "Cora", 10),
	}
	s.CombatStarted = true
	s.CurrentTurnIndex = 2 // Cora acting

	got := s.RemoveCombatant("a")

	if cur := got.Current(); cur == nil || cur.ID != "c" {
		t.Fatalf("current actor lost: index %d in %v", got.CurrentTurnIndex, orderIDs(got))
	}
}

func TestRemove_CurrentActorRemovedResetsToTop(t *testing.T) {
	s := NewState()
	s.InitiativeOrder = []Combatant{player("a", "Ayla", 20), player("b", "Bren", 15)}
	s.CombatStarted = true
	s.CurrentTurnIndex = 1

	got := s.RemoveCombatant("b")

	if got.CurrentTurnIndex != 0 {
		t.Fatalf("cursor: want 0, got %d", got.CurrentTurnIndex)
	}
}

func TestAddCombatant_DuringCombatAppendsWithoutResort(t *testing.T) {
	s := NewState()
	s.InitiativeOrder = []Combatant{player("a", "Ayla", 20), player("b", "Bren", 5)}
	s.CombatStarted = true
	s.CurrentTurnIndex = 1

	got := s.AddCombatant(monster("g1", "Goblin", 30))

	want := []string{"a", "b", "g1"}
	for i, id := range orderIDs(got) {
		if id != want[i] {
			t.Fatalf("order: want %v, got %v", want, orderIDs(got))
		}
	}
	if cur := got.Current(); cur == nil || cur.ID != "b" {
		t.Fatalf("current actor moved")
	}
}
