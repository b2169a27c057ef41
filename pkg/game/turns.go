package game

import (
	"fmt"
	"time"
)

// logClock renders timestamps the way log lines show them to players.
const logClock = "15:04:05"

func logLine(now time.Time, format string, args ...any) string {
	return now.Format(logClock) + " - " + fmt.Sprintf(format, args...)
}

// BeginCombat moves the encounter from setup into active combat. The cursor
// stays where it is (the top of the order), the turn clock starts, and a log
// line names the first combatant. Returns the combatant that should be
// refreshed from its import provider, if any, and false when the transition
// is a guarded no-op (empty order, or combat already running).
func BeginCombat(s State, now time.Time) (State, *Combatant, bool) {
	if s.CombatStarted || len(s.InitiativeOrder) == 0 {
		return s, nil, false
	}

	first := s.InitiativeOrder[0]

	out := s
	out.CombatStarted = true
	start := now
	out.TurnStartTime = &start
	out.Log = appendLog(s.Log, logLine(now, "Combat started! %s's turn", first.Name))

	var sync *Combatant
	if first.SyncEligible() {
		sync = &first
	}
	return out, sync, true
}

// AdvanceTurn hands the turn to the next combatant in the order. The current
// combatant is marked as having acted first; wrapping past the end of the
// order rolls the round over, incrementing the counter and clearing every
// has-acted flag. Log lines are appended in order: turn-end duration (when a
// turn clock was running), round banner (on rollover), and the next
// combatant's turn-start. Returns the combatant to refresh from its import
// provider, if eligible, and false on a guarded no-op.
func AdvanceTurn(s State, now time.Time) (State, *Combatant, bool) {
	if !s.CombatStarted || len(s.InitiativeOrder) == 0 {
		return s, nil, false
	}

	order := make([]Combatant, len(s.InitiativeOrder))
	copy(order, s.InitiativeOrder)

	log := s.Log
	if cur := s.Current(); cur != nil && s.TurnStartTime != nil {
		elapsed := int(now.Sub(*s.TurnStartTime).Seconds())
		log = appendLog(log, logLine(now, "%s's turn ended (%ds)", cur.Name, elapsed))
	}
	if s.CurrentTurnIndex >= 0 && s.CurrentTurnIndex < len(order) {
		order[s.CurrentTurnIndex].HasActed = true
	}

	next := (s.CurrentTurnIndex + 1) % len(order)
	round := s.CurrentRound
	if next == 0 {
		// Full cycle completed.
		round++
		for i := range order {
			order[i].HasActed = false
		}
		log = appendLog(log, logLine(now, "Round %d begins!", round))
	}

	nextCombatant := order[next]
	log = appendLog(log, logLine(now, "%s's turn started", nextCombatant.Name))

	out := s
	out.InitiativeOrder = order
	out.CurrentTurnIndex = next
	out.CurrentRound = round
	start := now
	out.TurnStartTime = &start
	out.Log = log

	var sync *Combatant
	if nextCombatant.SyncEligible() {
		sync = &nextCombatant
	}
	return out, sync, true
}

// Reset returns the encounter to the setup phase: empty order, cursor at 0,
// round 1, combat stopped, turn clock cleared. The log is kept. Unconditional.
func Reset(s State) State {
	out := s
	out.InitiativeOrder = []Combatant{}
	out.CurrentTurnIndex = 0
	out.CurrentRound = 1
	out.CombatStarted = false
	out.TurnStartTime = nil
	return out
}

// AppendLog adds a line to the log stamped with the local clock.
func AppendLog(s State, now time.Time, format string, args ...any) State {
	out := s
	out.Log = appendLog(s.Log, logLine(now, format, args...))
	return out
}

// appendLog copies before appending so callers sharing the old slice never
// see partial writes.
func appendLog(log []string, line string) []string {
	out := make([]string, len(log), len(log)+1)
	copy(out, log)
	return append(out, line)
}
