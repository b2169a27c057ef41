// Package store persists encounters and their game state. One state row per
// encounter; the initiative order and log are serialized as JSON text so the
// row survives schema-free combatant changes.
package store

import (
	"encoding/json"
	"time"

	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/pkg/game"
)

// Encounter is one DM-owned combat session.
type Encounter struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	OwnerID      uint   `gorm:"index;not null"`
	CreatedAt    time.Time
	LastActiveAt *time.Time
}

// StateRow is the persisted form of game.State, keyed by encounter id.
type StateRow struct {
	EncounterID      string `gorm:"primaryKey"`
	ActiveMap        string
	InitiativeOrder  string `gorm:"type:text"`
	CurrentTurnIndex int
	CurrentRound     int `gorm:"default:1"`
	CombatStarted    bool
	TurnStartTime    *time.Time
	Log              string `gorm:"type:text"`
}

func (StateRow) TableName() string { return "game_states" }

func newStateRow(encounterID string, s game.State) (StateRow, error) {
	order, err := json.Marshal(s.InitiativeOrder)
	if err != nil {
		return StateRow{}, apperr.Wrap(err, "marshal initiative order")
	}
	log, err := json.Marshal(s.Log)
	if err != nil {
		return StateRow{}, apperr.Wrap(err, "marshal log")
	}
	return StateRow{
		EncounterID:      encounterID,
		ActiveMap:        s.ActiveMap,
		InitiativeOrder:  string(order),
		CurrentTurnIndex: s.CurrentTurnIndex,
		CurrentRound:     s.CurrentRound,
		CombatStarted:    s.CombatStarted,
		TurnStartTime:    s.TurnStartTime,
		Log:              string(log),
	}, nil
}

func (r StateRow) state() (game.State, error) {
	s := game.NewState()
	s.ActiveMap = r.ActiveMap
	s.CurrentTurnIndex = r.CurrentTurnIndex
	s.CurrentRound = r.CurrentRound
	s.CombatStarted = r.CombatStarted
	s.TurnStartTime = r.TurnStartTime
	if r.InitiativeOrder != "" {
		if err := json.Unmarshal([]byte(r.InitiativeOrder), &s.InitiativeOrder); err != nil {
			return game.State{}, apperr.Wrap(err, "unmarshal initiative order")
		}
	}
	if r.Log != "" {
		if err := json.Unmarshal([]byte(r.Log), &s.Log); err != nil {
			return game.State{}, apperr.Wrap(err, "unmarshal log")
		}
	}
	return s, nil
}
