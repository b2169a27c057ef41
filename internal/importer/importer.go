// Package importer talks to the external character provider. The provider's
// native schema is out of scope here: the adapter expects an
// already-normalized sheet and this package only derives the handful of
// fields the engine needs from it.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/pkg/game"
)

// Sheet is the normalized character record the provider hands back.
type Sheet struct {
	Name      string            `json:"name"`
	Level     int               `json:"level"`
	HP        int               `json:"hp"`
	MaxHP     int               `json:"maxHp"`
	AC        int               `json:"ac"`
	Stats     game.Stats        `json:"stats"`
	Actions   []json.RawMessage `json:"actions"`
	Equipment []json.RawMessage `json:"equipment"`
}

// Provider fetches character sheets by external id. Refresh is the cheap
// HP-only pull used as the best-effort side effect on turn advance.
type Provider interface {
	Fetch(ctx context.Context, sourceID string) (*Sheet, error)
	Refresh(ctx context.Context, sourceID string) (hp, maxHP int, err error)
	Label() string
}

// HTTPProvider is a Provider over a JSON-speaking character service.
type HTTPProvider struct {
	baseURL string
	label   string
	client  *http.Client
}

func NewHTTPProvider(baseURL, label string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		label:   label,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) Label() string { return p.label }

func (p *HTTPProvider) Fetch(ctx context.Context, sourceID string) (*Sheet, error) {
	if sourceID == "" {
		return nil, apperr.InvalidArgument("a valid character id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/character/%s", p.baseURL, sourceID), nil)
	if err != nil {
		return nil, apperr.Wrap(err, "build request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.WrapWithCode(err, apperr.CodeUnavailable, "character provider unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Newf(apperr.CodeUnavailable,
			"character provider returned status %d", resp.StatusCode)
	}
	var sheet Sheet
	if err := json.NewDecoder(resp.Body).Decode(&sheet); err != nil {
		return nil, apperr.WrapWithCode(err, apperr.CodeUnavailable, "character provider sent a bad document")
	}
	if sheet.Name == "" {
		return nil, apperr.Unavailable("character provider sent an empty sheet")
	}
	return &sheet, nil
}

func (p *HTTPProvider) Refresh(ctx context.Context, sourceID string) (int, int, error) {
	sheet, err := p.Fetch(ctx, sourceID)
	if err != nil {
		return 0, 0, err
	}
	return sheet.HP, sheet.MaxHP, nil
}

// NewCombatant builds an initiative entry for an imported character.
// Proficiency bonus and passive perception are derived here; initiative
// starts at 0 for the DM to fill in.
func NewCombatant(sheet *Sheet, sourceID string) game.Combatant {
	level := sheet.Level
	if level < 1 {
		level = 1
	}
	return game.Combatant{
		ID:                fmt.Sprintf("player-%s-%s", sourceID, uuid.NewString()),
		Name:              sheet.Name,
		Kind:              game.KindPlayer,
		Initiative:        0,
		HP:                sheet.HP,
		MaxHP:             sheet.MaxHP,
		AC:                sheet.AC,
		Stats:             sheet.Stats,
		Level:             level,
		ProficiencyBonus:  game.ProficiencyBonus(level),
		PassivePerception: game.PassivePerception(sheet.Stats),
		Actions:           sheet.Actions,
		Equipment:         sheet.Equipment,
		ImportMode:        game.ImportExternal,
		SourceID:          sourceID,
		SyncEnabled:       false,
	}
}

// NewManualCombatant builds an initiative entry for a hand-entered player.
func NewManualCombatant(name string, level, hp, maxHP, ac int, stats game.Stats) game.Combatant {
	if level < 1 {
		level = 1
	}
	return game.Combatant{
		ID:                fmt.Sprintf("player-manual-%s", uuid.NewString()),
		Name:              name,
		Kind:              game.KindPlayer,
		Initiative:        0,
		HP:                hp,
		MaxHP:             maxHP,
		AC:                ac,
		Stats:             stats,
		Level:             level,
		ProficiencyBonus:  game.ProficiencyBonus(level),
		PassivePerception: game.PassivePerception(stats),
		Actions:           []json.RawMessage{},
		Equipment:         []json.RawMessage{},
		ImportMode:        game.ImportManual,
	}
}
