package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/pkg/game"
)

const sheetJSON = `{
	"name": "Ayla",
	"level": 5,
	"hp": 31,
	"maxHp": 38,
	"ac": 16,
	"stats": {"str": 10, "dex": 16, "con": 14, "int": 8, "wis": 13, "cha": 12},
	"actions": [{"name": "Shortsword"}],
	"equipment": [{"name": "Leather Armor"}]
}`

func testProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPProvider(srv.URL, "D&D Beyond")
}

func TestFetch_NormalizedSheet(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/character/42", r.URL.Path)
		_, _ = w.Write([]byte(sheetJSON))
	})

	sheet, err := p.Fetch(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Ayla", sheet.Name)
	assert.Equal(t, 31, sheet.HP)
	assert.Equal(t, 38, sheet.MaxHP)
}

func TestFetch_ProviderDown(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := p.Fetch(context.Background(), "42")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
}

func TestFetch_EmptyID(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := p.Fetch(context.Background(), "")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestRefresh_ReturnsHitPoints(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sheetJSON))
	})

	hp, maxHP, err := p.Refresh(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, 31, hp)
	assert.Equal(t, 38, maxHP)
}

func TestNewCombatant_DerivesFields(t *testing.T) {
	sheet := &Sheet{
		Name: "Ayla", Level: 5, HP: 31, MaxHP: 38, AC: 16,
		Stats: game.Stats{Str: 10, Dex: 16, Con: 14, Int: 8, Wis: 13, Cha: 12},
	}

	c := NewCombatant(sheet, "42")

	assert.Equal(t, game.KindPlayer, c.Kind)
	assert.Equal(t, game.ImportExternal, c.ImportMode)
	assert.Equal(t, "42", c.SourceID)
	assert.False(t, c.SyncEnabled)
	assert.Equal(t, 0, c.Initiative)
	assert.Equal(t, 3, c.ProficiencyBonus)   // level 5
	assert.Equal(t, 11, c.PassivePerception) // wis 13
	assert.Contains(t, c.ID, "player-42-")
}

func TestNewManualCombatant_DerivesFields(t *testing.T) {
	c := NewManualCombatant("Bren", 1, 10, 10, 14,
		game.Stats{Str: 15, Dex: 12, Con: 13, Int: 10, Wis: 8, Cha: 10})

	assert.Equal(t, game.ImportManual, c.ImportMode)
	assert.Equal(t, 2, c.ProficiencyBonus)
	assert.Equal(t, 9, c.PassivePerception) // wis 8 -> -1
	assert.Empty(t, c.SourceID)
	assert.NotNil(t, c.Actions)
}
