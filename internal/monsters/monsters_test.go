package monsters

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/pkg/game"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	c, err := NewCatalog(db)
	require.NoError(t, err)

	require.NoError(t, c.Seed(context.Background(), []Monster{
		{IndexName: "goblin", Name: "Goblin", ArmorClass: 15, HitPoints: 7, Dex: 14},
		{IndexName: "hobgoblin", Name: "Hobgoblin", ArmorClass: 18, HitPoints: 11},
		{IndexName: "owlbear", Name: "Owlbear", ArmorClass: 13, HitPoints: 59},
	}))
	return c
}

func TestSearch_CaseInsensitiveSubstring(t *testing.T) {
	c := testCatalog(t)

	out, err := c.Search(context.Background(), "GOB")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Goblin", out[0].Name)
	assert.Equal(t, "Hobgoblin", out[1].Name)
}

func TestSearch_EmptyQueryReturnsAll(t *testing.T) {
	c := testCatalog(t)

	out, err := c.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestGet_Unknown(t *testing.T) {
	c := testCatalog(t)

	_, err := c.Get(context.Background(), "tarrasque")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestCombatant_FromStatBlock(t *testing.T) {
	c := testCatalog(t)

	m, err := c.Get(context.Background(), "goblin")
	require.NoError(t, err)

	cb := m.Combatant("g1", 14, "Sniv")
	assert.Equal(t, game.KindMonster, cb.Kind)
	assert.Equal(t, "Goblin", cb.BaseName)
	assert.Equal(t, "Sniv", cb.Nickname)
	assert.Equal(t, 7, cb.HP)
	assert.Equal(t, 7, cb.MaxHP)
	assert.Equal(t, 15, cb.AC)
	assert.Equal(t, 14, cb.Initiative)
	assert.Equal(t, 14, cb.Stats.Dex)
}
