// Package monsters is the stat-block catalog backing the bestiary search.
package monsters

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/pkg/game"
)

// Monster is one catalog entry. Speed and actions are stored as JSON text;
// the engine treats them as opaque.
type Monster struct {
	IndexName        string `gorm:"primaryKey" json:"index_name"`
	Name             string `gorm:"index;not null" json:"name"`
	Type             string `json:"type"`
	Size             string `json:"size"`
	Alignment        string `json:"alignment"`
	ArmorClass       int    `json:"armor_class"`
	HitPoints        int    `json:"hit_points"`
	Speed            string `gorm:"type:text" json:"speed"`
	Str              int    `json:"str"`
	Dex              int    `json:"dex"`
	Con              int    `json:"con"`
	Int              int    `json:"int"`
	Wis              int    `json:"wis"`
	Cha              int    `json:"cha"`
	Actions          string `gorm:"type:text" json:"-"`
	SpecialAbilities string `gorm:"type:text" json:"-"`
}

// Catalog is the monster repository.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) (*Catalog, error) {
	if err := db.AutoMigrate(&Monster{}); err != nil {
		return nil, apperr.Wrap(err, "migrate monsters")
	}
	return &Catalog{db: db}, nil
}

// Search returns entries whose name contains q, case-insensitively. An empty
// query returns the whole catalog.
func (c *Catalog) Search(ctx context.Context, q string) ([]Monster, error) {
	var out []Monster
	tx := c.db.WithContext(ctx).Order("name")
	q = strings.TrimSpace(q)
	if q != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if err := tx.Find(&out).Error; err != nil {
		return nil, apperr.Wrap(err, "search monsters")
	}
	return out, nil
}

// Get fetches one entry by its index name.
func (c *Catalog) Get(ctx context.Context, indexName string) (*Monster, error) {
	var m Monster
	err := c.db.WithContext(ctx).First(&m, "index_name = ?", indexName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("monster %s not found", indexName)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "get monster")
	}
	return &m, nil
}

// Seed upserts catalog entries, keyed by index name.
func (c *Catalog) Seed(ctx context.Context, entries []Monster) error {
	if len(entries) == 0 {
		return nil
	}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "index_name"}},
		UpdateAll: true,
	}).Create(&entries).Error
	if err != nil {
		return apperr.Wrap(err, "seed monsters")
	}
	return nil
}

// Combatant builds an initiative entry from the stat block. Initiative is
// the caller's roll; the nickname is optional flavor.
func (m *Monster) Combatant(id string, initiative int, nickname string) game.Combatant {
	c := game.Combatant{
		ID:         id,
		Name:       m.Name,
		Kind:       game.KindMonster,
		BaseName:   m.Name,
		Nickname:   nickname,
		Initiative: initiative,
		HP:         m.HitPoints,
		MaxHP:      m.HitPoints,
		AC:         m.ArmorClass,
		Stats: game.Stats{
			Str: m.Str, Dex: m.Dex, Con: m.Con,
			Int: m.Int, Wis: m.Wis, Cha: m.Cha,
		},
	}
	c.Actions = rawList(m.Actions)
	c.SpecialAbilities = rawList(m.SpecialAbilities)
	return c
}

func rawList(text string) []json.RawMessage {
	if text == "" {
		return nil
	}
	var out []json.RawMessage
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil
	}
	return out
}
