package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/pkg/game"
)

// Store is the encounter repository. Deletion is owner-checked here so a
// failed check can never leave a partially deleted encounter behind.
type Store struct {
	db *gorm.DB
}

// Open connects to postgres and runs migrations.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, apperr.Wrap(err, "open database")
	}
	return New(db)
}

// New wraps an existing gorm handle and runs migrations. Tests pass an
// in-memory sqlite handle here.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Encounter{}, &StateRow{}); err != nil {
		return nil, apperr.Wrap(err, "migrate")
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle so sibling stores (accounts, monsters)
// can share one connection.
func (s *Store) DB() *gorm.DB { return s.db }

// CreateEncounter creates an encounter with a fresh default state row.
func (s *Store) CreateEncounter(ctx context.Context, ownerID uint, name string) (*Encounter, error) {
	if name == "" {
		return nil, apperr.InvalidArgument("encounter name is required")
	}
	enc := &Encounter{
		ID:      uuid.NewString(),
		Name:    name,
		OwnerID: ownerID,
	}
	row, err := newStateRow(enc.ID, game.NewState())
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(enc).Error; err != nil {
			return apperr.Wrap(err, "create encounter")
		}
		if err := tx.Create(&row).Error; err != nil {
			return apperr.Wrap(err, "create state row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// ListEncounters returns the owner's encounters, most recent first.
func (s *Store) ListEncounters(ctx context.Context, ownerID uint) ([]Encounter, error) {
	var encs []Encounter
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&encs).Error
	if err != nil {
		return nil, apperr.Wrap(err, "list encounters")
	}
	return encs, nil
}

// GetEncounter fetches one encounter by id.
func (s *Store) GetEncounter(ctx context.Context, id string) (*Encounter, error) {
	var enc Encounter
	err := s.db.WithContext(ctx).First(&enc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("encounter %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "get encounter")
	}
	return &enc, nil
}

// DeleteEncounter removes an encounter and its state. Fails closed: a
// requester who is not the owner gets PermissionDenied and nothing changes.
func (s *Store) DeleteEncounter(ctx context.Context, id string, requesterID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var enc Encounter
		err := tx.First(&enc, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("encounter %s not found", id)
		}
		if err != nil {
			return apperr.Wrap(err, "get encounter")
		}
		if enc.OwnerID != requesterID {
			return apperr.PermissionDenied("only the owner can delete an encounter")
		}
		if err := tx.Delete(&StateRow{}, "encounter_id = ?", id).Error; err != nil {
			return apperr.Wrap(err, "delete state row")
		}
		if err := tx.Delete(&Encounter{}, "id = ?", id).Error; err != nil {
			return apperr.Wrap(err, "delete encounter")
		}
		return nil
	})
}

// GetState loads the full state for an encounter.
func (s *Store) GetState(ctx context.Context, encounterID string) (game.State, error) {
	var row StateRow
	err := s.db.WithContext(ctx).First(&row, "encounter_id = ?", encounterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return game.State{}, apperr.NotFoundf("encounter %s not found", encounterID)
	}
	if err != nil {
		return game.State{}, apperr.Wrap(err, "get state")
	}
	return row.state()
}

// SaveState replaces the persisted state wholesale and touches the
// encounter's last-active stamp.
func (s *Store) SaveState(ctx context.Context, encounterID string, st game.State) error {
	row, err := newStateRow(encounterID, st)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&StateRow{}).Where("encounter_id = ?", encounterID).Updates(map[string]any{
			"active_map":         row.ActiveMap,
			"initiative_order":   row.InitiativeOrder,
			"current_turn_index": row.CurrentTurnIndex,
			"current_round":      row.CurrentRound,
			"combat_started":     row.CombatStarted,
			"turn_start_time":    row.TurnStartTime,
			"log":                row.Log,
		})
		if res.Error != nil {
			return apperr.Wrap(res.Error, "save state")
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("encounter %s not found", encounterID)
		}
		now := time.Now()
		if err := tx.Model(&Encounter{}).Where("id = ?", encounterID).
			Update("last_active_at", now).Error; err != nil {
			return apperr.Wrap(err, "touch encounter")
		}
		return nil
	})
}
