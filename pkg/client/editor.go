package client

import (
	"context"
	"sync"
	"time"

	"github.com/dmtable/encounter-backend/pkg/game"
)

// Edit windows, tuned per control. Initiative fields are typed digit by
// digit, so they get the longest window; HP nudges are spinner clicks and
// commit almost immediately.
const (
	initiativeWindow = 1500 * time.Millisecond
	hpWindow         = 300 * time.Millisecond
	statsWindow      = 500 * time.Millisecond
)

// Editor debounces per-combatant edits and clamps them to legal ranges
// before they reach the server. Each combatant and control gets its own
// debounce window, so editing two monsters at once never coalesces.
type Editor struct {
	client      *Client
	encounterID string
	onError     func(error)

	mu         sync.Mutex
	debouncers map[string]*Debouncer
}

// NewEditor wraps c for one encounter. onError receives commit failures;
// nil means they are dropped.
func NewEditor(c *Client, encounterID string, onError func(error)) *Editor {
	if onError == nil {
		onError = func(error) {}
	}
	return &Editor{
		client:      c,
		encounterID: encounterID,
		onError:     onError,
		debouncers:  make(map[string]*Debouncer),
	}
}

// SetInitiative stages an initiative edit, clamped to 0 through 99.
func (e *Editor) SetInitiative(combatantID string, score int) {
	score = clamp(score, 0, 99)
	e.stage("initiative/"+combatantID, initiativeWindow, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := e.client.SetInitiative(ctx, e.encounterID, combatantID, score); err != nil {
			e.onError(err)
		}
	})
}

// SetHP stages a hit-point edit, clamped to 0 through maxHP.
func (e *Editor) SetHP(combatantID string, hp, maxHP int) {
	hp = clamp(hp, 0, maxHP)
	e.stage("hp/"+combatantID, hpWindow, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := e.client.SetHP(ctx, e.encounterID, combatantID, hp); err != nil {
			e.onError(err)
		}
	})
}

// SetStats stages an ability-score edit, each score clamped to 1 through 20.
func (e *Editor) SetStats(combatantID string, stats game.Stats) {
	stats.Str = clamp(stats.Str, 1, 20)
	stats.Dex = clamp(stats.Dex, 1, 20)
	stats.Con = clamp(stats.Con, 1, 20)
	stats.Int = clamp(stats.Int, 1, 20)
	stats.Wis = clamp(stats.Wis, 1, 20)
	stats.Cha = clamp(stats.Cha, 1, 20)
	e.stage("stats/"+combatantID, statsWindow, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := e.client.UpdateStats(ctx, e.encounterID, combatantID, stats); err != nil {
			e.onError(err)
		}
	})
}

// Flush commits every staged edit immediately.
func (e *Editor) Flush() {
	e.mu.Lock()
	pending := make([]*Debouncer, 0, len(e.debouncers))
	for _, d := range e.debouncers {
		pending = append(pending, d)
	}
	e.mu.Unlock()
	for _, d := range pending {
		d.Flush()
	}
}

func (e *Editor) stage(key string, window time.Duration, commit func()) {
	e.mu.Lock()
	d, ok := e.debouncers[key]
	if !ok {
		d = NewDebouncer(window)
		e.debouncers[key] = d
	}
	e.mu.Unlock()
	d.Set(commit)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
