package httpapi

import (
	"fmt"
	"math/rand"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/internal/importer"
	"github.com/dmtable/encounter-backend/internal/room"
	"github.com/dmtable/encounter-backend/pkg/game"
	"github.com/dmtable/encounter-backend/pkg/types"
)

// GetState is the open read: players refreshing the tracker page hit this
// before their socket connects.
func (a *API) GetState(w http.ResponseWriter, r *http.Request) {
	rm, err := a.roomFor(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	reply := make(chan room.View, 1)
	rm.Inbox() <- room.GetState{Reply: reply}
	select {
	case view := <-reply:
		writeJSON(w, http.StatusOK, types.StateResponse{Version: view.Version, State: view.State})
	case <-r.Context().Done():
		a.writeError(w, apperr.Unavailable("request cancelled"))
	}
}

// ApplyState merges a sparse update. Absent fields are untouched; present
// fields replace the stored value wholesale, arrays included.
func (a *API) ApplyState(w http.ResponseWriter, r *http.Request) {
	var update game.PartialUpdate
	if err := decode(r, &update); err != nil {
		a.writeError(w, err)
		return
	}
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.Apply{Update: update, Reply: reply}
	})
}

func (a *API) BeginCombat(w http.ResponseWriter, r *http.Request) {
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.BeginCombat{Reply: reply}
	})
}

func (a *API) NextTurn(w http.ResponseWriter, r *http.Request) {
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.NextTurn{Reply: reply}
	})
}

func (a *API) ResetCombat(w http.ResponseWriter, r *http.Request) {
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.ResetCombat{Reply: reply}
	})
}

// AddMonster pulls a stat block from the catalog and rolls initiative for
// it: d20 plus the monster's dexterity modifier.
func (a *API) AddMonster(w http.ResponseWriter, r *http.Request) {
	var req types.AddMonsterRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	m, err := a.catalog.Get(r.Context(), req.IndexName)
	if err != nil {
		a.writeError(w, err)
		return
	}
	roll := rand.Intn(20) + 1 + game.Modifier(m.Dex)
	c := m.Combatant("monster-"+uuid.NewString(), roll, req.Nickname)
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.AddCombatant{
			Combatant: c,
			LogLine:   fmt.Sprintf("Added %s to initiative.", c.Name),
			Reply:     reply,
		}
	})
}

// AddPlayer appends a hand-entered character. Players join with initiative
// zero and roll it at the table.
func (a *API) AddPlayer(w http.ResponseWriter, r *http.Request) {
	var req types.AddPlayerRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	if req.Name == "" {
		a.writeError(w, apperr.InvalidArgument("character name is required"))
		return
	}
	c := importer.NewManualCombatant(req.Name, req.Level, req.HP, req.MaxHP, req.AC, req.Stats)
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.AddCombatant{Combatant: c, Reply: reply}
	})
}

// ImportPlayer fetches a character sheet from the external provider and
// appends it to the order.
func (a *API) ImportPlayer(w http.ResponseWriter, r *http.Request) {
	var req types.ImportPlayerRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	if a.provider == nil {
		a.writeError(w, apperr.Unavailable("character import is not configured"))
		return
	}
	sheet, err := a.provider.Fetch(r.Context(), req.SourceID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	c := importer.NewCombatant(sheet, req.SourceID)
	c.SyncEnabled = req.SyncEnabled
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.AddCombatant{Combatant: c, Reply: reply}
	})
}

func (a *API) RemoveCombatant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "combatantID")
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.RemoveCombatant{ID: id, Reply: reply}
	})
}

func (a *API) SetInitiative(w http.ResponseWriter, r *http.Request) {
	var req types.SetInitiativeRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	if req.Initiative < 0 || req.Initiative > 99 {
		a.writeError(w, apperr.InvalidArgument("initiative must be between 0 and 99"))
		return
	}
	id := chi.URLParam(r, "combatantID")
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.SetInitiative{ID: id, Score: req.Initiative, Reply: reply}
	})
}

func (a *API) SetHP(w http.ResponseWriter, r *http.Request) {
	var req types.SetHPRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	if req.HP < 0 {
		a.writeError(w, apperr.InvalidArgument("hit points cannot be negative"))
		return
	}
	id := chi.URLParam(r, "combatantID")
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.SetHP{ID: id, HP: req.HP, Reply: reply}
	})
}

func (a *API) UpdateStats(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateStatsRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	for _, score := range []int{req.Stats.Str, req.Stats.Dex, req.Stats.Con, req.Stats.Int, req.Stats.Wis, req.Stats.Cha} {
		if score < 1 || score > 20 {
			a.writeError(w, apperr.InvalidArgument("ability scores must be between 1 and 20"))
			return
		}
	}
	id := chi.URLParam(r, "combatantID")
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.UpdateStats{ID: id, Stats: req.Stats, Reply: reply}
	})
}

func (a *API) SyncCombatant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "combatantID")
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.SyncCombatant{ID: id, Reply: reply}
	})
}

func (a *API) SetSyncEnabled(w http.ResponseWriter, r *http.Request) {
	var req types.SetSyncEnabledRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	id := chi.URLParam(r, "combatantID")
	a.respondState(w, r, func(reply chan room.Result) room.Msg {
		return room.SetSyncEnabled{ID: id, Enabled: req.Enabled, Reply: reply}
	})
}

// LogDamage records a narration line without touching hit points. The DM
// applies damage separately through the HP endpoint.
func (a *API) LogDamage(w http.ResponseWriter, r *http.Request) {
	var req types.DamageLogRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	rm, err := a.roomFor(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	viewCh := make(chan room.View, 1)
	rm.Inbox() <- room.GetState{Reply: viewCh}
	view := <-viewCh
	idx := view.State.IndexOf(req.TargetID)
	if idx < 0 {
		a.writeError(w, apperr.NotFoundf("combatant %q not in initiative order", req.TargetID))
		return
	}
	target := view.State.InitiativeOrder[idx].Name

	format, args := "%s was hit for %d HP", []any{target, req.Amount}
	if req.Attacker != "" {
		format, args = "%s damaged %s for %d HP", []any{req.Attacker, target, req.Amount}
	}
	res, err := a.ask(r, rm, func(reply chan room.Result) room.Msg {
		return room.AppendLog{Format: format, Args: args, Reply: reply}
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.State)
}
