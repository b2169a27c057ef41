package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmtable/encounter-backend/internal/accounts"
	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/internal/hub"
	"github.com/dmtable/encounter-backend/internal/store"
	"github.com/dmtable/encounter-backend/pkg/types"
)

func (a *API) Signup(w http.ResponseWriter, r *http.Request) {
	var req types.SignupRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	_, token, err := a.auth.Signup(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.TokenResponse{Token: token})
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	_, token, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.TokenResponse{Token: token})
}

func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := accounts.OwnerFromContext(r.Context())
	if !ok {
		a.writeError(w, apperr.Unauthenticated("missing token"))
		return
	}
	acct, err := a.auth.Get(r.Context(), ownerID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.AccountResponse{
		ID: acct.ID, Email: acct.Email, DisplayName: acct.DisplayName,
	})
}

func (a *API) CreateEncounter(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := accounts.OwnerFromContext(r.Context())
	var req types.CreateEncounterRequest
	if err := decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	if req.Name == "" {
		a.writeError(w, apperr.InvalidArgument("encounter name is required"))
		return
	}
	enc, err := a.store.CreateEncounter(r.Context(), ownerID, req.Name)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, encounterResponse(enc))
}

func (a *API) ListEncounters(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := accounts.OwnerFromContext(r.Context())
	encs, err := a.store.ListEncounters(r.Context(), ownerID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]types.EncounterResponse, 0, len(encs))
	for i := range encs {
		out = append(out, encounterResponse(&encs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) GetEncounter(w http.ResponseWriter, r *http.Request) {
	enc, err := a.store.GetEncounter(r.Context(), chi.URLParam(r, "encounterID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encounterResponse(enc))
}

func (a *API) DeleteEncounter(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := accounts.OwnerFromContext(r.Context())
	encounterID := chi.URLParam(r, "encounterID")
	if err := a.store.DeleteEncounter(r.Context(), encounterID, ownerID); err != nil {
		a.writeError(w, err)
		return
	}
	a.hub.Inbox() <- hub.RemoveRoom{EncounterID: encounterID}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) SearchMonsters(w http.ResponseWriter, r *http.Request) {
	found, err := a.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]types.MonsterResponse, 0, len(found))
	for _, m := range found {
		out = append(out, types.MonsterResponse{
			IndexName: m.IndexName, Name: m.Name, Type: m.Type, Size: m.Size,
			Alignment: m.Alignment, ArmorClass: m.ArmorClass, HitPoints: m.HitPoints,
			Speed: m.Speed,
			Str:   m.Str, Dex: m.Dex, Con: m.Con, Int: m.Int, Wis: m.Wis, Cha: m.Cha,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func encounterResponse(enc *store.Encounter) types.EncounterResponse {
	return types.EncounterResponse{
		ID:           enc.ID,
		Name:         enc.Name,
		CreatedAt:    enc.CreatedAt,
		LastActiveAt: enc.LastActiveAt,
	}
}
