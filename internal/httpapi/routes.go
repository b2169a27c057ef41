// Package httpapi is the REST surface. Reads are open; mutations require a
// token and, for encounter state, ownership of the encounter. All state
// changes are forwarded to the encounter's room so websocket subscribers see
// them in commit order.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dmtable/encounter-backend/internal/accounts"
	"github.com/dmtable/encounter-backend/internal/hub"
	"github.com/dmtable/encounter-backend/internal/importer"
	"github.com/dmtable/encounter-backend/internal/monsters"
	"github.com/dmtable/encounter-backend/internal/store"
	"github.com/dmtable/encounter-backend/internal/ws"
)

type API struct {
	store    *store.Store
	auth     *accounts.Service
	hub      *hub.Hub
	catalog  *monsters.Catalog
	provider importer.Provider
	log      *zap.Logger
}

func New(st *store.Store, auth *accounts.Service, h *hub.Hub, catalog *monsters.Catalog, provider importer.Provider, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{store: st, auth: auth, hub: h, catalog: catalog, provider: provider, log: log}
}

func (a *API) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(a.hub, a.auth, a.store, a.log))
	r.Post("/api/auth/signup", a.Signup)
	r.Post("/api/auth/login", a.Login)
	r.Get("/api/monsters", a.SearchMonsters)
	r.Get("/api/encounters/{encounterID}/state", a.GetState)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(a.auth.Middleware)

		r.Get("/api/auth/me", a.Me)
		r.Post("/api/encounters", a.CreateEncounter)
		r.Get("/api/encounters", a.ListEncounters)

		// Encounter mutations are owner-only.
		r.Route("/api/encounters/{encounterID}", func(r chi.Router) {
			r.Use(a.requireOwner)

			r.Get("/", a.GetEncounter)
			r.Delete("/", a.DeleteEncounter)
			r.Post("/state", a.ApplyState)
			r.Post("/turn/begin", a.BeginCombat)
			r.Post("/turn/next", a.NextTurn)
			r.Post("/turn/reset", a.ResetCombat)
			r.Post("/log/damage", a.LogDamage)
			r.Post("/combatants/monster", a.AddMonster)
			r.Post("/combatants/player", a.AddPlayer)
			r.Post("/combatants/import", a.ImportPlayer)

			r.Route("/combatants/{combatantID}", func(r chi.Router) {
				r.Delete("/", a.RemoveCombatant)
				r.Post("/initiative", a.SetInitiative)
				r.Post("/hp", a.SetHP)
				r.Post("/stats", a.UpdateStats)
				r.Post("/sync", a.SyncCombatant)
				r.Post("/sync-enabled", a.SetSyncEnabled)
			})
		})
	})

	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
