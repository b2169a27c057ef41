package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dmtable/encounter-backend/internal/accounts"
	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/internal/hub"
	"github.com/dmtable/encounter-backend/internal/room"
	"github.com/dmtable/encounter-backend/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	status := http.StatusInternalServerError
	message := "internal error"
	if errors.As(err, &e) {
		status = e.HTTPStatus()
		message = e.Message
	}
	if status >= 500 {
		a.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, types.ErrorResponse{Error: message})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.InvalidArgument("malformed request body")
	}
	return nil
}

// requireOwner rejects encounter mutations from anyone but the owner.
func (a *API) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := accounts.OwnerFromContext(r.Context())
		if !ok {
			a.writeError(w, apperr.Unauthenticated("missing token"))
			return
		}
		enc, err := a.store.GetEncounter(r.Context(), chi.URLParam(r, "encounterID"))
		if err != nil {
			a.writeError(w, err)
			return
		}
		if enc.OwnerID != ownerID {
			a.writeError(w, apperr.PermissionDenied("you do not run this encounter"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// roomFor returns the live room for the encounter in the URL, starting it
// from the saved state if needed.
func (a *API) roomFor(r *http.Request) (*room.Room, error) {
	reply := make(chan hub.EnsureReply, 1)
	a.hub.Inbox() <- hub.EnsureRoom{EncounterID: chi.URLParam(r, "encounterID"), Reply: reply}
	ensured := <-reply
	return ensured.Room, ensured.Err
}

// ask sends one mutating message to the room and waits for the committed
// state, honoring request cancellation.
func (a *API) ask(r *http.Request, rm *room.Room, build func(chan room.Result) room.Msg) (room.Result, error) {
	reply := make(chan room.Result, 1)
	rm.Inbox() <- build(reply)
	select {
	case res := <-reply:
		return res, res.Err
	case <-r.Context().Done():
		return room.Result{}, apperr.Unavailable("request cancelled")
	}
}

// respondState is the common happy path: every mutation answers with the
// full committed state, mirroring what the websocket broadcasts.
func (a *API) respondState(w http.ResponseWriter, r *http.Request, build func(chan room.Result) room.Msg) {
	rm, err := a.roomFor(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	res, err := a.ask(r, rm, build)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.State)
}
