// Package ws upgrades HTTP requests to the per-encounter broadcast socket.
// The socket is read-mostly: the server pushes versioned state snapshots,
// and the only inbound traffic is keepalive pings.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmtable/encounter-backend/internal/accounts"
	"github.com/dmtable/encounter-backend/internal/hub"
	"github.com/dmtable/encounter-backend/internal/room"
	"github.com/dmtable/encounter-backend/internal/store"
	"github.com/dmtable/encounter-backend/pkg/types"
)

// Handler joins the caller to an encounter's room. A valid token belonging
// to the encounter's owner subscribes as DM; everyone else is a player.
// Role only affects what the REST layer will allow, not what is broadcast.
func Handler(h *hub.Hub, auth *accounts.Service, st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		encounterID := r.URL.Query().Get("encounter")
		if encounterID == "" {
			http.Error(w, "missing encounter", http.StatusBadRequest)
			return
		}

		enc, err := st.GetEncounter(r.Context(), encounterID)
		if err != nil {
			http.Error(w, "encounter not found", http.StatusNotFound)
			return
		}

		role := room.RolePlayer
		if token := accounts.BearerToken(r); token != "" {
			if ownerID, err := auth.Verify(token); err == nil && ownerID == enc.OwnerID {
				role = room.RoleDM
			}
		}

		reply := make(chan hub.EnsureReply, 1)
		h.Inbox() <- hub.EnsureRoom{EncounterID: encounterID, Reply: reply}
		ensured := <-reply
		if ensured.Err != nil {
			http.Error(w, "encounter not found", http.StatusNotFound)
			return
		}
		rm := ensured.Room

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan room.Snapshot, 8)
		clientID := uuid.NewString()

		rm.Inbox() <- room.Join{ClientID: clientID, Role: role, Outbox: out}
		defer func() { rm.Inbox() <- room.Leave{ClientID: clientID} }()

		log.Debug("client subscribed",
			zap.String("encounter_id", encounterID),
			zap.String("client_id", clientID),
			zap.String("role", string(role)))

		// Writer goroutine: drains the outbox until the room closes it.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: "state_update", Version: snap.Version, State: &snap.State}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop: mutations go over REST, so inbound frames are only
		// keepalives and close detection.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil || cm.Type != "ping" {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"error","error":"unexpected message"}`))
				continue
			}
		}
	}
}
