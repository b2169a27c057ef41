// Package hub owns the map of live encounter rooms. All access goes through
// the hub actor's inbox, so two requests for the same encounter always land
// on the same room.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/dmtable/encounter-backend/internal/clock"
	"github.com/dmtable/encounter-backend/internal/importer"
	"github.com/dmtable/encounter-backend/internal/room"
	"github.com/dmtable/encounter-backend/pkg/game"
)

// Store is what the hub needs from persistence: the saved state to seed a
// room on first access, and the sink each room commits to.
type Store interface {
	room.Persister
	GetState(ctx context.Context, encounterID string) (game.State, error)
}

type HubMsg interface{ isHubMsg() }

// EnsureRoom returns the live room for an encounter, loading its saved
// state and starting the actor if this is the first access.
type EnsureRoom struct {
	EncounterID string
	Reply       chan EnsureReply
}

type EnsureReply struct {
	Room *room.Room
	Err  error
}

// GetRoom returns the live room, or nil if none is running.
type GetRoom struct {
	EncounterID string
	Reply       chan *room.Room
}

// RemoveRoom shuts down and forgets a room, typically after its encounter
// is deleted.
type RemoveRoom struct{ EncounterID string }

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox    chan HubMsg
	rooms    map[string]*room.Room
	store    Store
	provider importer.Provider
	clk      clock.Clock
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, store Store, provider importer.Provider, clk clock.Clock, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		rooms:    make(map[string]*room.Room),
		store:    store,
		provider: provider,
		clk:      clk,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if r := h.rooms[msg.EncounterID]; r != nil {
					msg.Reply <- EnsureReply{Room: r}
					break
				}
				initial, err := h.store.GetState(h.ctx, msg.EncounterID)
				if err != nil {
					msg.Reply <- EnsureReply{Err: err}
					break
				}
				r := room.New(h.ctx, room.Config{
					EncounterID: msg.EncounterID,
					Initial:     initial,
					Persister:   h.store,
					Provider:    h.provider,
					Clock:       h.clk,
					Logger:      h.log,
				})
				h.rooms[msg.EncounterID] = r
				msg.Reply <- EnsureReply{Room: r}

			case GetRoom:
				msg.Reply <- h.rooms[msg.EncounterID] // may be nil

			case RemoveRoom:
				if r := h.rooms[msg.EncounterID]; r != nil {
					r.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.EncounterID)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, r := range h.rooms {
		r.Inbox() <- room.Shutdown{}
	}
	clear(h.rooms)
	h.cancel()
}
