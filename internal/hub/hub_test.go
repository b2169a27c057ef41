package hub

import (
	"context"
	"testing"
	"time"

	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/internal/room"
	"github.com/dmtable/encounter-backend/pkg/game"
)

// memStore holds one saved state per encounter; unknown encounters miss.
type memStore struct {
	states map[string]game.State
}

func newMemStore(ids ...string) *memStore {
	m := &memStore{states: make(map[string]game.State)}
	for _, id := range ids {
		s := game.NewState()
		s.InitiativeOrder = []game.Combatant{
			{ID: id + "-c1", Name: "Seeded", Kind: game.KindMonster, HP: 5, MaxHP: 5},
		}
		m.states[id] = s
	}
	return m
}

func (m *memStore) GetState(_ context.Context, id string) (game.State, error) {
	s, ok := m.states[id]
	if !ok {
		return game.State{}, apperr.NotFoundf("encounter %q not found", id)
	}
	return s, nil
}

func (m *memStore) SaveState(_ context.Context, id string, s game.State) error {
	m.states[id] = s
	return nil
}

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, newMemStore("enc-1"), nil, nil, nil)

	reply := make(chan EnsureReply, 1)
	h.Inbox() <- EnsureRoom{EncounterID: "enc-1", Reply: reply}
	first := <-reply
	if first.Err != nil {
		t.Fatalf("ensure: unexpected error: %v", first.Err)
	}

	getReply := make(chan *room.Room, 1)
	h.Inbox() <- GetRoom{EncounterID: "enc-1", Reply: getReply}
	second := <-getReply

	if first.Room == nil || second == nil || first.Room != second {
		t.Fatalf("expected same room pointer")
	}
}

func TestHub_Ensure_UnknownEncounterFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, newMemStore(), nil, nil, nil)

	reply := make(chan EnsureReply, 1)
	h.Inbox() <- EnsureRoom{EncounterID: "nope", Reply: reply}
	res := <-reply
	if apperr.CodeOf(res.Err) != apperr.CodeNotFound {
		t.Fatalf("want not-found, got %v", res.Err)
	}
	if res.Room != nil {
		t.Fatalf("no room should be created for a missing encounter")
	}
}

func TestHub_RoomsAreIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, newMemStore("enc-a", "enc-b"), nil, nil, nil)

	replyA := make(chan EnsureReply, 1)
	h.Inbox() <- EnsureRoom{EncounterID: "enc-a", Reply: replyA}
	roomA := (<-replyA).Room

	replyB := make(chan EnsureReply, 1)
	h.Inbox() <- EnsureRoom{EncounterID: "enc-b", Reply: replyB}
	roomB := (<-replyB).Room

	outA := make(chan room.Snapshot, 4)
	roomA.Inbox() <- room.Join{ClientID: "watcher", Role: room.RolePlayer, Outbox: outA}
	<-outA // join snapshot

	// A mutation in room B must never reach room A's subscriber.
	mapName := "Sunless Citadel"
	done := make(chan room.Result, 1)
	roomB.Inbox() <- room.Apply{Update: game.PartialUpdate{ActiveMap: &mapName}, Reply: done}
	<-done

	select {
	case snap := <-outA:
		t.Fatalf("room A subscriber got room B's update: %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_RemoveRoom_ClosesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, newMemStore("enc-1"), nil, nil, nil)

	reply := make(chan EnsureReply, 1)
	h.Inbox() <- EnsureRoom{EncounterID: "enc-1", Reply: reply}
	r := (<-reply).Room

	out := make(chan room.Snapshot, 2)
	r.Inbox() <- room.Join{ClientID: "watcher", Role: room.RolePlayer, Outbox: out}
	<-out

	h.Inbox() <- RemoveRoom{EncounterID: "enc-1"}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected outbox close, got a snapshot")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("outbox was not closed after room removal")
	}

	getReply := make(chan *room.Room, 1)
	h.Inbox() <- GetRoom{EncounterID: "enc-1", Reply: getReply}
	if got := <-getReply; got != nil {
		t.Fatalf("room should be forgotten after removal")
	}
}
