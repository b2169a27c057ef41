// Package room runs one actor per live encounter. Every mutation for an
// encounter flows through its room's inbox and is processed to completion
// (merge -> persist -> broadcast) before the next is accepted, which is why
// no locking exists around the state. Subscribers receive every committed
// state in commit order.
package room

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dmtable/encounter-backend/internal/apperr"
	"github.com/dmtable/encounter-backend/internal/clock"
	"github.com/dmtable/encounter-backend/internal/importer"
	"github.com/dmtable/encounter-backend/pkg/game"
)

// Role tags a subscription's capability. Only the httpapi layer enforces it;
// the room broadcasts the same state to everyone.
type Role string

const (
	RoleDM     Role = "dm"
	RolePlayer Role = "player"
)

// Snapshot is one committed state, versioned per room.
type Snapshot struct {
	Version int
	State   game.State
}

// Result is the reply to any mutating message.
type Result struct {
	State game.State
	Err   error
}

type Msg interface{ isRoomMsg() }

// Join registers a subscriber. The current snapshot is sent immediately.
type Join struct {
	ClientID string
	Role     Role
	Outbox   chan Snapshot
}

type Leave struct{ ClientID string }

// Apply merges a sparse update into the state (whole-field replacement).
type Apply struct {
	Update game.PartialUpdate
	Reply  chan Result
}

// AddCombatant appends a combatant, applying numbering and sort rules.
type AddCombatant struct {
	Combatant game.Combatant
	LogLine   string
	Reply     chan Result
}

// RemoveCombatant deletes a combatant and re-targets the turn cursor.
type RemoveCombatant struct {
	ID    string
	Reply chan Result
}

// SetInitiative rewrites one combatant's score; no-op during combat.
type SetInitiative struct {
	ID    string
	Score int
	Reply chan Result
}

// SetHP rewrites one combatant's current hit points.
type SetHP struct {
	ID    string
	HP    int
	Reply chan Result
}

// SetSyncEnabled toggles provider sync for an imported player.
type SetSyncEnabled struct {
	ID      string
	Enabled bool
	Reply   chan Result
}

// UpdateStats replaces a manual player's ability scores and re-derives
// passive perception.
type UpdateStats struct {
	ID    string
	Stats game.Stats
	Reply chan Result
}

// SyncCombatant pulls fresh HP from the import provider right now. Unlike
// the turn-advance side effect, failures here surface to the caller.
type SyncCombatant struct {
	ID    string
	Reply chan Result
}

// NextTurn begins combat if it hasn't started, otherwise advances the turn.
type NextTurn struct{ Reply chan Result }

// BeginCombat explicitly starts combat; a no-op once started.
type BeginCombat struct{ Reply chan Result }

// ResetCombat returns the encounter to setup.
type ResetCombat struct{ Reply chan Result }

// AppendLog adds one timestamped narration line.
type AppendLog struct {
	Format string
	Args   []any
	Reply  chan Result
}

// GetState reflects the room's state without racing the loop.
type GetState struct{ Reply chan View }

type View struct {
	Version    int
	NumClients int
	State      game.State
}

type Shutdown struct{}

func (Join) isRoomMsg()            {}
func (Leave) isRoomMsg()           {}
func (Apply) isRoomMsg()           {}
func (AddCombatant) isRoomMsg()    {}
func (RemoveCombatant) isRoomMsg() {}
func (SetInitiative) isRoomMsg()   {}
func (SetHP) isRoomMsg()           {}
func (SetSyncEnabled) isRoomMsg()  {}
func (UpdateStats) isRoomMsg()     {}
func (SyncCombatant) isRoomMsg()   {}
func (NextTurn) isRoomMsg()        {}
func (BeginCombat) isRoomMsg()     {}
func (ResetCombat) isRoomMsg()     {}
func (AppendLog) isRoomMsg()       {}
func (GetState) isRoomMsg()        {}
func (Shutdown) isRoomMsg()        {}

// Persister saves a committed state. The room never broadcasts a state that
// failed to persist.
type Persister interface {
	SaveState(ctx context.Context, encounterID string, s game.State) error
}

type subscriber struct {
	role   Role
	outbox chan Snapshot
}

// Room is the per-encounter actor.
type Room struct {
	encounterID string
	inbox       chan Msg
	state       game.State
	version     int
	clients     map[string]subscriber
	persist     Persister
	provider    importer.Provider
	clk         clock.Clock
	log         *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// Config assembles a room's collaborators.
type Config struct {
	EncounterID string
	Initial     game.State
	Persister   Persister
	Provider    importer.Provider
	Clock       clock.Clock
	Logger      *zap.Logger
}

func New(parent context.Context, cfg Config) *Room {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := &Room{
		encounterID: cfg.EncounterID,
		inbox:       make(chan Msg, 64),
		state:       cfg.Initial,
		clients:     make(map[string]subscriber),
		persist:     cfg.Persister,
		provider:    cfg.Provider,
		clk:         cfg.Clock,
		log:         cfg.Logger.With(zap.String("encounter_id", cfg.EncounterID)),
		ctx:         ctx,
		cancel:      cancel,
	}
	go r.loop()
	return r
}

// Inbox exposes the message channel to the transport layers and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = subscriber{role: msg.Role, outbox: msg.Outbox}
				msg.Outbox <- Snapshot{Version: r.version, State: r.state}

			case Leave:
				if sub, ok := r.clients[msg.ClientID]; ok {
					close(sub.outbox)
					delete(r.clients, msg.ClientID)
				}

			case Apply:
				r.commit(r.state.Merge(msg.Update), msg.Reply)

			case AddCombatant:
				next := r.state.AddCombatant(msg.Combatant)
				if msg.LogLine != "" {
					next = game.AppendLog(next, r.clk.Now(), "%s", msg.LogLine)
				}
				r.commit(next, msg.Reply)

			case RemoveCombatant:
				r.commit(r.state.RemoveCombatant(msg.ID), msg.Reply)

			case SetInitiative:
				r.commit(r.state.SetInitiative(msg.ID, msg.Score), msg.Reply)

			case SetHP:
				r.commit(r.withCombatant(msg.ID, func(c *game.Combatant) {
					c.HP = msg.HP
				}), msg.Reply)

			case SetSyncEnabled:
				r.commit(r.withCombatant(msg.ID, func(c *game.Combatant) {
					c.SyncEnabled = msg.Enabled
				}), msg.Reply)

			case UpdateStats:
				r.commit(r.withCombatant(msg.ID, func(c *game.Combatant) {
					c.Stats = msg.Stats
					c.PassivePerception = game.PassivePerception(msg.Stats)
				}), msg.Reply)

			case SyncCombatant:
				r.handleSyncNow(msg)

			case NextTurn:
				if r.state.CombatStarted {
					r.handleTurn(game.AdvanceTurn, true, msg.Reply)
				} else {
					r.handleTurn(game.BeginCombat, false, msg.Reply)
				}

			case BeginCombat:
				r.handleTurn(game.BeginCombat, false, msg.Reply)

			case ResetCombat:
				r.commit(game.Reset(r.state), msg.Reply)

			case AppendLog:
				r.commit(game.AppendLog(r.state, r.clk.Now(), msg.Format, msg.Args...), msg.Reply)

			case GetState:
				msg.Reply <- View{Version: r.version, NumClients: len(r.clients), State: r.state}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

// commit persists next and, on success, makes it current and broadcasts.
// On failure the old state stands and the error goes back to the caller.
func (r *Room) commit(next game.State, reply chan Result) {
	if err := r.persist.SaveState(r.ctx, r.encounterID, next); err != nil {
		r.log.Error("persist failed", zap.Error(err))
		if reply != nil {
			reply <- Result{State: r.state, Err: err}
		}
		return
	}
	r.state = next
	r.version++
	snap := Snapshot{Version: r.version, State: r.state}
	r.broadcast(snap)
	if reply != nil {
		reply <- Result{State: r.state}
	}
}

// handleTurn runs one turn-engine transition. Guarded no-ops reply with the
// unchanged state and no error; the provider side effect is best-effort and
// never blocks the transition. logSync narrates a successful refresh in the
// combat log, which happens on turn advance but not on combat start.
func (r *Room) handleTurn(transition func(game.State, time.Time) (game.State, *game.Combatant, bool), logSync bool, reply chan Result) {
	now := r.clk.Now()
	next, syncTarget, ok := transition(r.state, now)
	if !ok {
		if reply != nil {
			reply <- Result{State: r.state}
		}
		return
	}
	if syncTarget != nil && r.provider != nil {
		if updated, synced := r.refreshHP(next, *syncTarget); synced {
			next = updated
			if logSync {
				next = game.AppendLog(next, now, "%s synced from %s", syncTarget.Name, r.provider.Label())
			}
		}
	}
	r.commit(next, reply)
}

// refreshHP pulls fresh hit points for the combatant and folds them into s.
// Failures are logged and swallowed.
func (r *Room) refreshHP(s game.State, target game.Combatant) (game.State, bool) {
	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()
	hp, maxHP, err := r.provider.Refresh(ctx, target.SourceID)
	if err != nil {
		r.log.Warn("combatant sync failed",
			zap.String("combatant_id", target.ID), zap.Error(err))
		return s, false
	}
	out := s
	order := make([]game.Combatant, len(s.InitiativeOrder))
	copy(order, s.InitiativeOrder)
	for i := range order {
		if order[i].ID == target.ID {
			order[i].HP = hp
			order[i].MaxHP = maxHP
		}
	}
	out.InitiativeOrder = order
	return out, true
}

// handleSyncNow is the explicit "refresh this combatant" request; unlike the
// turn side effect its failure is reported to the caller.
func (r *Room) handleSyncNow(msg SyncCombatant) {
	idx := r.state.IndexOf(msg.ID)
	if idx < 0 {
		msg.Reply <- Result{State: r.state, Err: errNotFound(msg.ID)}
		return
	}
	target := r.state.InitiativeOrder[idx]
	if !target.SyncEligible() {
		msg.Reply <- Result{State: r.state, Err: errNotImported(msg.ID)}
		return
	}
	if r.provider == nil {
		msg.Reply <- Result{State: r.state, Err: apperr.Unavailable("character import is not configured")}
		return
	}
	ctx, cancel := context.WithTimeout(r.ctx, 10*time.Second)
	defer cancel()
	hp, maxHP, err := r.provider.Refresh(ctx, target.SourceID)
	if err != nil {
		msg.Reply <- Result{State: r.state, Err: err}
		return
	}
	next := r.withCombatant(msg.ID, func(c *game.Combatant) {
		c.HP = hp
		c.MaxHP = maxHP
	})
	r.commit(next, msg.Reply)
}

// withCombatant returns a state with one combatant rewritten in place.
func (r *Room) withCombatant(id string, fn func(*game.Combatant)) game.State {
	out := r.state
	order := make([]game.Combatant, len(r.state.InitiativeOrder))
	copy(order, r.state.InitiativeOrder)
	for i := range order {
		if order[i].ID == id {
			fn(&order[i])
		}
	}
	out.InitiativeOrder = order
	return out
}

func (r *Room) broadcast(snap Snapshot) {
	for id, sub := range r.clients {
		select {
		case sub.outbox <- snap:
		default:
			// Subscriber is not draining; drop it rather than stall the room.
			close(sub.outbox)
			delete(r.clients, id)
		}
	}
}

func errNotFound(id string) error {
	return apperr.NotFoundf("combatant %q not in initiative order", id)
}

func errNotImported(id string) error {
	return apperr.Newf(apperr.CodeInvalidArgument, "combatant %q is not an imported character with sync enabled", id)
}

func (r *Room) shutdown() {
	for id, sub := range r.clients {
		close(sub.outbox)
		delete(r.clients, id)
	}
	r.cancel()
}
