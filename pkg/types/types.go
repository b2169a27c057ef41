// Package types holds the wire contract shared by the server and the Go
// client: the websocket envelope plus the REST request and response bodies.
package types

import (
	"time"

	"github.com/dmtable/encounter-backend/pkg/game"
)

// ServerMessage is the websocket envelope. Every committed state change is
// pushed as a "state_update" with a monotonically increasing version.
type ServerMessage struct {
	Type    string      `json:"type"` // "state_update" | "error"
	Version int         `json:"version,omitempty"`
	State   *game.State `json:"state,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ClientMessage is what a websocket client may send. The socket is a
// broadcast channel; mutations go over REST, so only keepalives arrive here.
type ClientMessage struct {
	Type string `json:"type"` // "ping"
}

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type AccountResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type CreateEncounterRequest struct {
	Name string `json:"name"`
}

type EncounterResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActiveAt *time.Time `json:"lastActiveAt,omitempty"`
}

// StateResponse wraps a committed state with its broadcast version so REST
// readers can position themselves relative to the socket stream.
type StateResponse struct {
	Version int        `json:"version"`
	State   game.State `json:"state"`
}

type MonsterResponse struct {
	IndexName     string `json:"indexName"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Size          string `json:"size"`
	Alignment     string `json:"alignment"`
	ArmorClass    int    `json:"armorClass"`
	HitPoints     int    `json:"hitPoints"`
	Speed         string `json:"speed"`
	Str           int    `json:"str"`
	Dex           int    `json:"dex"`
	Con           int    `json:"con"`
	Int           int    `json:"int"`
	Wis           int    `json:"wis"`
	Cha           int    `json:"cha"`
}

type AddMonsterRequest struct {
	IndexName string `json:"indexName"`
	Nickname  string `json:"nickname,omitempty"`
}

type AddPlayerRequest struct {
	Name  string     `json:"name"`
	Level int        `json:"level"`
	HP    int        `json:"hp"`
	MaxHP int        `json:"maxHp"`
	AC    int        `json:"ac"`
	Stats game.Stats `json:"stats"`
}

type ImportPlayerRequest struct {
	SourceID    string `json:"sourceId"`
	SyncEnabled bool   `json:"syncEnabled"`
}

type SetInitiativeRequest struct {
	Initiative int `json:"initiative"`
}

type SetHPRequest struct {
	HP int `json:"hp"`
}

type SetSyncEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

type UpdateStatsRequest struct {
	Stats game.Stats `json:"stats"`
}

// DamageLogRequest records a narration line. Attacker is optional; without
// it the line only names the target.
type DamageLogRequest struct {
	TargetID string `json:"targetId"`
	Amount   int    `json:"amount"`
	Attacker string `json:"attacker,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
