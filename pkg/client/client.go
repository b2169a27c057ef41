// Package client is the Go client for the encounter server: a thin REST
// wrapper, a websocket subscription, and debounced editors for the controls
// that fire on every keystroke.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/dmtable/encounter-backend/pkg/game"
	"github.com/dmtable/encounter-backend/pkg/types"
)

// ErrTurnInFlight is returned when a turn change is requested while the
// previous one has not come back yet. Rapid clicks on the next-turn button
// must not advance twice.
var ErrTurnInFlight = errors.New("turn change already in flight")

type Client struct {
	baseURL     string
	token       string
	http        *http.Client
	turnPending atomic.Bool
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken attaches a bearer token to subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Signup(ctx context.Context, email, password, displayName string) error {
	var out types.TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signup",
		types.SignupRequest{Email: email, Password: password, DisplayName: displayName}, &out)
	if err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	var out types.TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		types.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

func (c *Client) Me(ctx context.Context) (types.AccountResponse, error) {
	var out types.AccountResponse
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out, err
}

func (c *Client) CreateEncounter(ctx context.Context, name string) (types.EncounterResponse, error) {
	var out types.EncounterResponse
	err := c.do(ctx, http.MethodPost, "/api/encounters", types.CreateEncounterRequest{Name: name}, &out)
	return out, err
}

func (c *Client) ListEncounters(ctx context.Context) ([]types.EncounterResponse, error) {
	var out []types.EncounterResponse
	err := c.do(ctx, http.MethodGet, "/api/encounters", nil, &out)
	return out, err
}

func (c *Client) GetEncounter(ctx context.Context, encounterID string) (types.EncounterResponse, error) {
	var out types.EncounterResponse
	err := c.do(ctx, http.MethodGet, "/api/encounters/"+encounterID, nil, &out)
	return out, err
}

func (c *Client) DeleteEncounter(ctx context.Context, encounterID string) error {
	return c.do(ctx, http.MethodDelete, "/api/encounters/"+encounterID, nil, nil)
}

func (c *Client) State(ctx context.Context, encounterID string) (types.StateResponse, error) {
	var out types.StateResponse
	err := c.do(ctx, http.MethodGet, "/api/encounters/"+encounterID+"/state", nil, &out)
	return out, err
}

func (c *Client) SearchMonsters(ctx context.Context, query string) ([]types.MonsterResponse, error) {
	var out []types.MonsterResponse
	err := c.do(ctx, http.MethodGet, "/api/monsters?q="+query, nil, &out)
	return out, err
}

func (c *Client) ApplyState(ctx context.Context, encounterID string, update game.PartialUpdate) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost, "/api/encounters/"+encounterID+"/state", update, &out)
	return out, err
}

// NextTurn advances the turn, or begins combat on the first call. Only one
// turn change may be in flight at a time.
func (c *Client) NextTurn(ctx context.Context, encounterID string) (game.State, error) {
	if !c.turnPending.CompareAndSwap(false, true) {
		return game.State{}, ErrTurnInFlight
	}
	defer c.turnPending.Store(false)
	var out game.State
	err := c.do(ctx, http.MethodPost, "/api/encounters/"+encounterID+"/turn/next", nil, &out)
	return out, err
}

func (c *Client) BeginCombat(ctx context.Context, encounterID string) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost, "/api/encounters/"+encounterID+"/turn/begin", nil, &out)
	return out, err
}

func (c *Client) ResetCombat(ctx context.Context, encounterID string) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost, "/api/encounters/"+encounterID+"/turn/reset", nil, &out)
	return out, err
}

func (c *Client) AddMonster(ctx context.Context, encounterID, indexName, nickname string) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost, "/api/encounters/"+encounterID+"/combatants/monster",
		types.AddMonsterRequest{IndexName: indexName, Nickname: nickname}, &out)
	return out, err
}

func (c *Client) AddPlayer(ctx context.Context, encounterID string, req types.AddPlayerRequest) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost, "/api/encounters/"+encounterID+"/combatants/player", req, &out)
	return out, err
}

func (c *Client) ImportPlayer(ctx context.Context, encounterID, sourceID string, syncEnabled bool) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost, "/api/encounters/"+encounterID+"/combatants/import",
		types.ImportPlayerRequest{SourceID: sourceID, SyncEnabled: syncEnabled}, &out)
	return out, err
}

func (c *Client) RemoveCombatant(ctx context.Context, encounterID, combatantID string) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodDelete,
		"/api/encounters/"+encounterID+"/combatants/"+combatantID, nil, &out)
	return out, err
}

func (c *Client) SetInitiative(ctx context.Context, encounterID, combatantID string, score int) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost,
		"/api/encounters/"+encounterID+"/combatants/"+combatantID+"/initiative",
		types.SetInitiativeRequest{Initiative: score}, &out)
	return out, err
}

func (c *Client) SetHP(ctx context.Context, encounterID, combatantID string, hp int) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost,
		"/api/encounters/"+encounterID+"/combatants/"+combatantID+"/hp",
		types.SetHPRequest{HP: hp}, &out)
	return out, err
}

func (c *Client) UpdateStats(ctx context.Context, encounterID, combatantID string, stats game.Stats) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost,
		"/api/encounters/"+encounterID+"/combatants/"+combatantID+"/stats",
		types.UpdateStatsRequest{Stats: stats}, &out)
	return out, err
}

func (c *Client) SyncCombatant(ctx context.Context, encounterID, combatantID string) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost,
		"/api/encounters/"+encounterID+"/combatants/"+combatantID+"/sync", nil, &out)
	return out, err
}

func (c *Client) SetSyncEnabled(ctx context.Context, encounterID, combatantID string, enabled bool) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost,
		"/api/encounters/"+encounterID+"/combatants/"+combatantID+"/sync-enabled",
		types.SetSyncEnabledRequest{Enabled: enabled}, &out)
	return out, err
}

func (c *Client) LogDamage(ctx context.Context, encounterID string, req types.DamageLogRequest) (game.State, error) {
	var out game.State
	err := c.do(ctx, http.MethodPost, "/api/encounters/"+encounterID+"/log/damage", req, &out)
	return out, err
}

// Subscribe opens the broadcast socket and calls onState for every pushed
// snapshot, replacing local state wholesale. It blocks until ctx is
// cancelled or the connection drops.
func (c *Client) Subscribe(ctx context.Context, encounterID string, onState func(version int, s game.State)) error {
	url := c.baseURL + "/ws?encounter=" + encounterID
	if c.token != "" {
		url += "&token=" + c.token
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var msg types.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "state_update" && msg.State != nil {
			onState(msg.Version, *msg.State)
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr types.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
