package server

import "cardtable-server/internal/engine"

// ============================================================================
// ERRORS
// ============================================================================

type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// RULES (list_rules)
// ============================================================================

type RulesSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MinPlayers  int    `json:"minPlayers"`
	MaxPlayers  int    `json:"maxPlayers"`
}

type ListRulesResponse struct {
	Rules []RulesSummary `json:"rules"`
}

// ============================================================================
// CREATE / JOIN / RECONNECT
// ============================================================================

type CreateGameRequest struct {
	Rules    string `json:"rules"`
	Username string `json:"username"`
}

type CreateGameResponse struct {
	RoomCode string `json:"roomCode"`
	Token    string `json:"token"`
	PlayerID string `json:"playerId"`
}

type JoinGameRequest struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type JoinGameResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token"`
	PlayerID string `json:"playerId"`
}

type ReconnectRequest struct {
	Token string `json:"token"`
}

type ReconnectResponse struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	Status   string `json:"status"`
}

// ============================================================================
// LOBBY (lobby_update broadcast)
// ============================================================================

type LobbyState struct {
	RoomCode   string        `json:"roomCode"`
	Rules      string        `json:"rules"`
	Players    []LobbyPlayer `json:"players"`
	MinPlayers int           `json:"minPlayers"`
	MaxPlayers int           `json:"maxPlayers"`
	Status     string        `json:"status"`
	CanStart   bool          `json:"canStart"`
}

type LobbyPlayer struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Connected bool   `json:"connected"`
	Creator   bool   `json:"creator"`
	IsYou     bool   `json:"isYou"`
}

// ============================================================================
// PLAY
// ============================================================================

type ActionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// NeedsSelection is true when the client must pick cards by index.
	NeedsSelection bool `json:"needsSelection"`
}

type ActionsResponse struct {
	Actions []ActionInfo `json:"actions"`
}

type ExecuteActionRequest struct {
	Action string `json:"action"`
	From   []int  `json:"from,omitempty"`
	To     []int  `json:"to,omitempty"`
}

type ActionResultResponse struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// GameStateMessage is the per-player game_state payload. Actions is only
// filled for the player whose turn it is.
type GameStateMessage struct {
	RoomCode string              `json:"roomCode"`
	Status   string              `json:"status"`
	State    *engine.ClientState `json:"state,omitempty"`
	YourTurn bool                `json:"yourTurn"`
	Actions  []ActionInfo        `json:"actions,omitempty"`
}

type Standing struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Cards    int    `json:"cards"`
}

// GameOverNotification ranks players by cards left, fewest first.
type GameOverNotification struct {
	RoomCode  string     `json:"roomCode"`
	Standings []Standing `json:"standings"`
}

type PlayerStatusNotification struct {
	PlayerID  string `json:"playerId"`
	Username  string `json:"username"`
	Connected bool   `json:"connected"`
}

type NoticeMessage struct {
	Message string `json:"message"`
}
