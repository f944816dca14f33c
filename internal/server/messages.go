package server

import "encoding/json"

// Client → server message types.
const (
	MsgPing          = "ping"
	MsgListRules     = "list_rules"
	MsgCreateGame    = "create_game"
	MsgJoinGame      = "join_game"
	MsgReconnect     = "reconnect"
	MsgLeaveGame     = "leave_game"
	MsgStartGame     = "start_game"
	MsgListActions   = "list_actions"
	MsgExecuteAction = "execute_action"
	MsgView          = "view"
)

// Server → client message types.
const (
	MsgPong               = "pong"
	MsgError              = "error"
	MsgRules              = "rules"
	MsgGameCreated        = "game_created"
	MsgGameJoined         = "game_joined"
	MsgReconnected        = "reconnected"
	MsgLobbyUpdate        = "lobby_update"
	MsgGameStarted        = "game_started"
	MsgGameState          = "game_state"
	MsgActions            = "actions"
	MsgActionResult       = "action_result"
	MsgGameOver           = "game_over"
	MsgPlayerStatus       = "player_status"
	MsgDisconnectedElse   = "disconnected_elsewhere"
	MsgServerShuttingDown = "server_shutting_down"
)

type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
