package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	apperrors "cardtable-server/internal/errors"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/rules", s.rulesHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	return corsMiddleware(mux)
}

func (s *Server) rulesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.listRules())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.db.Health())
}

func writeJSON(w http.ResponseWriter, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) listRules() ListRulesResponse {
	all := s.catalog.List()
	resp := ListRulesResponse{Rules: make([]RulesSummary, len(all))}
	for i, r := range all {
		resp.Rules[i] = RulesSummary{
			Name:        r.Name,
			Description: r.Description,
			MinPlayers:  r.MinPlayers,
			MaxPlayers:  r.MaxPlayers,
		}
	}
	return resp
}

type handlerFunc func(s *Server, socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage)

var handlers = map[string]handlerFunc{
	MsgPing:          (*Server).handlePing,
	MsgListRules:     (*Server).handleListRules,
	MsgCreateGame:    (*Server).handleCreateGame,
	MsgJoinGame:      (*Server).handleJoinGame,
	MsgReconnect:     (*Server).handleReconnect,
	MsgLeaveGame:     (*Server).handleLeaveGame,
	MsgStartGame:     (*Server).handleStartGame,
	MsgListActions:   (*Server).handleListActions,
	MsgExecuteAction: (*Server).handleExecuteAction,
	MsgView:          (*Server).handleView,
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("Failed to accept websocket: %v", err)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()
	connectionID := uuid.NewString()
	log.Printf("New connection: %s", connectionID)
	s.connectionManager.AddConnection(connectionID, socket)
	s.connectionHealth.UpdateActivity(connectionID)
	defer s.disconnect(connectionID)

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}
		s.connectionHealth.UpdateActivity(connectionID)

		// Rate limiting counts every frame, including ones rejected below.
		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, apperrors.New(codeRateLimited, "too many messages, slow down"))
			continue
		}
		if msgType != websocket.MessageText {
			log.Printf("Non-text input from %s", connectionID)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(socket, ctx, apperrors.New(codeInvalidPayload, "invalid JSON"))
			continue
		}
		if err := ValidateMessageType(msg.Type); err != nil {
			s.sendError(socket, ctx, err)
			continue
		}

		log.Printf("Message type '%s' from %s", msg.Type, connectionID)
		handlers[msg.Type](s, socket, ctx, connectionID, msg.Payload)
	}
}

// disconnect releases a closed socket. A player whose token has moved to
// another connection is not marked disconnected.
func (s *Server) disconnect(connectionID string) {
	token := s.connectionManager.GetTokenByConnection(connectionID)
	stillBound := token != "" && s.connectionManager.GetConnectionByToken(token) == connectionID

	s.connectionManager.RemoveConnection(connectionID)
	s.rateLimiter.RemoveConnection(connectionID)
	s.connectionHealth.RemoveConnection(connectionID)
	log.Printf("Connection closed: %s", connectionID)

	if !stillBound {
		return
	}
	paused, game, player, err := s.gameManager.MarkPlayerDisconnected(token)
	if err != nil {
		if !apperrors.HasCode(err, codeTokenNotFound) {
			log.Printf("Error marking player disconnected: %v", err)
		}
		return
	}

	log.Printf("Player %s disconnected from game %s", player.Username, game.RoomCode)
	s.broadcastToGame(game, MsgPlayerStatus, PlayerStatusNotification{
		PlayerID:  player.ID,
		Username:  player.Username,
		Connected: false,
	})
	if paused {
		s.broadcastGameState(game)
	}
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	return writeMessage(ctx, socket, msg)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, err error) {
	payload := ErrorMessage{Message: err.Error(), Code: string(apperrors.CodeOf(err))}
	if sendErr := s.sendMessage(socket, ctx, ServerMessage{Type: MsgError, Payload: payload}); sendErr != nil {
		log.Printf("Failed to send error message: %v", sendErr)
	}
}

// requireToken returns the session token bound to connectionID, sending an
// error when there is none.
func (s *Server) requireToken(socket *websocket.Conn, ctx context.Context, connectionID string) (string, bool) {
	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, apperrors.New(codeNotInGame, "no active game session"))
		return "", false
	}
	return token, true
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string, _ json.RawMessage) {
	if err := s.sendMessage(socket, ctx, ServerMessage{Type: MsgPong, Payload: struct{}{}}); err != nil {
		log.Printf("Failed to send pong to %s: %v", connectionID, err)
	}
}

func (s *Server) handleListRules(socket *websocket.Conn, ctx context.Context, connectionID string, _ json.RawMessage) {
	if err := s.sendMessage(socket, ctx, ServerMessage{Type: MsgRules, Payload: s.listRules()}); err != nil {
		log.Printf("Failed to send rules to %s: %v", connectionID, err)
	}
}

func (s *Server) handleCreateGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, apperrors.New(codeInvalidPayload, "invalid create_game payload"))
		return
	}

	game, slot, err := s.gameManager.CreateGame(req.Rules, req.Username)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}
	s.seat(connectionID, socket, game, slot)
	if err := s.persistenceManager.SaveRoomCode(game.RoomCode, true); err != nil {
		log.Printf("Failed to persist room code %s: %v", game.RoomCode, err)
	}

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    MsgGameCreated,
		Payload: CreateGameResponse{RoomCode: game.RoomCode, Token: slot.Token, PlayerID: slot.ID},
	}); err != nil {
		log.Printf("Failed to send game_created: %v", err)
		return
	}
	s.broadcastLobbyUpdate(game)
}

func (s *Server) handleJoinGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req JoinGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, apperrors.New(codeInvalidPayload, "invalid join_game payload"))
		return
	}

	game, slot, err := s.gameManager.JoinGame(req.RoomCode, req.Username)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}
	s.seat(connectionID, socket, game, slot)

	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    MsgGameJoined,
		Payload: JoinGameResponse{Success: true, Token: slot.Token, PlayerID: slot.ID},
	}); err != nil {
		log.Printf("Failed to send game_joined: %v", err)
		return
	}
	s.broadcastLobbyUpdate(game)
}

// seat records a new player's session, binds it to the connection and
// persists the room.
func (s *Server) seat(connectionID string, socket *websocket.Conn, game *ActiveGame, slot PlayerSlot) {
	session := SessionInfo{Token: slot.Token, RoomCode: game.RoomCode, PlayerID: slot.ID, Username: slot.Username}
	s.sessionManager.StoreSession(session)
	s.connectionManager.AddConnectionWithToken(connectionID, socket, slot.Token)

	if err := s.persistenceManager.SaveGame(game); err != nil {
		log.Printf("Failed to persist game %s: %v", game.RoomCode, err)
		return
	}
	if err := s.persistenceManager.SaveSession(session); err != nil {
		log.Printf("Failed to persist session for %s: %v", game.RoomCode, err)
	}
}

func (s *Server) handleReconnect(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ReconnectRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, apperrors.New(codeInvalidPayload, "invalid reconnect payload"))
		return
	}

	session, err := s.sessionManager.GetSession(req.Token)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}

	// Rebinding the token first means the evicted socket's disconnect sees
	// it no longer owns the token and leaves the player connected.
	old := s.connectionManager.AddConnectionWithToken(connectionID, socket, req.Token)
	if old != "" && old != connectionID {
		if oldConn := s.connectionManager.GetConnection(old); oldConn != nil {
			_ = s.sendMessage(oldConn, context.Background(), ServerMessage{
				Type:    MsgDisconnectedElse,
				Payload: NoticeMessage{Message: "You connected on another device"},
			})
			oldConn.Close(websocket.StatusNormalClosure, "Connected from another device")
		}
	}

	game, slot, err := s.gameManager.ReconnectPlayer(req.Token)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}

	status := s.gameManager.GameState(game, slot).Status
	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    MsgReconnected,
		Payload: ReconnectResponse{RoomCode: session.RoomCode, PlayerID: session.PlayerID, Status: status},
	}); err != nil {
		log.Printf("Failed to send reconnected: %v", err)
	}

	s.broadcastToGame(game, MsgPlayerStatus, PlayerStatusNotification{
		PlayerID:  session.PlayerID,
		Username:  session.Username,
		Connected: true,
	})
	if GameStatus(status) == StatusLobby {
		s.broadcastLobbyUpdate(game)
	} else {
		s.broadcastGameState(game)
	}
}

func (s *Server) handleLeaveGame(socket *websocket.Conn, ctx context.Context, connectionID string, _ json.RawMessage) {
	token, ok := s.requireToken(socket, ctx, connectionID)
	if !ok {
		return
	}
	game, _, err := s.gameManager.GetGameByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}
	game, err = s.gameManager.LeaveGame(game.RoomCode, token)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}

	s.sessionManager.RemoveSession(token)
	s.connectionManager.UnmapToken(token)
	if err := s.persistenceManager.DeleteSession(token); err != nil {
		log.Printf("Failed to delete session: %v", err)
	}
	if err := s.persistenceManager.SaveGame(game); err != nil {
		log.Printf("Failed to persist game %s: %v", game.RoomCode, err)
	}
	s.broadcastLobbyUpdate(game)
}

func (s *Server) handleStartGame(socket *websocket.Conn, ctx context.Context, connectionID string, _ json.RawMessage) {
	token, ok := s.requireToken(socket, ctx, connectionID)
	if !ok {
		return
	}
	game, _, err := s.gameManager.GetGameByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}
	if _, err := s.gameManager.StartGame(game.RoomCode, token); err != nil {
		s.sendError(socket, ctx, err)
		return
	}
	if err := s.persistenceManager.SaveGame(game); err != nil {
		log.Printf("Failed to persist game %s: %v", game.RoomCode, err)
	}

	s.broadcastToGame(game, MsgGameStarted, NoticeMessage{Message: "The cards are dealt."})
	s.broadcastGameState(game)
}

func (s *Server) handleListActions(socket *websocket.Conn, ctx context.Context, connectionID string, _ json.RawMessage) {
	token, ok := s.requireToken(socket, ctx, connectionID)
	if !ok {
		return
	}
	game, slot, err := s.gameManager.GetGameByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}
	if err := s.sendMessage(socket, ctx, ServerMessage{
		Type:    MsgActions,
		Payload: ActionsResponse{Actions: s.gameManager.AvailableActions(game, slot)},
	}); err != nil {
		log.Printf("Failed to send actions: %v", err)
	}
}

func (s *Server) handleExecuteAction(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ExecuteActionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, apperrors.New(codeInvalidPayload, "invalid execute_action payload"))
		return
	}
	token, ok := s.requireToken(socket, ctx, connectionID)
	if !ok {
		return
	}

	game, over, err := s.gameManager.ExecuteAction(token, req)
	if err != nil {
		_ = s.sendMessage(socket, ctx, ServerMessage{
			Type: MsgActionResult,
			Payload: ActionResultResponse{
				Success: false,
				Action:  req.Action,
				Message: err.Error(),
				Code:    string(apperrors.CodeOf(err)),
			},
		})
		return
	}

	if err := s.persistenceManager.SaveGame(game); err != nil {
		log.Printf("Failed to persist game %s: %v", game.RoomCode, err)
	}
	s.broadcastGameState(game)
	if over {
		s.broadcastToGame(game, MsgGameOver, GameOverNotification{
			RoomCode:  game.RoomCode,
			Standings: s.gameManager.Standings(game),
		})
	}
	_ = s.sendMessage(socket, ctx, ServerMessage{
		Type:    MsgActionResult,
		Payload: ActionResultResponse{Success: true, Action: req.Action},
	})
}

func (s *Server) handleView(socket *websocket.Conn, ctx context.Context, connectionID string, _ json.RawMessage) {
	token, ok := s.requireToken(socket, ctx, connectionID)
	if !ok {
		return
	}
	game, slot, err := s.gameManager.GetGameByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err)
		return
	}

	msg := ServerMessage{Type: MsgGameState, Payload: s.gameManager.GameState(game, slot)}
	if s.gameManager.Lobby(game, token).Status == string(StatusLobby) {
		msg = ServerMessage{Type: MsgLobbyUpdate, Payload: s.gameManager.Lobby(game, token)}
	}
	if err := s.sendMessage(socket, ctx, msg); err != nil {
		log.Printf("Failed to send view: %v", err)
	}
}

// broadcastToGame sends the same message to every connected player.
func (s *Server) broadcastToGame(game *ActiveGame, messageType string, payload any) {
	msg := ServerMessage{Type: messageType, Payload: payload}
	for _, slot := range s.gameManager.Slots(game) {
		if _, err := s.connectionManager.SendToToken(context.Background(), slot.Token, msg); err != nil {
			log.Printf("Failed to send %s to %s: %v", messageType, slot.Username, err)
		}
	}
}

// broadcastLobbyUpdate sends each player the lobby with their own seat
// marked.
func (s *Server) broadcastLobbyUpdate(game *ActiveGame) {
	for _, slot := range s.gameManager.Slots(game) {
		msg := ServerMessage{Type: MsgLobbyUpdate, Payload: s.gameManager.Lobby(game, slot.Token)}
		if _, err := s.connectionManager.SendToToken(context.Background(), slot.Token, msg); err != nil {
			log.Printf("Failed to broadcast lobby to %s: %v", slot.Username, err)
		}
	}
}

// broadcastGameState sends each player the game rendered for them.
func (s *Server) broadcastGameState(game *ActiveGame) {
	for i, slot := range s.gameManager.Slots(game) {
		msg := ServerMessage{Type: MsgGameState, Payload: s.gameManager.GameState(game, i)}
		if _, err := s.connectionManager.SendToToken(context.Background(), slot.Token, msg); err != nil {
			log.Printf("Failed to broadcast game state to %s: %v", slot.Username, err)
		}
	}
}
