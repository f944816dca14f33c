package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// ConnectionManager tracks open sockets and which session token each one
// speaks for. A token is bound to at most one connection.
type ConnectionManager struct {
	connections map[string]*websocket.Conn // connectionID → socket
	tokens      map[string]string          // connectionID → token
	byToken     map[string]string          // token → connectionID
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		tokens:      make(map[string]string),
		byToken:     make(map[string]string),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

// AddConnectionWithToken registers conn under id and binds token to it. It
// returns the connection id previously bound to token, or "" if none.
func (cm *ConnectionManager) AddConnectionWithToken(id string, conn *websocket.Conn, token string) string {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	previous := cm.byToken[token]
	if conn != nil || cm.connections[id] == nil {
		cm.connections[id] = conn
	}
	if old, ok := cm.tokens[id]; ok && old != token {
		delete(cm.byToken, old)
	}
	cm.tokens[id] = token
	cm.byToken[token] = id
	return previous
}

// RemoveConnection forgets id. The token binding is dropped only if it
// still points at id.
func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if token, ok := cm.tokens[id]; ok && cm.byToken[token] == id {
		delete(cm.byToken, token)
	}
	delete(cm.tokens, id)
	delete(cm.connections, id)
}

func (cm *ConnectionManager) UnmapToken(token string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if id, ok := cm.byToken[token]; ok {
		delete(cm.tokens, id)
		delete(cm.byToken, token)
	}
}

func (cm *ConnectionManager) GetTokenByConnection(id string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.tokens[id]
}

func (cm *ConnectionManager) GetConnectionByToken(token string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.byToken[token]
}

func (cm *ConnectionManager) GetConnection(id string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connections[id]
}

// Count is the number of open connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// SendToToken writes msg to the connection bound to token. It reports false
// when the token has no live connection.
func (cm *ConnectionManager) SendToToken(ctx context.Context, token string, msg ServerMessage) (bool, error) {
	cm.mu.RLock()
	conn := cm.connections[cm.byToken[token]]
	cm.mu.RUnlock()

	if conn == nil {
		return false, nil
	}
	return true, writeMessage(ctx, conn, msg)
}

// Broadcast writes msg to every open connection.
func (cm *ConnectionManager) Broadcast(ctx context.Context, msg ServerMessage) {
	cm.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(cm.connections))
	for _, c := range cm.connections {
		if c != nil {
			conns = append(conns, c)
		}
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		_ = writeMessage(ctx, c, msg)
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type, err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
