package server

import (
	"sync"

	apperrors "cardtable-server/internal/errors"
)

// SessionInfo ties a reconnect token to a seat in a room.
type SessionInfo struct {
	Token    string
	RoomCode string
	PlayerID string
	Username string
}

// SessionManager holds the live token table. It outlives connections, so a
// token stays valid across socket drops until the player leaves or the room
// is removed.
type SessionManager struct {
	sessions map[string]SessionInfo // token → session
	mu       sync.RWMutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]SessionInfo)}
}

func (sm *SessionManager) StoreSession(info SessionInfo) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[info.Token] = info
}

// GetSession fails with TOKEN_NOT_FOUND for unknown or revoked tokens.
func (sm *SessionManager) GetSession(token string) (SessionInfo, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[token]
	if !ok {
		return SessionInfo{}, apperrors.New(codeTokenNotFound, "invalid session token")
	}
	return session, nil
}

func (sm *SessionManager) RemoveSession(token string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, token)
}

// RemoveRoom drops every session for roomCode and returns how many there
// were.
func (sm *SessionManager) RemoveRoom(roomCode string) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	for token, s := range sm.sessions {
		if s.RoomCode == roomCode {
			delete(sm.sessions, token)
			removed++
		}
	}
	return removed
}

func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
