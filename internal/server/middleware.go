package server

import (
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	apperrors "cardtable-server/internal/errors"
)

// RateLimiter allows each connection at most maxRequests messages in any
// sliding window. Memory per connection is bounded by maxRequests, since
// rejected messages are not recorded.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time // connectionID → recent message times, oldest first
	mu          sync.Mutex
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
	}
}

// Allow records a message from connectionID and reports whether it fits
// in the window.
func (r *RateLimiter) Allow(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	// Times are appended in order, so expired entries form a prefix.
	recent := dropBefore(r.requests[connectionID], now.Add(-r.window))
	if len(recent) >= r.maxRequests {
		// Store the trimmed slice so a flood keeps the map entry small.
		r.requests[connectionID] = recent
		return false
	}
	r.requests[connectionID] = append(recent, now)
	return true
}

// dropBefore returns the suffix of times after cutoff.
func dropBefore(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// Cleanup forgets connections with no message inside the window. Allow
// only trims the connection it is called for, so idle entries linger
// until this runs.
func (r *RateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.window)
	for id, times := range r.requests {
		if len(dropBefore(times, cutoff)) == 0 {
			delete(r.requests, id)
		}
	}
}

func (r *RateLimiter) RemoveConnection(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, connectionID)
}

// ConnectionHealth records when each connection last sent a message.
type ConnectionHealth struct {
	lastActivity map[string]time.Time
	mu           sync.RWMutex
}

func NewConnectionHealth() *ConnectionHealth {
	return &ConnectionHealth{lastActivity: make(map[string]time.Time)}
}

func (h *ConnectionHealth) UpdateActivity(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastActivity[connectionID] = time.Now()
}

// IsInactive reports whether connectionID has been silent longer than
// timeout. Untracked connections are not inactive.
func (h *ConnectionHealth) IsInactive(connectionID string, timeout time.Duration) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	last, ok := h.lastActivity[connectionID]
	return ok && time.Since(last) > timeout
}

// GetInactiveConnections lists connections silent for longer than timeout.
// The caller closes them; entries stay until RemoveConnection.
func (h *ConnectionHealth) GetInactiveConnections(timeout time.Duration) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	inactive := []string{}
	for id, last := range h.lastActivity {
		if time.Since(last) > timeout {
			inactive = append(inactive, id)
		}
	}
	return inactive
}

func (h *ConnectionHealth) RemoveConnection(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.lastActivity, connectionID)
}

// clientMessageTypes is the set a client may send. Server-only types are
// rejected here before any handler lookup.
var clientMessageTypes = map[string]bool{
	MsgPing:          true,
	MsgListRules:     true,
	MsgCreateGame:    true,
	MsgJoinGame:      true,
	MsgReconnect:     true,
	MsgLeaveGame:     true,
	MsgStartGame:     true,
	MsgListActions:   true,
	MsgExecuteAction: true,
	MsgView:          true,
}

func ValidateMessageType(msgType string) error {
	if !clientMessageTypes[msgType] {
		return apperrors.Newf(codeUnknownMessage, "unknown message type '%s'", msgType)
	}
	return nil
}

func ValidateUsername(username string) error {
	if username == "" {
		return apperrors.New(codeUsernameInvalid, "username cannot be empty")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return apperrors.Newf(codeUsernameInvalid, "username too long (max %d characters)", maxUsernameLength)
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		// Auth rides on the reconnect token, never on cookies.
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
