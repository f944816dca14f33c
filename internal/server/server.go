package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"cardtable-server/internal/config"
	"cardtable-server/internal/database"
	"cardtable-server/internal/engine"
	"cardtable-server/internal/rules"
)

const (
	healthCheckInterval = time.Minute
	inactiveTimeout     = 10 * time.Minute
	cleanupInterval     = time.Hour
)

type Server struct {
	cfg                config.Config
	db                 database.Service
	catalog            *rules.Catalog
	connectionManager  *ConnectionManager
	gameManager        *GameManager
	sessionManager     *SessionManager
	persistenceManager *PersistenceManager
	rateLimiter        *RateLimiter
	connectionHealth   *ConnectionHealth
}

// NewServer wires the managers together and restores persisted games. The
// database must already be migrated.
func NewServer(cfg config.Config, db database.Service, catalog *rules.Catalog, opts ...engine.Option) (*Server, *http.Server) {
	s := &Server{
		cfg:                cfg,
		db:                 db,
		catalog:            catalog,
		connectionManager:  NewConnectionManager(),
		gameManager:        NewGameManager(catalog, opts...),
		sessionManager:     NewSessionManager(),
		persistenceManager: NewPersistenceManager(db.DB()),
		rateLimiter:        NewRateLimiter(cfg.RateLimit, time.Second), // RATE_LIMIT per second per connection
		connectionHealth:   NewConnectionHealth(),
	}

	if err := s.loadPersistedState(); err != nil {
		// Start with an empty table rather than refuse to serve.
		log.Printf("Warning: failed to load persisted state: %v", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, httpServer
}

// Start runs the background tasks until ctx is done.
func (s *Server) Start(ctx context.Context) {
	go s.periodicSaveTask(ctx)
	go s.cleanupTask(ctx)
	go s.healthTask(ctx)
}

func (s *Server) loadPersistedState() error {
	games, err := s.persistenceManager.LoadAllActiveGames()
	if err != nil {
		return fmt.Errorf("failed to load games: %w", err)
	}
	codes, err := s.persistenceManager.LoadUsedRoomCodes()
	if err != nil {
		return fmt.Errorf("failed to load room codes: %w", err)
	}
	restored := s.gameManager.Restore(games, codes)

	sessions, err := s.persistenceManager.LoadAllSessions()
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	kept := 0
	for _, session := range sessions {
		if _, err := s.gameManager.GetGame(session.RoomCode); err != nil {
			continue
		}
		s.sessionManager.StoreSession(session)
		kept++
	}

	log.Printf("Loaded %d games, %d room codes, %d sessions", restored, len(codes), kept)
	return nil
}

// saveAll persists every game in memory and returns how many were saved.
func (s *Server) saveAll() int {
	saved := 0
	for _, game := range s.gameManager.Games() {
		if err := s.persistenceManager.SaveGame(game); err != nil {
			log.Printf("Save failed for game %s: %v", game.RoomCode, err)
			continue
		}
		saved++
	}
	return saved
}

func (s *Server) periodicSaveTask(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("Periodic save completed: %d games persisted", s.saveAll())
		}
	}
}

// cleanupTask deletes completed games older than CleanupAfter.
func (s *Server) cleanupTask(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupOldGames()
		}
	}
}

func (s *Server) cleanupOldGames() {
	deleted, err := s.persistenceManager.CleanupOldGames(s.cfg.CleanupAfter)
	if err != nil {
		log.Printf("Cleanup task failed: %v", err)
		return
	}
	for _, code := range deleted {
		s.gameManager.RemoveGame(code)
		s.sessionManager.RemoveRoom(code)
	}
	if len(deleted) > 0 {
		log.Printf("Cleanup task: deleted %d old completed games", len(deleted))
	}
}

// healthTask closes silent connections and trims rate limiter state.
func (s *Server) healthTask(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.closeInactive(inactiveTimeout)
			s.rateLimiter.Cleanup()
		}
	}
}

func (s *Server) closeInactive(timeout time.Duration) int {
	closed := 0
	for _, id := range s.connectionHealth.GetInactiveConnections(timeout) {
		if conn := s.connectionManager.GetConnection(id); conn != nil {
			log.Printf("Closing inactive connection %s", id)
			conn.Close(websocket.StatusPolicyViolation, "Inactive")
			closed++
		}
		s.connectionHealth.RemoveConnection(id)
	}
	return closed
}

// Shutdown tells every client the server is going away and saves all
// games.
func (s *Server) Shutdown(ctx context.Context) error {
	s.connectionManager.Broadcast(ctx, ServerMessage{
		Type:    MsgServerShuttingDown,
		Payload: NoticeMessage{Message: "Server is restarting. Your game has been saved."},
	})
	log.Printf("Shutdown save completed: %d games persisted", s.saveAll())
	return ctx.Err()
}
