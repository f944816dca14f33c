package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "cardtable-server/internal/errors"
)

// PersistenceManager stores games, sessions and room codes. Queries use
// $n placeholders and ON CONFLICT upserts, which both SQLite and Postgres
// accept.
type PersistenceManager struct {
	db *sql.DB
}

func NewPersistenceManager(db *sql.DB) *PersistenceManager {
	return &PersistenceManager{db: db}
}

// SaveGame upserts the game as JSON. It takes the game's read lock, so the
// caller must not hold its write lock.
func (pm *PersistenceManager) SaveGame(game *ActiveGame) error {
	game.mu.RLock()
	data, err := json.Marshal(game)
	roomCode, rulesName, status := game.RoomCode, game.RulesName, game.Status
	createdAt, updatedAt := game.CreatedAt, game.UpdatedAt
	game.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to serialize game %s: %w", roomCode, err)
	}

	_, err = pm.db.Exec(`
		INSERT INTO games (room_code, rules_name, status, game_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_code) DO UPDATE SET
			rules_name = excluded.rules_name,
			status = excluded.status,
			game_data = excluded.game_data,
			updated_at = excluded.updated_at`,
		roomCode, rulesName, string(status), string(data), createdAt.UTC(), updatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", roomCode, err)
	}
	return nil
}

func (pm *PersistenceManager) LoadGame(roomCode string) (*ActiveGame, error) {
	var data string
	err := pm.db.QueryRow(`SELECT game_data FROM games WHERE room_code = $1`, roomCode).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(codeRoomNotFound, "game not found: %s", roomCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", roomCode, err)
	}

	game := &ActiveGame{}
	if err := json.Unmarshal([]byte(data), game); err != nil {
		return nil, fmt.Errorf("failed to deserialize game %s: %w", roomCode, err)
	}
	return game, nil
}

// LoadAllActiveGames returns every game that is not completed, most
// recently updated first. Rows that fail to decode are logged and skipped.
func (pm *PersistenceManager) LoadAllActiveGames() ([]*ActiveGame, error) {
	rows, err := pm.db.Query(`
		SELECT room_code, game_data FROM games
		WHERE status <> $1
		ORDER BY updated_at DESC`, string(StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to query active games: %w", err)
	}
	defer rows.Close()

	var games []*ActiveGame
	for rows.Next() {
		var roomCode, data string
		if err := rows.Scan(&roomCode, &data); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		game := &ActiveGame{}
		if err := json.Unmarshal([]byte(data), game); err != nil {
			log.Printf("Warning: failed to deserialize game %s: %v", roomCode, err)
			continue
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game rows: %w", err)
	}
	return games, nil
}

// DeleteGame removes a game with its sessions and frees the room code.
func (pm *PersistenceManager) DeleteGame(roomCode string) error {
	if _, err := pm.db.Exec(`DELETE FROM sessions WHERE room_code = $1`, roomCode); err != nil {
		return fmt.Errorf("failed to delete sessions of %s: %w", roomCode, err)
	}
	result, err := pm.db.Exec(`DELETE FROM games WHERE room_code = $1`, roomCode)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", roomCode, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion result: %w", err)
	}
	if n == 0 {
		return apperrors.Newf(codeRoomNotFound, "game not found: %s", roomCode)
	}

	if err := pm.SaveRoomCode(roomCode, false); err != nil {
		log.Printf("Warning: failed to release room code %s: %v", roomCode, err)
	}
	return nil
}

func (pm *PersistenceManager) SaveSession(session SessionInfo) error {
	_, err := pm.db.Exec(`
		INSERT INTO sessions (token, room_code, player_id, username, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE SET
			room_code = excluded.room_code,
			player_id = excluded.player_id,
			username = excluded.username`,
		session.Token, session.RoomCode, session.PlayerID, session.Username, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session for %s: %w", session.RoomCode, err)
	}
	return nil
}

func (pm *PersistenceManager) LoadAllSessions() ([]SessionInfo, error) {
	rows, err := pm.db.Query(`SELECT token, room_code, player_id, username FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var s SessionInfo
		if err := rows.Scan(&s.Token, &s.RoomCode, &s.PlayerID, &s.Username); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return sessions, nil
}

func (pm *PersistenceManager) DeleteSession(token string) error {
	if _, err := pm.db.Exec(`DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SaveRoomCode records whether code is taken.
func (pm *PersistenceManager) SaveRoomCode(code string, inUse bool) error {
	_, err := pm.db.Exec(`
		INSERT INTO room_codes (code, in_use, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET in_use = excluded.in_use`,
		code, inUse, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save room code %s: %w", code, err)
	}
	return nil
}

func (pm *PersistenceManager) LoadUsedRoomCodes() (map[string]bool, error) {
	rows, err := pm.db.Query(`SELECT code, in_use FROM room_codes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query room codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]bool)
	for rows.Next() {
		var code string
		var inUse bool
		if err := rows.Scan(&code, &inUse); err != nil {
			return nil, fmt.Errorf("failed to scan room code row: %w", err)
		}
		codes[code] = inUse
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room code rows: %w", err)
	}
	return codes, nil
}

// CleanupOldGames deletes completed games last updated before olderThan
// ago and returns their room codes.
func (pm *PersistenceManager) CleanupOldGames(olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	rows, err := pm.db.Query(`SELECT room_code FROM games WHERE status = $1 AND updated_at < $2`,
		string(StatusCompleted), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query old games: %w", err)
	}
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan room code: %w", err)
		}
		codes = append(codes, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating old games: %w", err)
	}

	deleted := make([]string, 0, len(codes))
	for _, code := range codes {
		if err := pm.DeleteGame(code); err != nil {
			log.Printf("Warning: cleanup of %s failed: %v", code, err)
			continue
		}
		deleted = append(deleted, code)
	}
	return deleted, nil
}
