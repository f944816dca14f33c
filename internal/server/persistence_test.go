package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardtable-server/internal/database"
	apperrors "cardtable-server/internal/errors"
)

// setupTestDB opens a migrated SQLite database in a temp dir.
func setupTestDB(t *testing.T) database.Service {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test_persistence.db") + "?_foreign_keys=on"
	svc, err := database.New(context.Background(), "sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	require.NoError(t, database.Migrate(svc.DB(), svc.Dialect(), "../../db/migrations"))
	return svc
}

func lobbyGame(code string, status GameStatus, updated time.Time) *ActiveGame {
	return &ActiveGame{
		RoomCode:  code,
		RulesName: "crazy_eights",
		Status:    status,
		Players: []PlayerSlot{
			{ID: code + "-a", Username: "Alice", Token: code + "-ta", Connected: true, JoinedAt: updated},
		},
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestPersistenceManager_SaveAndLoadLobbyGame(t *testing.T) {
	assert := assert.New(t)
	pm := NewPersistenceManager(setupTestDB(t).DB())

	now := time.Now().UTC().Truncate(time.Second)
	game := lobbyGame("TEST", StatusLobby, now)
	game.Players = append(game.Players, PlayerSlot{ID: "b", Username: "Bob", Token: "tb", JoinedAt: now})

	require.NoError(t, pm.SaveGame(game))

	loaded, err := pm.LoadGame("TEST")
	require.NoError(t, err)
	assert.Equal("TEST", loaded.RoomCode)
	assert.Equal("crazy_eights", loaded.RulesName)
	assert.Equal(StatusLobby, loaded.Status)
	assert.Equal(game.Players, loaded.Players)
	assert.Nil(loaded.State)
	assert.True(now.Equal(loaded.CreatedAt))
}

func TestPersistenceManager_SaveAndLoadPlayingGame(t *testing.T) {
	assert := assert.New(t)
	pm := NewPersistenceManager(setupTestDB(t).DB())
	gm := newTestGameManager(t)

	game, slots := lobbyWith(t, gm, "poo_head", "Alice", "Bob", "Carol")
	_, err := gm.StartGame(game.RoomCode, slots[0].Token)
	require.NoError(t, err)
	require.NoError(t, pm.SaveGame(game))

	loaded, err := pm.LoadGame(game.RoomCode)
	require.NoError(t, err)
	require.NotNil(t, loaded.State)

	assert.Equal(StatusPlaying, loaded.Status)
	assert.Equal(52, loaded.State.CardCount())
	assert.Equal(game.State.Deck.Count(), loaded.State.Deck.Count())
	assert.Equal(game.State.Current, loaded.State.Current)
	assert.Equal(game.State.Turn, loaded.State.Turn)
	for i, p := range game.State.Players {
		assert.Equal(p.ID, loaded.State.Players[i].ID)
		for name, group := range p.Groups {
			assert.Equal(group.Cards, loaded.State.Players[i].Groups[name].Cards, "%s %s", p.Name, name)
		}
	}
	assert.Equal(game.State.Communal["draw_pile"].Cards, loaded.State.Communal["draw_pile"].Cards)
}

func TestPersistenceManager_SaveGameUpserts(t *testing.T) {
	pm := NewPersistenceManager(setupTestDB(t).DB())

	game := lobbyGame("WOLF", StatusLobby, time.Now().UTC())
	require.NoError(t, pm.SaveGame(game))

	game.Status = StatusCompleted
	require.NoError(t, pm.SaveGame(game))

	loaded, err := pm.LoadGame("WOLF")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, loaded.Status)
}

func TestPersistenceManager_LoadGameNotFound(t *testing.T) {
	pm := NewPersistenceManager(setupTestDB(t).DB())

	_, err := pm.LoadGame("NONE")
	assert.Equal(t, codeRoomNotFound, apperrors.CodeOf(err))
}

func TestPersistenceManager_LoadAllActiveGames(t *testing.T) {
	assert := assert.New(t)
	pm := NewPersistenceManager(setupTestDB(t).DB())

	now := time.Now().UTC()
	require.NoError(t, pm.SaveGame(lobbyGame("AAAA", StatusLobby, now.Add(-2*time.Hour))))
	require.NoError(t, pm.SaveGame(lobbyGame("BBBB", StatusPaused, now.Add(-time.Hour))))
	require.NoError(t, pm.SaveGame(lobbyGame("CCCC", StatusCompleted, now)))

	games, err := pm.LoadAllActiveGames()
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal("BBBB", games[0].RoomCode)
	assert.Equal("AAAA", games[1].RoomCode)
}

func TestPersistenceManager_LoadAllActiveGamesSkipsCorruptRows(t *testing.T) {
	svc := setupTestDB(t)
	pm := NewPersistenceManager(svc.DB())

	require.NoError(t, pm.SaveGame(lobbyGame("GOOD", StatusLobby, time.Now().UTC())))
	_, err := svc.DB().Exec(`
		INSERT INTO games (room_code, rules_name, status, game_data, created_at, updated_at)
		VALUES ('BADD', 'crazy_eights', 'lobby', 'not json', $1, $1)`, time.Now().UTC())
	require.NoError(t, err)

	games, err := pm.LoadAllActiveGames()
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "GOOD", games[0].RoomCode)
}

func TestPersistenceManager_Sessions(t *testing.T) {
	assert := assert.New(t)
	pm := NewPersistenceManager(setupTestDB(t).DB())
	require.NoError(t, pm.SaveGame(lobbyGame("ROOM", StatusLobby, time.Now().UTC())))

	alice := SessionInfo{Token: "ta", RoomCode: "ROOM", PlayerID: "a", Username: "Alice"}
	bob := SessionInfo{Token: "tb", RoomCode: "ROOM", PlayerID: "b", Username: "Bob"}
	require.NoError(t, pm.SaveSession(alice))
	require.NoError(t, pm.SaveSession(bob))

	bob.Username = "Robert"
	require.NoError(t, pm.SaveSession(bob))

	sessions, err := pm.LoadAllSessions()
	require.NoError(t, err)
	assert.ElementsMatch([]SessionInfo{alice, bob}, sessions)

	require.NoError(t, pm.DeleteSession("ta"))
	sessions, err = pm.LoadAllSessions()
	require.NoError(t, err)
	assert.Equal([]SessionInfo{bob}, sessions)
}

func TestPersistenceManager_SessionRequiresGame(t *testing.T) {
	pm := NewPersistenceManager(setupTestDB(t).DB())

	err := pm.SaveSession(SessionInfo{Token: "t", RoomCode: "NONE", PlayerID: "p", Username: "Ghost"})
	assert.Error(t, err)
}

func TestPersistenceManager_RoomCodes(t *testing.T) {
	pm := NewPersistenceManager(setupTestDB(t).DB())

	require.NoError(t, pm.SaveRoomCode("BEAR", true))
	require.NoError(t, pm.SaveRoomCode("WOLF", true))
	require.NoError(t, pm.SaveRoomCode("WOLF", false))

	codes, err := pm.LoadUsedRoomCodes()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"BEAR": true, "WOLF": false}, codes)
}

func TestPersistenceManager_DeleteGame(t *testing.T) {
	assert := assert.New(t)
	pm := NewPersistenceManager(setupTestDB(t).DB())

	require.NoError(t, pm.SaveGame(lobbyGame("GONE", StatusLobby, time.Now().UTC())))
	require.NoError(t, pm.SaveRoomCode("GONE", true))
	require.NoError(t, pm.SaveSession(SessionInfo{Token: "t", RoomCode: "GONE", PlayerID: "p", Username: "Alice"}))

	require.NoError(t, pm.DeleteGame("GONE"))

	_, err := pm.LoadGame("GONE")
	assert.Equal(codeRoomNotFound, apperrors.CodeOf(err))
	sessions, err := pm.LoadAllSessions()
	require.NoError(t, err)
	assert.Empty(sessions)
	codes, err := pm.LoadUsedRoomCodes()
	require.NoError(t, err)
	assert.False(codes["GONE"])

	err = pm.DeleteGame("GONE")
	assert.Equal(codeRoomNotFound, apperrors.CodeOf(err))
}

func TestPersistenceManager_CleanupOldGames(t *testing.T) {
	assert := assert.New(t)
	pm := NewPersistenceManager(setupTestDB(t).DB())

	now := time.Now().UTC()
	require.NoError(t, pm.SaveGame(lobbyGame("OLDC", StatusCompleted, now.Add(-48*time.Hour))))
	require.NoError(t, pm.SaveGame(lobbyGame("NEWC", StatusCompleted, now)))
	require.NoError(t, pm.SaveGame(lobbyGame("OLDL", StatusLobby, now.Add(-48*time.Hour))))

	deleted, err := pm.CleanupOldGames(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal([]string{"OLDC"}, deleted)

	_, err = pm.LoadGame("OLDC")
	assert.Error(err)
	_, err = pm.LoadGame("NEWC")
	assert.NoError(err)
	_, err = pm.LoadGame("OLDL")
	assert.NoError(err)
}
