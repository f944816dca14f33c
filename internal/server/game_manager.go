package server

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardtable-server/internal/engine"
	apperrors "cardtable-server/internal/errors"
	"cardtable-server/internal/rules"
)

const (
	codeRoomNotFound    apperrors.Code = "ROOM_NOT_FOUND"
	codeRoomFull        apperrors.Code = "ROOM_FULL"
	codeGameStarted     apperrors.Code = "GAME_ALREADY_STARTED"
	codeGameNotPlaying  apperrors.Code = "GAME_NOT_PLAYING"
	codeNotInGame       apperrors.Code = "NOT_IN_GAME"
	codeNotCreator      apperrors.Code = "NOT_CREATOR"
	codeNotYourTurn     apperrors.Code = "NOT_YOUR_TURN"
	codeUsernameInvalid apperrors.Code = "USERNAME_INVALID"
	codeUsernameTaken   apperrors.Code = "USERNAME_TAKEN"
	codeUnknownRules    apperrors.Code = "UNKNOWN_RULES"
	codeTokenNotFound   apperrors.Code = "TOKEN_NOT_FOUND"
	codeInvalidRoomCode apperrors.Code = "INVALID_ROOM_CODE"
	codeInvalidPayload  apperrors.Code = "INVALID_PAYLOAD"
	codeRateLimited     apperrors.Code = "RATE_LIMITED"
	codeUnknownMessage  apperrors.Code = "INVALID_MESSAGE_TYPE"
)

const maxUsernameLength = 20

type GameStatus string

const (
	StatusLobby     GameStatus = "lobby"
	StatusPlaying   GameStatus = "playing"
	StatusPaused    GameStatus = "paused"
	StatusCompleted GameStatus = "completed"
)

// ActiveGame is one room: its lobby, and once started, its engine state.
// mu guards every field; the engine itself is lock-free.
type ActiveGame struct {
	mu sync.RWMutex

	RoomCode  string            `json:"roomCode"`
	RulesName string            `json:"rules"`
	Status    GameStatus        `json:"status"`
	Players   []PlayerSlot      `json:"players"`
	State     *engine.GameState `json:"state,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`

	rules *rules.GameRules
}

// PlayerSlot is a seat in a room. Players[0] is the room creator.
type PlayerSlot struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joinedAt"`
}

func (g *ActiveGame) slotByToken(token string) int {
	return slices.IndexFunc(g.Players, func(s PlayerSlot) bool { return s.Token == token })
}

func (g *ActiveGame) touch() {
	g.UpdatedAt = time.Now().UTC()
}

type GameManager struct {
	catalog   *rules.Catalog
	games     map[string]*ActiveGame
	usedCodes map[string]bool
	mu        sync.RWMutex

	// dealOptions are passed to engine.NewGame on start.
	dealOptions []engine.Option
}

func NewGameManager(catalog *rules.Catalog, opts ...engine.Option) *GameManager {
	return &GameManager{
		catalog:     catalog,
		games:       make(map[string]*ActiveGame),
		usedCodes:   make(map[string]bool),
		dealOptions: opts,
	}
}

// CreateGame opens a lobby for the named rules with username as creator.
func (gm *GameManager) CreateGame(rulesName, username string) (*ActiveGame, PlayerSlot, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, PlayerSlot{}, err
	}
	r, ok := gm.catalog.Get(rulesName)
	if !ok {
		return nil, PlayerSlot{}, apperrors.Newf(codeUnknownRules, "no rules named %q", rulesName)
	}

	gm.mu.Lock()
	roomCode := GenerateRoomCode(gm.usedCodes)
	gm.usedCodes[roomCode] = true
	gm.mu.Unlock()

	now := time.Now().UTC()
	slot := newSlot(username, now)
	game := &ActiveGame{
		RoomCode:  roomCode,
		RulesName: r.Name,
		Status:    StatusLobby,
		Players:   []PlayerSlot{slot},
		CreatedAt: now,
		UpdatedAt: now,
		rules:     r,
	}

	gm.mu.Lock()
	gm.games[roomCode] = game
	gm.mu.Unlock()

	return game, slot, nil
}

func newSlot(username string, now time.Time) PlayerSlot {
	return PlayerSlot{
		ID:        uuid.NewString(),
		Username:  username,
		Token:     uuid.NewString(),
		Connected: true,
		JoinedAt:  now,
	}
}

func (gm *GameManager) JoinGame(roomCode, username string) (*ActiveGame, PlayerSlot, error) {
	roomCode = NormalizeRoomCode(roomCode)
	if err := ValidateRoomCode(roomCode); err != nil {
		return nil, PlayerSlot{}, err
	}
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, PlayerSlot{}, err
	}

	game, err := gm.GetGame(roomCode)
	if err != nil {
		return nil, PlayerSlot{}, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	if game.Status != StatusLobby {
		return nil, PlayerSlot{}, apperrors.New(codeGameStarted, "cannot join a game in progress")
	}
	if len(game.Players) >= game.rules.MaxPlayers {
		return nil, PlayerSlot{}, apperrors.Newf(codeRoomFull, "lobby is full (%d/%d players)", len(game.Players), game.rules.MaxPlayers)
	}
	for _, s := range game.Players {
		if strings.EqualFold(s.Username, username) {
			return nil, PlayerSlot{}, apperrors.New(codeUsernameTaken, "username already taken")
		}
	}

	slot := newSlot(username, time.Now().UTC())
	game.Players = append(game.Players, slot)
	game.touch()
	return game, slot, nil
}

// LeaveGame removes a player from a lobby. The next player in join order
// becomes creator; an emptied lobby is completed so cleanup reclaims it.
func (gm *GameManager) LeaveGame(roomCode, token string) (*ActiveGame, error) {
	game, err := gm.GetGame(roomCode)
	if err != nil {
		return nil, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	if game.Status != StatusLobby {
		return nil, apperrors.New(codeGameStarted, "cannot leave a game in progress")
	}
	i := game.slotByToken(token)
	if i < 0 {
		return nil, apperrors.New(codeNotInGame, "invalid token")
	}
	game.Players = slices.Delete(game.Players, i, i+1)
	if len(game.Players) == 0 {
		game.Status = StatusCompleted
	}
	game.touch()
	return game, nil
}

// StartGame seats the lobby in join order and deals. Only the creator may
// start, and the rules' player bounds apply.
func (gm *GameManager) StartGame(roomCode, token string) (*ActiveGame, error) {
	game, err := gm.GetGame(roomCode)
	if err != nil {
		return nil, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	if game.Status != StatusLobby {
		return nil, apperrors.New(codeGameStarted, "game already started")
	}
	if game.slotByToken(token) != 0 {
		return nil, apperrors.New(codeNotCreator, "only the room creator can start the game")
	}

	seats := make([]engine.Seat, len(game.Players))
	for i, s := range game.Players {
		seats[i] = engine.Seat{ID: s.ID, Name: s.Username}
	}
	state, err := engine.NewGame(game.rules, seats, gm.dealOptions...)
	if err != nil {
		return nil, err
	}

	game.State = state
	game.Status = StatusPlaying
	game.touch()
	log.Printf("Game %s started: %s with %d players", game.RoomCode, game.RulesName, len(seats))
	return game, nil
}

func (gm *GameManager) GetGame(roomCode string) (*ActiveGame, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[NormalizeRoomCode(roomCode)]
	if !exists {
		return nil, apperrors.New(codeRoomNotFound, "game not found")
	}
	return game, nil
}

// GetGameByToken returns the game holding token and the token's slot.
func (gm *GameManager) GetGameByToken(token string) (*ActiveGame, int, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	for _, game := range gm.games {
		game.mu.RLock()
		i := game.slotByToken(token)
		game.mu.RUnlock()
		if i >= 0 {
			return game, i, nil
		}
	}
	return nil, -1, apperrors.New(codeTokenNotFound, "invalid session token")
}

// Games returns every registered game.
func (gm *GameManager) Games() []*ActiveGame {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	games := make([]*ActiveGame, 0, len(gm.games))
	for _, g := range gm.games {
		games = append(games, g)
	}
	return games
}

// RemoveGame drops a game from memory and frees its room code.
func (gm *GameManager) RemoveGame(roomCode string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	delete(gm.games, roomCode)
	delete(gm.usedCodes, roomCode)
}

// Restore registers games loaded from storage. Games whose rules are no
// longer in the catalog, or whose state does not match their seats, are
// skipped.
func (gm *GameManager) Restore(games []*ActiveGame, usedCodes map[string]bool) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for code, inUse := range usedCodes {
		if inUse {
			gm.usedCodes[code] = true
		}
	}

	restored := 0
	for _, game := range games {
		r, ok := gm.catalog.Get(game.RulesName)
		if !ok {
			log.Printf("Skipping game %s: unknown rules %q", game.RoomCode, game.RulesName)
			continue
		}
		if err := checkRestoredState(game); err != nil {
			log.Printf("Skipping game %s: %v", game.RoomCode, err)
			continue
		}
		game.rules = r
		// Nobody is connected right after a restart.
		for i := range game.Players {
			game.Players[i].Connected = false
		}
		if game.Status == StatusPlaying {
			game.Status = StatusPaused
		}
		gm.games[game.RoomCode] = game
		gm.usedCodes[game.RoomCode] = true
		restored++
		log.Printf("Restored game: %s (%s, status: %s)", game.RoomCode, game.RulesName, game.Status)
	}
	return restored
}

// checkRestoredState rejects stored games whose engine state no longer
// lines up with the seats, so a damaged row cannot panic a render.
func checkRestoredState(game *ActiveGame) error {
	if game.State == nil {
		if game.Status == StatusPlaying || game.Status == StatusPaused {
			return fmt.Errorf("%s game has no state", game.Status)
		}
		return nil
	}
	state := game.State
	if len(state.Players) != len(game.Players) {
		return fmt.Errorf("state has %d players for %d seats", len(state.Players), len(game.Players))
	}
	if state.Current < 0 || state.Current >= len(state.Players) {
		return fmt.Errorf("current player %d out of range", state.Current)
	}
	for i, p := range state.Players {
		if p == nil || p.ID != game.Players[i].ID {
			return fmt.Errorf("seat %d does not match its player", i)
		}
	}
	return nil
}

// ReconnectPlayer marks the token's slot connected again and resumes a
// paused game once every player is back.
func (gm *GameManager) ReconnectPlayer(token string) (*ActiveGame, int, error) {
	game, slot, err := gm.GetGameByToken(token)
	if err != nil {
		return nil, -1, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	game.Players[slot].Connected = true
	if game.Status == StatusPaused && allConnected(game.Players) {
		game.Status = StatusPlaying
	}
	game.touch()
	return game, slot, nil
}

// MarkPlayerDisconnected flags the token's slot and pauses a running game.
func (gm *GameManager) MarkPlayerDisconnected(token string) (paused bool, game *ActiveGame, player PlayerSlot, err error) {
	game, slot, err := gm.GetGameByToken(token)
	if err != nil {
		return false, nil, PlayerSlot{}, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	slot = game.slotByToken(token)
	if slot < 0 {
		return false, nil, PlayerSlot{}, apperrors.New(codeTokenNotFound, "invalid session token")
	}
	game.Players[slot].Connected = false
	if game.Status == StatusPlaying {
		game.Status = StatusPaused
		paused = true
	}
	game.touch()
	return paused, game, game.Players[slot], nil
}

func allConnected(players []PlayerSlot) bool {
	for _, s := range players {
		if !s.Connected {
			return false
		}
	}
	return true
}

// AvailableActions lists what slot may do now. Players waiting for their
// turn get an empty list.
func (gm *GameManager) AvailableActions(game *ActiveGame, slot int) []ActionInfo {
	game.mu.RLock()
	defer game.mu.RUnlock()
	return game.actionsFor(slot)
}

func (g *ActiveGame) actionsFor(slot int) []ActionInfo {
	if g.Status != StatusPlaying || g.State == nil || slot != g.State.Current {
		return []ActionInfo{}
	}
	available := engine.AvailableActions(g.rules, g.State)
	infos := make([]ActionInfo, len(available))
	for i, a := range available {
		infos[i] = ActionInfo{Name: a.Name, Description: a.Description, NeedsSelection: a.NeedsSelection()}
	}
	return infos
}

// ExecuteAction plays the named action for the token's player. It reports
// whether an ending condition now holds, in which case the game is
// completed.
func (gm *GameManager) ExecuteAction(token string, req ExecuteActionRequest) (*ActiveGame, bool, error) {
	game, slot, err := gm.GetGameByToken(token)
	if err != nil {
		return nil, false, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()

	if game.Status != StatusPlaying {
		return game, false, apperrors.Newf(codeGameNotPlaying, "game is %s", game.Status)
	}
	if slot != game.State.Current {
		return game, false, apperrors.New(codeNotYourTurn, "it is not your turn")
	}

	action, err := engine.FindAction(game.rules, req.Action)
	if err != nil {
		return game, false, err
	}
	if err := engine.Execute(game.rules, game.State, action, engine.Selection{From: req.From, To: req.To}); err != nil {
		return game, false, err
	}
	game.touch()

	over, err := engine.EndingReached(game.rules, game.State)
	if err != nil {
		log.Printf("Game %s: ending conditions failed: %v", game.RoomCode, err)
		return game, false, nil
	}
	if over {
		game.Status = StatusCompleted
		log.Printf("Game %s completed after turn %d", game.RoomCode, game.State.Turn)
	}
	return game, over, nil
}

// GameState builds the game_state payload as seen by slot.
func (gm *GameManager) GameState(game *ActiveGame, slot int) GameStateMessage {
	game.mu.RLock()
	defer game.mu.RUnlock()

	msg := GameStateMessage{RoomCode: game.RoomCode, Status: string(game.Status)}
	if game.State == nil {
		return msg
	}
	observer := ""
	if slot >= 0 && slot < len(game.Players) {
		observer = game.Players[slot].ID
	}
	msg.State = engine.GetClientState(game.rules, game.State, observer)
	msg.YourTurn = game.Status == StatusPlaying && slot == game.State.Current
	if msg.YourTurn {
		msg.Actions = game.actionsFor(slot)
	}
	return msg
}

// Standings ranks the seated players by cards still held, fewest first.
func (gm *GameManager) Standings(game *ActiveGame) []Standing {
	game.mu.RLock()
	defer game.mu.RUnlock()

	if game.State == nil {
		return nil
	}
	standings := make([]Standing, len(game.State.Players))
	for i, p := range game.State.Players {
		held := 0
		for _, g := range p.Groups {
			held += g.Len()
		}
		standings[i] = Standing{PlayerID: p.ID, Username: p.Name, Cards: held}
	}
	slices.SortStableFunc(standings, func(a, b Standing) int { return a.Cards - b.Cards })
	return standings
}

// Lobby builds the lobby_update payload personalised for token.
func (gm *GameManager) Lobby(game *ActiveGame, token string) LobbyState {
	game.mu.RLock()
	defer game.mu.RUnlock()

	state := LobbyState{
		RoomCode:   game.RoomCode,
		Rules:      game.RulesName,
		Players:    make([]LobbyPlayer, len(game.Players)),
		MinPlayers: game.rules.MinPlayers,
		MaxPlayers: game.rules.MaxPlayers,
		Status:     string(game.Status),
	}
	for i, s := range game.Players {
		state.Players[i] = LobbyPlayer{
			ID:        s.ID,
			Username:  s.Username,
			Connected: s.Connected,
			Creator:   i == 0,
			IsYou:     s.Token == token,
		}
	}
	n := len(game.Players)
	state.CanStart = game.Status == StatusLobby && n >= game.rules.MinPlayers && n <= game.rules.MaxPlayers
	return state
}

// Slots returns a copy of the game's seats.
func (gm *GameManager) Slots(game *ActiveGame) []PlayerSlot {
	game.mu.RLock()
	defer game.mu.RUnlock()
	return slices.Clone(game.Players)
}
