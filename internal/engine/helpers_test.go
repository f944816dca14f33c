package engine_test

import (
	"encoding/json"
	"fmt"
	"slices"
	"testing"

	"cardtable-server/internal/cards"
	"cardtable-server/internal/engine"
	"cardtable-server/internal/rules"

	"github.com/stretchr/testify/require"
)

func size(n int) *int { return &n }

func card(rank cards.Rank, suit cards.Suit) cards.Card {
	return cards.Card{Rank: rank, Suit: suit}
}

func seats(n int) []engine.Seat {
	list := make([]engine.Seat, n)
	for i := range list {
		list[i] = engine.Seat{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("Player %d", i+1)}
	}
	return list
}

// standardCards values Ace through King 1-13 and makes twos wild.
func standardCards() map[cards.Rank]rules.CardDescription {
	m := make(map[cards.Rank]rules.CardDescription)
	for _, rank := range cards.Ranks() {
		m[rank] = rules.CardDescription{Value: int(rank), Wild: rank == cards.Two}
	}
	return m
}

func current(name string) *rules.GroupRef {
	return &rules.GroupRef{Owner: rules.CurrentPlayer, Name: name}
}

func communal(name string) *rules.GroupRef {
	return &rules.GroupRef{Owner: rules.Communal, Name: name}
}

// tableRules is a small shedding game used across the engine tests.
func tableRules() *rules.GameRules {
	c := standardCards()
	c[cards.Ten] = rules.CardDescription{
		Value: 10,
		Consequences: []rules.Action{
			{Name: "burn", Verb: rules.MoveCards, From: communal("discard"), To: communal("burned"), Select: rules.SelectAll},
		},
	}
	return &rules.GameRules{
		Name:       "table",
		MinPlayers: 2,
		MaxPlayers: 4,
		PlayerGroups: []rules.GroupTemplate{
			{Name: "hand", InitialSize: size(5)},
			{Name: "face_up", InitialSize: size(0), MaxSize: size(3), Visibility: cards.FaceUp},
		},
		CommunalGroups: []rules.GroupTemplate{
			{Name: "discard", InitialSize: size(0), Visibility: cards.TopFaceUpRestFaceDown},
			{Name: "burned", InitialSize: size(0), Visibility: cards.FaceDown},
			{Name: "draw_pile", Remainder: true, Visibility: cards.FaceDown},
		},
		Cards: c,
		Actions: []rules.Action{
			{
				Name: "play_set",
				Verb: rules.MoveCards,
				From: current("hand"),
				To:   communal("discard"),
				CardConditions: []rules.Condition{
					{Kind: rules.SelectionSize, Comparator: rules.GreaterOrEqual, Value: 1},
					{Kind: rules.SameRank},
					{Kind: rules.Playable},
				},
				Consequences: []rules.Action{
					{Name: "next", Verb: rules.MoveNextTurn},
					{
						Name:       "beat",
						Verb:       rules.ConstrainPlayableCards,
						Comparator: rules.GreaterOrEqual,
						RelativeTo: communal("discard"),
						Conditions: []rules.Condition{
							{Kind: rules.GroupSize, Group: communal("discard"), Comparator: rules.Greater, Value: 0},
						},
					},
				},
			},
			{Name: "lay_up", Verb: rules.MoveCards, From: current("hand"), To: current("face_up")},
			{Name: "swap", Verb: rules.SwapCards, From: current("hand"), To: current("face_up")},
			{
				Name:   "draw",
				Verb:   rules.MoveCards,
				From:   communal("draw_pile"),
				To:     current("hand"),
				Select: rules.SelectTop,
				Count:  1,
				Conditions: []rules.Condition{
					{Kind: rules.GroupSize, Group: communal("draw_pile"), Comparator: rules.Greater, Value: 0},
				},
			},
			{Name: "hold", Verb: rules.ExcludeActions, Exclude: []string{"pass"}},
			{Name: "rest", Verb: rules.EndPhase},
			{Name: "pass", Verb: rules.MoveNextTurn},
		},
	}
}

// emptyGame seats players without dealing a single card.
func emptyGame(t *testing.T, r *rules.GameRules, players int) *engine.GameState {
	t.Helper()
	state, err := engine.NewGame(r, seats(players), engine.WithDeck([]cards.Card{}))
	require.NoError(t, err)
	return state
}

// dealt returns a deck that deals the given cards in order.
func dealt(order ...cards.Card) []cards.Card {
	deck := slices.Clone(order)
	slices.Reverse(deck)
	return deck
}

func snapshot(t *testing.T, state *engine.GameState) string {
	t.Helper()
	data, err := json.Marshal(state)
	require.NoError(t, err)
	return string(data)
}

func indexOf(t *testing.T, group *cards.CardGroup, c cards.Card) int {
	t.Helper()
	i := slices.Index(group.Cards, c)
	require.GreaterOrEqual(t, i, 0, "%s not in %s", c, group.Name)
	return i
}

func actionNames(actions []*rules.Action) []string {
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.Name)
	}
	return names
}

func execute(t *testing.T, r *rules.GameRules, state *engine.GameState, name string, selection engine.Selection) error {
	t.Helper()
	action, err := engine.FindAction(r, name)
	require.NoError(t, err)
	return engine.Execute(r, state, action, selection)
}
