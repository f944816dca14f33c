package engine_test

import (
	"testing"

	"cardtable-server/internal/cards"
	"cardtable-server/internal/engine"
	"cardtable-server/internal/errors"
	"cardtable-server/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteScenarioC(t *testing.T) {
	r := tableRules()
	sevenClubs := card(cards.Seven, cards.Clubs)
	sevenDiamonds := card(cards.Seven, cards.Diamonds)
	eightDiamonds := card(cards.Eight, cards.Diamonds)

	t.Run("same rank moves", func(t *testing.T) {
		assert := assert.New(t)
		state := emptyGame(t, r, 2)
		state.Players[0].Groups["hand"].Cards = []cards.Card{sevenClubs, sevenDiamonds, eightDiamonds}

		err := execute(t, r, state, "play_set", engine.Selection{From: []int{0, 1}})
		require.NoError(t, err)

		assert.Equal([]cards.Card{eightDiamonds}, state.Players[0].Groups["hand"].Cards)
		assert.ElementsMatch([]cards.Card{sevenClubs, sevenDiamonds}, state.Communal["discard"].Cards)
	})

	t.Run("mixed ranks are rejected", func(t *testing.T) {
		state := emptyGame(t, r, 2)
		state.Players[0].Groups["hand"].Cards = []cards.Card{sevenClubs, sevenDiamonds, eightDiamonds}
		before := snapshot(t, state)

		err := execute(t, r, state, "play_set", engine.Selection{From: []int{0, 2}})

		assert.True(t, errors.HasCode(err, errors.CodeInvalidSelection))
		assert.Equal(t, before, snapshot(t, state))
	})
}

func TestExecuteLastSelectedCardEndsOnTop(t *testing.T) {
	r := tableRules()
	state := emptyGame(t, r, 2)
	state.Players[0].Groups["hand"].Cards = []cards.Card{card(cards.Seven, cards.Clubs), card(cards.Two, cards.Hearts)}

	require.NoError(t, execute(t, r, state, "play_set", engine.Selection{From: []int{1, 0}}))

	top, _ := state.Communal["discard"].Top()
	assert.Equal(t, card(cards.Seven, cards.Clubs), top)
	require.Len(t, state.Phase.Constraints, 1)
	assert.Equal(t, 7, state.Phase.Constraints[0].Value)
}

func TestExecuteSelectionErrorsLeaveStateUnchanged(t *testing.T) {
	r := tableRules()

	var tests = []struct {
		name      string
		action    string
		selection engine.Selection
		code      errors.Code
	}{
		{"empty selection", "play_set", engine.Selection{}, errors.CodeInvalidSelection},
		{"index out of range", "play_set", engine.Selection{From: []int{9}}, errors.CodeInvalidSelection},
		{"duplicate index", "play_set", engine.Selection{From: []int{0, 0}}, errors.CodeInvalidSelection},
		{"over capacity", "lay_up", engine.Selection{From: []int{0, 1, 2, 3}}, errors.CodeInvalidSelection},
		{"unequal swap", "swap", engine.Selection{From: []int{0, 1}, To: []int{0}}, errors.CodeInvalidSelection},
		{"empty swap", "swap", engine.Selection{}, errors.CodeInvalidSelection},
		{"swap out of range", "swap", engine.Selection{From: []int{0}, To: []int{5}}, errors.CodeInvalidSelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := emptyGame(t, r, 2)
			state.Players[0].Groups["hand"].Cards = []cards.Card{
				card(cards.Four, cards.Clubs),
				card(cards.Five, cards.Clubs),
				card(cards.Six, cards.Clubs),
				card(cards.Seven, cards.Clubs),
			}
			state.Players[0].Groups["face_up"].Cards = []cards.Card{card(cards.King, cards.Hearts)}
			before := snapshot(t, state)

			err := execute(t, r, state, tt.action, tt.selection)

			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, before, snapshot(t, state))
		})
	}
}

func TestExecuteSwap(t *testing.T) {
	assert := assert.New(t)
	r := tableRules()
	state := emptyGame(t, r, 2)
	hand := state.Players[0].Groups["hand"]
	faceUp := state.Players[0].Groups["face_up"]
	hand.Cards = []cards.Card{card(cards.Ace, cards.Clubs), card(cards.Three, cards.Clubs), card(cards.Four, cards.Clubs)}
	faceUp.Cards = []cards.Card{card(cards.King, cards.Hearts), card(cards.Queen, cards.Hearts)}

	require.NoError(t, execute(t, r, state, "swap", engine.Selection{From: []int{2, 0}, To: []int{0, 1}}))

	hand = state.Players[0].Groups["hand"]
	faceUp = state.Players[0].Groups["face_up"]
	assert.Equal([]cards.Card{card(cards.Queen, cards.Hearts), card(cards.Three, cards.Clubs), card(cards.King, cards.Hearts)}, hand.Cards)
	assert.Equal([]cards.Card{card(cards.Four, cards.Clubs), card(cards.Ace, cards.Clubs)}, faceUp.Cards)
	assert.Equal(0, state.Current, "swapping does not end the turn")
}

func TestExecuteMoveTop(t *testing.T) {
	assert := assert.New(t)
	r := tableRules()
	state := emptyGame(t, r, 2)
	state.Communal["draw_pile"].Cards = []cards.Card{card(cards.Ace, cards.Clubs), card(cards.Three, cards.Clubs)}

	require.NoError(t, execute(t, r, state, "draw", engine.Selection{}))

	assert.Equal([]cards.Card{card(cards.Ace, cards.Clubs)}, state.Players[0].Groups["hand"].Cards)
	assert.Equal([]cards.Card{card(cards.Three, cards.Clubs)}, state.Communal["draw_pile"].Cards)
}

func TestTurnCycle(t *testing.T) {
	r := tableRules()

	for players := 2; players <= 4; players++ {
		state := emptyGame(t, r, players)
		for step := 1; step <= players; step++ {
			require.NoError(t, execute(t, r, state, "pass", engine.Selection{}))
			if step < players {
				assert.Equal(t, 0, state.Turn)
				assert.Equal(t, step, state.Current)
			}
		}
		assert.Equal(t, 1, state.Turn)
		assert.Equal(t, 0, state.Current)
	}
}

func TestMoveNextTurnOffset(t *testing.T) {
	assert := assert.New(t)
	r := tableRules()
	r.Actions = append(r.Actions, rules.Action{Name: "skip", Verb: rules.MoveNextTurn, Offset: size(2)})
	r.Actions = append(r.Actions, rules.Action{Name: "again", Verb: rules.MoveNextTurn, Offset: size(0)})
	state := emptyGame(t, r, 3)

	require.NoError(t, execute(t, r, state, "skip", engine.Selection{}))
	assert.Equal(2, state.Current)
	assert.Equal(0, state.Turn)

	require.NoError(t, execute(t, r, state, "skip", engine.Selection{}))
	assert.Equal(1, state.Current)
	assert.Equal(1, state.Turn)

	require.NoError(t, execute(t, r, state, "again", engine.Selection{}))
	assert.Equal(1, state.Current)
	assert.Equal(1, state.Turn)
}

func TestPhaseStateIsTransient(t *testing.T) {
	assert := assert.New(t)
	r := tableRules()
	state := emptyGame(t, r, 2)
	state.Players[0].Groups["hand"].Cards = []cards.Card{card(cards.Nine, cards.Clubs)}
	state.Players[1].Groups["hand"].Cards = []cards.Card{
		card(cards.Five, cards.Spades),
		card(cards.Jack, cards.Spades),
		card(cards.Two, cards.Hearts),
	}

	require.NoError(t, execute(t, r, state, "play_set", engine.Selection{From: []int{0}}))
	assert.Equal(1, state.Current)
	require.Len(t, state.Phase.Constraints, 1)
	assert.Equal(9, state.Phase.Constraints[0].Value)

	err := execute(t, r, state, "play_set", engine.Selection{From: []int{0}})
	assert.True(errors.HasCode(err, errors.CodeInvalidSelection), "a five cannot beat a nine")

	require.NoError(t, execute(t, r, state, "hold", engine.Selection{}))
	assert.NotContains(actionNames(engine.AvailableActions(r, state)), "pass")

	require.NoError(t, execute(t, r, state, "rest", engine.Selection{}))
	assert.Empty(state.Phase.Constraints)
	assert.Empty(state.Phase.Excluded)
	assert.Contains(actionNames(engine.AvailableActions(r, state)), "pass")

	require.NoError(t, execute(t, r, state, "hold", engine.Selection{}))
	require.NoError(t, execute(t, r, state, "play_set", engine.Selection{From: []int{1}}))
	assert.Equal(0, state.Current)
	assert.Empty(state.Phase.Excluded, "moving to the next turn clears exclusions")
	require.Len(t, state.Phase.Constraints, 1)
	assert.Equal(11, state.Phase.Constraints[0].Value)
}

func TestConstraintAgainstEmptyGroupIsVacuous(t *testing.T) {
	beatDiscard := rules.Action{
		Name:       "beat_now",
		Verb:       rules.ConstrainPlayableCards,
		Comparator: rules.GreaterOrEqual,
		RelativeTo: communal("discard"),
	}
	matchDiscard := rules.Action{
		Name:       "match",
		Verb:       rules.ConstrainPlayableCards,
		Match:      rules.MatchSuitOrRank,
		RelativeTo: communal("discard"),
	}

	t.Run("turn action", func(t *testing.T) {
		assert := assert.New(t)
		r := tableRules()
		r.Actions = append(r.Actions, beatDiscard, matchDiscard)
		state := emptyGame(t, r, 2)
		state.Players[0].Groups["hand"].Cards = []cards.Card{card(cards.Three, cards.Clubs)}

		require.NoError(t, execute(t, r, state, "beat_now", engine.Selection{}))
		require.NoError(t, execute(t, r, state, "match", engine.Selection{}))
		assert.Empty(state.Phase.Constraints)

		require.NoError(t, execute(t, r, state, "play_set", engine.Selection{From: []int{0}}))
		assert.Equal(1, state.Communal["discard"].Len())
	})

	t.Run("setup action on an empty deck", func(t *testing.T) {
		assert := assert.New(t)
		r := tableRules()
		r.Setup = []rules.Action{matchDiscard, beatDiscard}

		state, err := engine.NewGame(r, seats(2), engine.WithDeck([]cards.Card{}))
		require.NoError(t, err)
		assert.Empty(state.Phase.Constraints)
		assert.Zero(state.CardCount())
	})
}

func TestExecuteUnavailableAction(t *testing.T) {
	r := tableRules()
	state := emptyGame(t, r, 2)

	err := execute(t, r, state, "draw", engine.Selection{})
	assert.True(t, errors.HasCode(err, errors.CodeActionUnavailable), "draw pile is empty")

	state.Phase.Excluded = []string{"pass"}
	err = execute(t, r, state, "pass", engine.Selection{})
	assert.True(t, errors.HasCode(err, errors.CodeActionUnavailable))
	assert.Equal(t, 0, state.Current)
}

func TestFindActionUnknown(t *testing.T) {
	_, err := engine.FindAction(tableRules(), "shuffle")
	assert.True(t, errors.HasCode(err, errors.CodeUnknownAction))
}

func TestRankConsequences(t *testing.T) {
	assert := assert.New(t)
	r := tableRules()
	state := emptyGame(t, r, 2)
	state.Communal["discard"].Cards = []cards.Card{card(cards.Nine, cards.Hearts), card(cards.Four, cards.Hearts)}
	state.Players[0].Groups["hand"].Cards = []cards.Card{card(cards.Ten, cards.Clubs), card(cards.Ace, cards.Clubs)}

	require.NoError(t, execute(t, r, state, "play_set", engine.Selection{From: []int{0}}))

	assert.Equal(0, state.Communal["discard"].Len())
	assert.Equal(3, state.Communal["burned"].Len())
	assert.Equal(1, state.Current)
	assert.Empty(state.Phase.Constraints, "nothing left to beat after a burn")
}

func TestRankConsequencesOnlyFollowChosenCards(t *testing.T) {
	r := tableRules()
	state := emptyGame(t, r, 2)
	state.Communal["discard"].Cards = []cards.Card{card(cards.Nine, cards.Hearts)}
	state.Communal["draw_pile"].Cards = []cards.Card{card(cards.Ten, cards.Hearts)}

	require.NoError(t, execute(t, r, state, "draw", engine.Selection{}))

	assert.Equal(t, 1, state.Communal["discard"].Len())
	assert.Equal(t, 0, state.Communal["burned"].Len())
}

func TestConsequenceFailureRollsBack(t *testing.T) {
	r := tableRules()
	r.Actions = append(r.Actions, rules.Action{
		Name: "overflow",
		Verb: rules.MoveNextTurn,
		Consequences: []rules.Action{
			{Name: "stack", Verb: rules.MoveCards, From: communal("draw_pile"), To: current("face_up"), Select: rules.SelectAll},
		},
	})
	state := emptyGame(t, r, 2)
	state.Communal["draw_pile"].Cards = []cards.Card{
		card(cards.Ace, cards.Clubs), card(cards.Three, cards.Clubs),
		card(cards.Four, cards.Clubs), card(cards.Five, cards.Clubs),
	}
	before := snapshot(t, state)

	err := execute(t, r, state, "overflow", engine.Selection{})

	assert.True(t, errors.HasCode(err, errors.CodeInvalidSelection))
	assert.Equal(t, before, snapshot(t, state))
}

func TestConsequenceDepthIsBounded(t *testing.T) {
	r := tableRules()
	nested := rules.Action{Name: "rest", Verb: rules.EndPhase}
	for range rules.MaxConsequenceDepth {
		nested = rules.Action{Name: "rest", Verb: rules.EndPhase, Consequences: []rules.Action{nested}}
	}
	state := emptyGame(t, r, 2)
	before := snapshot(t, state)

	err := engine.Execute(r, state, &nested, engine.Selection{})

	assert.True(t, errors.HasCode(err, errors.CodeConfiguration))
	assert.Equal(t, before, snapshot(t, state))
}

func TestAvailableActions(t *testing.T) {
	assert := assert.New(t)
	r := tableRules()
	r.Actions = append(r.Actions, rules.Action{
		Name: "poke",
		Verb: rules.EndPhase,
		Conditions: []rules.Condition{
			{Kind: rules.GroupSize, Group: &rules.GroupRef{Owner: rules.CurrentPlayer, Offset: 5, Name: "hand"}, Comparator: rules.Equal},
		},
	})
	state := emptyGame(t, r, 2)

	first := actionNames(engine.AvailableActions(r, state))
	assert.Equal([]string{"play_set", "lay_up", "swap", "hold", "rest", "pass"}, first)
	assert.Equal(first, actionNames(engine.AvailableActions(r, state)))

	state.Communal["draw_pile"].Cards = []cards.Card{card(cards.Ace, cards.Clubs)}
	state.Phase.Excluded = []string{"lay_up"}
	assert.Equal([]string{"play_set", "swap", "draw", "hold", "rest", "pass"}, actionNames(engine.AvailableActions(r, state)))
}
