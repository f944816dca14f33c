package cards_test

import (
	"encoding/json"
	"math/rand"
	"slices"
	"testing"

	"cardtable-server/internal/cards"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardString(t *testing.T) {
	var tests = []struct {
		card cards.Card
		want string
	}{
		{cards.Card{Rank: cards.Seven, Suit: cards.Clubs}, "Seven of Clubs"},
		{cards.Card{Rank: cards.Ace, Suit: cards.Spades}, "Ace of Spades"},
		{cards.Card{Rank: cards.Joker}, "Joker"},
		{cards.Covered, "Covered"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.card.String())
		})
	}
}

func TestCardUnicode(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("🂡", cards.Card{Rank: cards.Ace, Suit: cards.Spades}.Unicode())
	assert.Equal("🂮", cards.Card{Rank: cards.King, Suit: cards.Spades}.Unicode())
	assert.Equal("🂽", cards.Card{Rank: cards.Queen, Suit: cards.Hearts}.Unicode())
	assert.Equal("🃗", cards.Card{Rank: cards.Seven, Suit: cards.Clubs}.Unicode())
	assert.Equal("🂠", cards.Covered.Unicode())
}

func TestParseRank(t *testing.T) {
	var tests = []struct {
		text string
		want cards.Rank
	}{
		{"seven", cards.Seven},
		{"Seven", cards.Seven},
		{"7", cards.Seven},
		{"10", cards.Ten},
		{"q", cards.Queen},
		{"joker", cards.Joker},
		{"covered", cards.Hidden},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := cards.ParseRank(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := cards.ParseRank("eleven")
	assert.Error(t, err)
}

func TestParseSuit(t *testing.T) {
	got, err := cards.ParseSuit("Hearts")
	require.NoError(t, err)
	assert.Equal(t, cards.Hearts, got)

	_, err = cards.ParseSuit("stars")
	assert.Error(t, err)
}

func TestCardJSON(t *testing.T) {
	assert := assert.New(t)

	data, err := json.Marshal(cards.Card{Rank: cards.Seven, Suit: cards.Diamonds})
	require.NoError(t, err)
	assert.JSONEq(`{"rank":"seven","suit":"diamonds"}`, string(data))

	data, err = json.Marshal(cards.Card{Rank: cards.Joker})
	require.NoError(t, err)
	assert.JSONEq(`{"rank":"joker"}`, string(data))

	var card cards.Card
	require.NoError(t, json.Unmarshal([]byte(`{"rank":"queen","suit":"spades"}`), &card))
	assert.Equal(cards.Card{Rank: cards.Queen, Suit: cards.Spades}, card)
}

func TestRanks(t *testing.T) {
	ranks := cards.Ranks()
	assert.Len(t, ranks, 13)
	assert.Equal(t, cards.Ace, ranks[0])
	assert.Equal(t, cards.King, ranks[12])
	assert.False(t, slices.Contains(ranks, cards.Joker))
}

func TestDraw(t *testing.T) {
	deck := cards.Deck{Cards: []cards.Card{
		{Rank: cards.Two, Suit: cards.Hearts},
		{Rank: cards.Three, Suit: cards.Hearts},
	}}

	card, ok := deck.Draw()
	assert.True(t, ok)
	assert.Equal(t, cards.Card{Rank: cards.Three, Suit: cards.Hearts}, card)
	assert.Equal(t, 1, deck.Count())

	deck.Draw()
	_, ok = deck.Draw()
	assert.False(t, ok)
	assert.True(t, deck.Empty())
}

func TestShuffle(t *testing.T) {
	var base []cards.Card
	for _, suit := range cards.Suits() {
		for _, rank := range cards.Ranks() {
			base = append(base, cards.Card{Rank: rank, Suit: suit})
		}
	}
	deckA := cards.Deck{Cards: slices.Clone(base)}
	deckB := cards.Deck{Cards: slices.Clone(base)}

	deckA.Shuffle(rand.New(rand.NewSource(42)))
	deckB.Shuffle(rand.New(rand.NewSource(42)))

	assert.Equal(t, deckA.Cards, deckB.Cards, "same seed should shuffle identically")
	assert.NotEqual(t, base, deckA.Cards, "shuffling didn't work")
	assert.ElementsMatch(t, base, deckA.Cards)
}
