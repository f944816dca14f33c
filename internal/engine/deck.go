package engine

import (
	"math/rand"

	"cardtable-server/internal/cards"
	"cardtable-server/internal/rules"
)

// BuildDeck returns a shuffled deck of every configured suit crossed with
// every rank in the card map, plus jokers when the map has a joker entry.
// A nil rng uses the global source.
func BuildDeck(r *rules.GameRules, rng *rand.Rand) cards.Deck {
	suits := r.Deck.SuitSet()
	ranks := r.Ranks()
	_, jokers := r.Cards[cards.Joker]

	deck := cards.Deck{Cards: make([]cards.Card, 0, len(suits)*len(ranks)*r.Deck.CopyCount())}
	for range r.Deck.CopyCount() {
		for _, suit := range suits {
			for _, rank := range ranks {
				if rank == cards.Joker {
					continue
				}
				deck.Cards = append(deck.Cards, cards.Card{Rank: rank, Suit: suit})
			}
		}
		if jokers {
			for range r.Deck.JokerCount() {
				deck.Cards = append(deck.Cards, cards.Card{Rank: cards.Joker})
			}
		}
	}

	deck.Shuffle(rng)
	return deck
}
