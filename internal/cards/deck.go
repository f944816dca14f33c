package cards

import (
	"math/rand"
	"slices"
)

// Deck is the undealt stock. Drawing pops from the end of Cards.
type Deck struct {
	Cards []Card `json:"cards"`
}

func (deck Deck) Count() int {
	return len(deck.Cards)
}

func (deck Deck) Empty() bool {
	return len(deck.Cards) == 0
}

// Draw removes and returns the last card, or false when the deck is empty.
func (deck *Deck) Draw() (Card, bool) {
	if len(deck.Cards) == 0 {
		return Card{}, false
	}
	card := deck.Cards[len(deck.Cards)-1]
	deck.Cards = deck.Cards[:len(deck.Cards)-1]
	return card, true
}

// DrawAll empties the deck, returning cards in draw order.
func (deck *Deck) DrawAll() (drawn []Card) {
	for {
		card, ok := deck.Draw()
		if !ok {
			return
		}
		drawn = append(drawn, card)
	}
}

func (d *Deck) Shuffle(rng *rand.Rand) {
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(d.Count(), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

func (d Deck) Clone() Deck {
	return Deck{Cards: slices.Clone(d.Cards)}
}
