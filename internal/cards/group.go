package cards

import (
	"fmt"
	"slices"

	"cardtable-server/internal/errors"
)

type Visibility string

const (
	FaceUp                Visibility = "face_up"
	FaceDown              Visibility = "face_down"
	TopFaceUpRestFaceDown Visibility = "top_face_up_rest_face_down"
	VisibleToOwner        Visibility = "visible_to_owner"
)

func (v Visibility) Valid() bool {
	switch v {
	case FaceUp, FaceDown, TopFaceUpRestFaceDown, VisibleToOwner:
		return true
	}
	return false
}

type Layout string

const (
	Pile   Layout = "pile"
	Spread Layout = "spread"
)

// CardGroup is a named, ordered collection of cards. Cards are stored top
// first: index 0 is the most recently added card.
type CardGroup struct {
	Name       string     `json:"name"`
	Owner      string     `json:"owner,omitempty"`
	Cards      []Card     `json:"cards"`
	MaxSize    *int       `json:"maxSize,omitempty"`
	Layout     Layout     `json:"layout"`
	Visibility Visibility `json:"visibility"`
}

func (g *CardGroup) Len() int {
	return len(g.Cards)
}

func (g *CardGroup) Top() (Card, bool) {
	if len(g.Cards) == 0 {
		return Card{}, false
	}
	return g.Cards[0], true
}

func (g *CardGroup) Full() bool {
	return g.MaxSize != nil && len(g.Cards) >= *g.MaxSize
}

// Room returns how many more cards fit, and false when the group is unbounded.
func (g *CardGroup) Room() (int, bool) {
	if g.MaxSize == nil {
		return 0, false
	}
	return max(*g.MaxSize-len(g.Cards), 0), true
}

// Push places cards on the group one at a time, so the last card given
// ends up on top.
func (g *CardGroup) Push(cards ...Card) error {
	if len(cards) == 0 {
		return nil
	}
	if room, bounded := g.Room(); bounded && len(cards) > room {
		return errors.Newf(errors.CodeInvalidSelection,
			"%s holds at most %d cards", g.Name, *g.MaxSize)
	}
	stacked := slices.Clone(cards)
	slices.Reverse(stacked)
	g.Cards = append(stacked, g.Cards...)
	return nil
}

// Peek returns the cards at the given positions without removing them.
func (g *CardGroup) Peek(indices []int) ([]Card, error) {
	if err := g.checkIndices(indices); err != nil {
		return nil, err
	}
	picked := make([]Card, 0, len(indices))
	for _, i := range indices {
		picked = append(picked, g.Cards[i])
	}
	return picked, nil
}

// TakeAt removes the cards at the given positions and returns them in
// selection order. The group is untouched on error.
func (g *CardGroup) TakeAt(indices []int) ([]Card, error) {
	picked, err := g.Peek(indices)
	if err != nil {
		return nil, err
	}
	remaining := make([]Card, 0, len(g.Cards)-len(indices))
	for i, card := range g.Cards {
		if !slices.Contains(indices, i) {
			remaining = append(remaining, card)
		}
	}
	g.Cards = remaining
	return picked, nil
}

// TakeTop removes up to n cards from the top.
func (g *CardGroup) TakeTop(n int) []Card {
	n = min(max(n, 0), len(g.Cards))
	taken := slices.Clone(g.Cards[:n])
	g.Cards = slices.Clone(g.Cards[n:])
	return taken
}

func (g *CardGroup) TakeAll() []Card {
	return g.TakeTop(len(g.Cards))
}

func (g *CardGroup) checkIndices(indices []int) error {
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(g.Cards) {
			return errors.Newf(errors.CodeInvalidSelection,
				"index %d out of range for %s (%d cards)", i, g.Name, len(g.Cards))
		}
		if seen[i] {
			return errors.Newf(errors.CodeInvalidSelection, "index %d selected twice", i)
		}
		seen[i] = true
	}
	return nil
}

func (g *CardGroup) Clone() *CardGroup {
	clone := *g
	clone.Cards = slices.Clone(g.Cards)
	if g.MaxSize != nil {
		size := *g.MaxSize
		clone.MaxSize = &size
	}
	return &clone
}

func (g *CardGroup) String() string {
	return fmt.Sprintf("%s%v", g.Name, g.Cards)
}
