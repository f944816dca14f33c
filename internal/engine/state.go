// Package engine deals, evaluates and plays games described by a
// rules.GameRules value. It performs no I/O and holds no locks: callers
// serialize mutations of a GameState themselves.
package engine

import (
	"slices"

	"cardtable-server/internal/cards"
	"cardtable-server/internal/rules"
)

// Seat identifies a player joining a new game.
type Seat struct {
	ID   string
	Name string
}

type Player struct {
	ID     string                      `json:"id"`
	Name   string                      `json:"name"`
	Groups map[string]*cards.CardGroup `json:"groups"`
}

// CardCount totals the cards held in the named groups.
func (p *Player) CardCount(names ...string) int {
	total := 0
	for _, name := range names {
		if g, ok := p.Groups[name]; ok {
			total += g.Len()
		}
	}
	return total
}

// Constraint narrows which cards are playable during the current phase.
type Constraint struct {
	Match      rules.MatchMode  `json:"match"`
	Comparator rules.Comparator `json:"comparator,omitempty"`
	Value      int              `json:"value,omitempty"`
	// Card is the reference card for suit_or_rank matching.
	Card *cards.Card `json:"card,omitempty"`
}

// PhaseState is the transient filtering state of the current turn phase.
// Ending the phase or moving to the next turn clears it.
type PhaseState struct {
	Number      int          `json:"number"`
	Constraints []Constraint `json:"constraints,omitempty"`
	Excluded    []string     `json:"excluded,omitempty"`
}

func (p PhaseState) IsExcluded(action string) bool {
	return slices.Contains(p.Excluded, action)
}

func (p *PhaseState) exclude(actions ...string) {
	for _, name := range actions {
		if !p.IsExcluded(name) {
			p.Excluded = append(p.Excluded, name)
		}
	}
	slices.Sort(p.Excluded)
}

func (p *PhaseState) next() {
	*p = PhaseState{Number: p.Number + 1}
}

type GameState struct {
	Rules    string                      `json:"rules"`
	Deck     cards.Deck                  `json:"deck"`
	Communal map[string]*cards.CardGroup `json:"communal"`
	Players  []*Player                   `json:"players"`
	Current  int                         `json:"current"`
	Turn     int                         `json:"turn"`
	Phase    PhaseState                  `json:"phase"`
}

func (s *GameState) CurrentPlayer() *Player {
	return s.Players[s.Current]
}

func (s *GameState) Player(id string) (*Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// CardCount is the number of cards in the deck and every group.
func (s *GameState) CardCount() int {
	total := s.Deck.Count()
	for _, g := range s.Communal {
		total += g.Len()
	}
	for _, p := range s.Players {
		for _, g := range p.Groups {
			total += g.Len()
		}
	}
	return total
}

func (s *GameState) Clone() *GameState {
	clone := &GameState{
		Rules:    s.Rules,
		Deck:     s.Deck.Clone(),
		Communal: cloneGroups(s.Communal),
		Players:  make([]*Player, len(s.Players)),
		Current:  s.Current,
		Turn:     s.Turn,
		Phase: PhaseState{
			Number:      s.Phase.Number,
			Constraints: slices.Clone(s.Phase.Constraints),
			Excluded:    slices.Clone(s.Phase.Excluded),
		},
	}
	for i, p := range s.Players {
		clone.Players[i] = &Player{ID: p.ID, Name: p.Name, Groups: cloneGroups(p.Groups)}
	}
	return clone
}

func cloneGroups(groups map[string]*cards.CardGroup) map[string]*cards.CardGroup {
	if groups == nil {
		return nil
	}
	clone := make(map[string]*cards.CardGroup, len(groups))
	for name, g := range groups {
		clone[name] = g.Clone()
	}
	return clone
}
