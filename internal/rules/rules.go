// Package rules holds the declarative description of a card game: group
// templates, card semantics, turn actions and ending conditions.
package rules

import (
	"slices"

	"cardtable-server/internal/cards"
)

// MaxConsequenceDepth bounds how deeply consequence actions may nest.
const MaxConsequenceDepth = 8

type GameRules struct {
	Name             string                         `yaml:"name" json:"name"`
	Description      string                         `yaml:"description,omitempty" json:"description,omitempty"`
	MinPlayers       int                            `yaml:"min_players" json:"minPlayers"`
	MaxPlayers       int                            `yaml:"max_players" json:"maxPlayers"`
	Deck             DeckSpec                       `yaml:"deck,omitempty" json:"deck"`
	PlayerGroups     []GroupTemplate                `yaml:"player_groups" json:"playerGroups"`
	CommunalGroups   []GroupTemplate                `yaml:"communal_groups" json:"communalGroups"`
	Cards            map[cards.Rank]CardDescription `yaml:"cards" json:"-"`
	Setup            []Action                       `yaml:"setup,omitempty" json:"-"`
	Actions          []Action                       `yaml:"actions" json:"-"`
	EndingConditions []Condition                    `yaml:"ending_conditions,omitempty" json:"-"`
}

// DeckSpec selects which cards go into the deck. Ranks come from the keys
// of GameRules.Cards.
type DeckSpec struct {
	Suits  []cards.Suit `yaml:"suits,omitempty" json:"suits,omitempty"`
	Copies int          `yaml:"copies,omitempty" json:"copies,omitempty"`
	Jokers *int         `yaml:"jokers,omitempty" json:"jokers,omitempty"`
}

func (d DeckSpec) SuitSet() []cards.Suit {
	if len(d.Suits) == 0 {
		return cards.Suits()
	}
	return d.Suits
}

func (d DeckSpec) CopyCount() int {
	if d.Copies <= 0 {
		return 1
	}
	return d.Copies
}

func (d DeckSpec) JokerCount() int {
	if d.Jokers == nil {
		return 2
	}
	return *d.Jokers
}

// GroupTemplate describes a card group created at game start, once per
// player for hand templates or once per game for communal templates.
type GroupTemplate struct {
	Name        string           `yaml:"name" json:"name"`
	InitialSize *int             `yaml:"initial_size,omitempty" json:"initialSize,omitempty"`
	MaxSize     *int             `yaml:"max_size,omitempty" json:"maxSize,omitempty"`
	Layout      cards.Layout     `yaml:"layout,omitempty" json:"layout,omitempty"`
	Visibility  cards.Visibility `yaml:"visibility,omitempty" json:"visibility,omitempty"`
	// Remainder marks the communal group that receives every card left
	// after dealing.
	Remainder bool `yaml:"remainder,omitempty" json:"remainder,omitempty"`
}

// Target is the size dealing fills the group to, if any.
func (t GroupTemplate) Target() (int, bool) {
	if t.InitialSize == nil {
		return 0, false
	}
	return *t.InitialSize, true
}

// NewGroup instantiates an empty group for owner, filling in the default
// layout and visibility.
func (t GroupTemplate) NewGroup(owner string, fallback cards.Visibility) *cards.CardGroup {
	group := &cards.CardGroup{
		Name:       t.Name,
		Owner:      owner,
		Cards:      []cards.Card{},
		Layout:     t.Layout,
		Visibility: t.Visibility,
	}
	if group.Layout == "" {
		group.Layout = cards.Pile
	}
	if group.Visibility == "" {
		group.Visibility = fallback
	}
	if t.MaxSize != nil {
		size := *t.MaxSize
		group.MaxSize = &size
	}
	return group
}

type CardDescription struct {
	Value        int      `yaml:"value"`
	Wild         bool     `yaml:"wild,omitempty"`
	Consequences []Action `yaml:"consequences,omitempty"`
}

// Describe returns the semantics of card's rank, if the rules know it.
func (r *GameRules) Describe(card cards.Card) (CardDescription, bool) {
	desc, ok := r.Cards[card.Rank]
	return desc, ok
}

// Ranks returns the ranks in the card map, sorted.
func (r *GameRules) Ranks() []cards.Rank {
	ranks := make([]cards.Rank, 0, len(r.Cards))
	for rank := range r.Cards {
		ranks = append(ranks, rank)
	}
	slices.Sort(ranks)
	return ranks
}

// Action looks up a turn action by name.
func (r *GameRules) Action(name string) (*Action, bool) {
	for i := range r.Actions {
		if r.Actions[i].Name == name {
			return &r.Actions[i], true
		}
	}
	return nil, false
}

func (r *GameRules) hasPlayerGroup(name string) bool {
	return slices.ContainsFunc(r.PlayerGroups, func(t GroupTemplate) bool { return t.Name == name })
}

func (r *GameRules) hasCommunalGroup(name string) bool {
	return slices.ContainsFunc(r.CommunalGroups, func(t GroupTemplate) bool { return t.Name == name })
}
