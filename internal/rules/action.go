package rules

import "fmt"

type Verb string

const (
	MoveCards              Verb = "move_cards"
	SwapCards              Verb = "swap_cards"
	MoveNextTurn           Verb = "move_next_turn"
	ConstrainPlayableCards Verb = "constrain_playable_cards"
	ExcludeActions         Verb = "exclude_actions"
	EndPhase               Verb = "end_phase"
)

func (v Verb) Valid() bool {
	switch v {
	case MoveCards, SwapCards, MoveNextTurn, ConstrainPlayableCards, ExcludeActions, EndPhase:
		return true
	}
	return false
}

// SelectionMode decides which cards a move_cards action takes from its source.
type SelectionMode string

const (
	// SelectChosen moves the cards at the caller-supplied indices.
	SelectChosen SelectionMode = "chosen"
	SelectAll    SelectionMode = "all"
	// SelectTop moves up to Count cards from the top of the source.
	SelectTop SelectionMode = "top"
)

// MatchMode decides how a constrain_playable_cards action judges cards.
type MatchMode string

const (
	// MatchValue compares a card's value against a threshold.
	MatchValue MatchMode = "value"
	// MatchSuitOrRank accepts cards sharing the reference card's suit or rank.
	MatchSuitOrRank MatchMode = "suit_or_rank"
)

type Action struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Verb        Verb   `yaml:"verb" json:"verb"`

	// move_cards and swap_cards
	From           *GroupRef     `yaml:"from,omitempty" json:"from,omitempty"`
	To             *GroupRef     `yaml:"to,omitempty" json:"to,omitempty"`
	Select         SelectionMode `yaml:"select,omitempty" json:"select,omitempty"`
	Count          int           `yaml:"count,omitempty" json:"count,omitempty"`
	CardConditions []Condition   `yaml:"card_conditions,omitempty" json:"-"`

	// move_next_turn
	Offset *int `yaml:"offset,omitempty" json:"offset,omitempty"`

	// constrain_playable_cards
	Match      MatchMode  `yaml:"match,omitempty" json:"match,omitempty"`
	Comparator Comparator `yaml:"comparator,omitempty" json:"comparator,omitempty"`
	Value      *int       `yaml:"value,omitempty" json:"value,omitempty"`
	RelativeTo *GroupRef  `yaml:"relative_to,omitempty" json:"relativeTo,omitempty"`

	// exclude_actions
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	Conditions   []Condition `yaml:"conditions,omitempty" json:"-"`
	Consequences []Action    `yaml:"consequences,omitempty" json:"-"`
}

// Step is the number of seats a move_next_turn action advances.
func (a *Action) Step() int {
	if a.Offset == nil {
		return 1
	}
	return *a.Offset
}

func (a *Action) SelectionMode() SelectionMode {
	if a.Select == "" {
		return SelectChosen
	}
	return a.Select
}

func (a *Action) MatchMode() MatchMode {
	if a.Match == "" {
		return MatchValue
	}
	return a.Match
}

// NeedsSelection reports whether the caller must supply card indices.
func (a *Action) NeedsSelection() bool {
	switch a.Verb {
	case SwapCards:
		return true
	case MoveCards:
		return a.SelectionMode() == SelectChosen
	}
	return false
}

func (a *Action) String() string {
	if a.Name == "" {
		return string(a.Verb)
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Verb)
}
