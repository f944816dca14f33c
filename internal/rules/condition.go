package rules

import (
	"fmt"
	"strconv"
	"strings"
)

type Comparator string

const (
	Equal          Comparator = "="
	Greater        Comparator = ">"
	GreaterOrEqual Comparator = ">="
	Less           Comparator = "<"
	LessOrEqual    Comparator = "<="
)

var comparatorAliases = map[string]Comparator{
	"=": Equal, "==": Equal, "eq": Equal,
	">": Greater, "gt": Greater,
	">=": GreaterOrEqual, "≥": GreaterOrEqual, "gte": GreaterOrEqual,
	"<": Less, "lt": Less,
	"<=": LessOrEqual, "≤": LessOrEqual, "lte": LessOrEqual,
}

func ParseComparator(text string) (Comparator, error) {
	if c, ok := comparatorAliases[strings.ToLower(strings.TrimSpace(text))]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown comparator %q", text)
}

func (c *Comparator) UnmarshalText(text []byte) error {
	parsed, err := ParseComparator(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Comparator) Valid() bool {
	_, err := ParseComparator(string(c))
	return err == nil
}

// Compare reports whether "left c right" holds.
func (c Comparator) Compare(left, right int) bool {
	switch c {
	case Equal:
		return left == right
	case Greater:
		return left > right
	case GreaterOrEqual:
		return left >= right
	case Less:
		return left < right
	case LessOrEqual:
		return left <= right
	}
	return false
}

type ConditionKind string

const (
	// GroupSize compares the size of Group against Value.
	GroupSize ConditionKind = "group_size"
	// TurnRange holds while From <= turn < Until. Until is optional.
	TurnRange ConditionKind = "turn"
	// SameRank holds when every selected card shares one rank. Wild cards
	// match any rank.
	SameRank ConditionKind = "same_rank"
	// SelectionSize compares the number of selected cards against Value.
	SelectionSize ConditionKind = "selection_size"
	// Playable holds when every selected card passes the phase constraints.
	Playable ConditionKind = "playable"
	// HasPlayable holds when Group holds at least one playable card.
	HasPlayable ConditionKind = "has_playable"
	// PlayerCardCount counts the players whose total over Groups satisfies
	// the comparison, and checks that count against Players.
	PlayerCardCount ConditionKind = "player_card_count"
)

func (k ConditionKind) Valid() bool {
	switch k {
	case GroupSize, TurnRange, SameRank, SelectionSize, Playable, HasPlayable, PlayerCardCount:
		return true
	}
	return false
}

// SelectionBased reports whether the condition inspects the caller's card
// selection rather than the game state alone.
func (k ConditionKind) SelectionBased() bool {
	return k == SameRank || k == SelectionSize || k == Playable
}

type Condition struct {
	Kind ConditionKind `yaml:"kind"`
	// Not negates the result.
	Not        bool        `yaml:"not,omitempty"`
	Group      *GroupRef   `yaml:"group,omitempty"`
	Comparator Comparator  `yaml:"comparator,omitempty"`
	Value      int         `yaml:"value,omitempty"`
	From       int         `yaml:"from,omitempty"`
	Until      *int        `yaml:"until,omitempty"`
	Players    PlayerCount `yaml:"players,omitempty"`
	Groups     []string    `yaml:"groups,omitempty"`
}

func (c Condition) String() string {
	s := string(c.Kind)
	if c.Not {
		s = "not " + s
	}
	return s
}

type PlayerQuantifier string

const (
	AllPlayers      PlayerQuantifier = "all"
	AllButOnePlayer PlayerQuantifier = "all_but_one"
	ExactlyPlayers  PlayerQuantifier = "exactly"
)

// PlayerCount is "all", "all_but_one" or an exact number of players.
type PlayerCount struct {
	Quantifier PlayerQuantifier
	N          int
}

func Exactly(n int) PlayerCount {
	return PlayerCount{Quantifier: ExactlyPlayers, N: n}
}

// Want returns how many of total players must match.
func (p PlayerCount) Want(total int) int {
	switch p.Quantifier {
	case AllPlayers:
		return total
	case AllButOnePlayer:
		return total - 1
	}
	return p.N
}

func (p PlayerCount) IsZero() bool {
	return p.Quantifier == ""
}

func (p PlayerCount) MarshalText() ([]byte, error) {
	if p.Quantifier == ExactlyPlayers {
		return []byte(strconv.Itoa(p.N)), nil
	}
	return []byte(p.Quantifier), nil
}

func (p *PlayerCount) UnmarshalText(text []byte) error {
	value := strings.ToLower(strings.TrimSpace(string(text)))
	switch PlayerQuantifier(value) {
	case AllPlayers, AllButOnePlayer:
		*p = PlayerCount{Quantifier: PlayerQuantifier(value)}
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid player count %q", text)
	}
	*p = Exactly(n)
	return nil
}
