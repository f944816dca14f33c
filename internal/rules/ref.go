package rules

import (
	"fmt"
	"strings"
)

type Owner string

const (
	Communal Owner = "communal"
	// CurrentPlayer addresses the player Offset seats after the current one.
	CurrentPlayer Owner = "current"
	// NamedPlayer addresses a player by id.
	NamedPlayer Owner = "player"
)

// GroupRef addresses a card group. It is resolved against live state, by
// explicit Name or by the first of FirstWithCards that holds a card.
type GroupRef struct {
	Owner          Owner    `yaml:"owner" json:"owner"`
	Offset         int      `yaml:"offset,omitempty" json:"offset,omitempty"`
	Player         string   `yaml:"player,omitempty" json:"player,omitempty"`
	Name           string   `yaml:"name,omitempty" json:"name,omitempty"`
	FirstWithCards []string `yaml:"first_with_cards_of,omitempty" json:"firstWithCardsOf,omitempty"`
}

func CommunalGroup(name string) GroupRef {
	return GroupRef{Owner: Communal, Name: name}
}

func CurrentGroup(name string) GroupRef {
	return GroupRef{Owner: CurrentPlayer, Name: name}
}

// Names returns the group names the reference may resolve to.
func (r GroupRef) Names() []string {
	if r.Name != "" {
		return []string{r.Name}
	}
	return r.FirstWithCards
}

func (r GroupRef) String() string {
	owner := string(r.Owner)
	switch r.Owner {
	case CurrentPlayer:
		if r.Offset != 0 {
			owner = fmt.Sprintf("current+%d", r.Offset)
		}
	case NamedPlayer:
		owner = "player " + r.Player
	}
	if r.Name != "" {
		return owner + "." + r.Name
	}
	return fmt.Sprintf("%s.first_with_cards_of[%s]", owner, strings.Join(r.FirstWithCards, ","))
}
