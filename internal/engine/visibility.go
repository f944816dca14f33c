package engine

import (
	"cardtable-server/internal/cards"
	"cardtable-server/internal/rules"
)

// Render returns the cards of group as observer is allowed to see them.
// Hidden cards are replaced by cards.Covered. The result never aliases
// group.Cards.
func Render(group *cards.CardGroup, observer string) []cards.Card {
	shown := make([]cards.Card, len(group.Cards))
	switch group.Visibility {
	case cards.FaceUp:
		copy(shown, group.Cards)
	case cards.TopFaceUpRestFaceDown:
		cover(shown)
		if len(shown) > 0 {
			shown[0] = group.Cards[0]
		}
	case cards.VisibleToOwner:
		if observer != "" && observer == group.Owner {
			copy(shown, group.Cards)
		} else {
			cover(shown)
		}
	default:
		cover(shown)
	}
	return shown
}

func cover(shown []cards.Card) {
	for i := range shown {
		shown[i] = cards.Covered
	}
}

type GroupView struct {
	Name       string           `json:"name"`
	Owner      string           `json:"owner,omitempty"`
	Layout     cards.Layout     `json:"layout"`
	Visibility cards.Visibility `json:"visibility"`
	Size       int              `json:"size"`
	Cards      []cards.Card     `json:"cards"`
}

type PlayerState struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Current bool        `json:"current"`
	Groups  []GroupView `json:"groups"`
}

// ClientState is everything one observer may see of a game.
type ClientState struct {
	Rules     string        `json:"rules"`
	DeckCount int           `json:"deckCount"`
	Turn      int           `json:"turn"`
	Phase     int           `json:"phase"`
	Current   string        `json:"current"`
	Communal  []GroupView   `json:"communal"`
	Players   []PlayerState `json:"players"`
}

// GetClientState renders every group for observer, in template order.
func GetClientState(r *rules.GameRules, state *GameState, observer string) *ClientState {
	view := &ClientState{
		Rules:     state.Rules,
		DeckCount: state.Deck.Count(),
		Turn:      state.Turn,
		Phase:     state.Phase.Number,
		Current:   state.CurrentPlayer().ID,
		Communal:  make([]GroupView, 0, len(r.CommunalGroups)),
		Players:   make([]PlayerState, 0, len(state.Players)),
	}
	for _, t := range r.CommunalGroups {
		if group, ok := state.Communal[t.Name]; ok {
			view.Communal = append(view.Communal, viewGroup(group, observer))
		}
	}
	for i, p := range state.Players {
		ps := PlayerState{ID: p.ID, Name: p.Name, Current: i == state.Current}
		for _, t := range r.PlayerGroups {
			if group, ok := p.Groups[t.Name]; ok {
				ps.Groups = append(ps.Groups, viewGroup(group, observer))
			}
		}
		view.Players = append(view.Players, ps)
	}
	return view
}

func viewGroup(group *cards.CardGroup, observer string) GroupView {
	return GroupView{
		Name:       group.Name,
		Owner:      group.Owner,
		Layout:     group.Layout,
		Visibility: group.Visibility,
		Size:       group.Len(),
		Cards:      Render(group, observer),
	}
}
