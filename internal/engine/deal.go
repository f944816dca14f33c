package engine

import (
	"math/rand"

	"cardtable-server/internal/cards"
	"cardtable-server/internal/errors"
	"cardtable-server/internal/rules"
)

type dealOptions struct {
	rng  *rand.Rand
	deck []cards.Card
}

type Option func(*dealOptions)

// WithRand shuffles the deck with rng instead of the global source.
func WithRand(rng *rand.Rand) Option {
	return func(o *dealOptions) {
		o.rng = rng
	}
}

// WithDeck deals from the given cards, unshuffled, instead of building a
// deck from the rules. The last card is dealt first.
func WithDeck(deck []cards.Card) Option {
	return func(o *dealOptions) {
		o.deck = append([]cards.Card{}, deck...)
	}
}

// NewGame seats the players, deals a fresh deck and applies the rules'
// setup actions.
func NewGame(r *rules.GameRules, seats []Seat, opts ...Option) (*GameState, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if len(seats) < r.MinPlayers || len(seats) > r.MaxPlayers {
		return nil, errors.Newf(errors.CodeInvalidPlayerCount,
			"%s needs %d-%d players, got %d", r.Name, r.MinPlayers, r.MaxPlayers, len(seats))
	}

	var o dealOptions
	for _, opt := range opts {
		opt(&o)
	}

	state := &GameState{
		Rules:    r.Name,
		Communal: make(map[string]*cards.CardGroup, len(r.CommunalGroups)),
		Players:  make([]*Player, 0, len(seats)),
	}
	for _, seat := range seats {
		if _, taken := state.Player(seat.ID); taken || seat.ID == "" {
			return nil, errors.Newf(errors.CodeInvalidPlayerCount, "player id %q is empty or seated twice", seat.ID)
		}
		player := &Player{ID: seat.ID, Name: seat.Name, Groups: make(map[string]*cards.CardGroup, len(r.PlayerGroups))}
		for _, t := range r.PlayerGroups {
			player.Groups[t.Name] = t.NewGroup(seat.ID, cards.VisibleToOwner)
		}
		state.Players = append(state.Players, player)
	}
	for _, t := range r.CommunalGroups {
		state.Communal[t.Name] = t.NewGroup("", cards.FaceUp)
	}

	if o.deck != nil {
		state.Deck = cards.Deck{Cards: o.deck}
	} else {
		state.Deck = BuildDeck(r, o.rng)
	}
	deal(r, state)

	if len(r.Setup) > 0 {
		ex := &executor{rules: r, state: state}
		for i := range r.Setup {
			ex.enqueue(&r.Setup[i], 1)
		}
		if err := ex.drain(); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// deal fills hand groups ring by ring, then communal groups in order. An
// empty deck ends dealing for every remaining group.
func deal(r *rules.GameRules, state *GameState) {
	for _, t := range r.PlayerGroups {
		if !dealHand(state, t) {
			return
		}
	}
	for _, t := range r.CommunalGroups {
		group := state.Communal[t.Name]
		target, sized := t.Target()
		for !group.Full() && (!sized || group.Len() < target) {
			card, ok := state.Deck.Draw()
			if !ok {
				return
			}
			_ = group.Push(card)
		}
	}
}

// dealHand deals one template around the ring until every player's group
// is at its target. Templates without a target get one card per player.
// It returns false once the deck runs out.
func dealHand(state *GameState, t rules.GroupTemplate) bool {
	target, sized := t.Target()
	for {
		dealt := false
		for _, p := range state.Players {
			group := p.Groups[t.Name]
			if group.Full() || sized && group.Len() >= target {
				continue
			}
			card, ok := state.Deck.Draw()
			if !ok {
				return false
			}
			_ = group.Push(card)
			dealt = true
		}
		if !dealt || !sized {
			return true
		}
	}
}
