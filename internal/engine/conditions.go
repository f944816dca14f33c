package engine

import (
	"cardtable-server/internal/cards"
	"cardtable-server/internal/errors"
	"cardtable-server/internal/rules"
)

// Evaluate reports whether cond holds for state. selection holds the cards
// a caller picked and is only read by selection-based conditions.
func Evaluate(r *rules.GameRules, state *GameState, cond rules.Condition, selection []cards.Card) (bool, error) {
	holds, err := evaluate(r, state, cond, selection)
	if err != nil {
		return false, err
	}
	return holds != cond.Not, nil
}

func evaluate(r *rules.GameRules, state *GameState, cond rules.Condition, selection []cards.Card) (bool, error) {
	switch cond.Kind {
	case rules.GroupSize:
		group, err := resolveCondition(state, cond)
		if err != nil {
			return false, err
		}
		return cond.Comparator.Compare(group.Len(), cond.Value), nil

	case rules.TurnRange:
		return state.Turn >= cond.From && (cond.Until == nil || state.Turn < *cond.Until), nil

	case rules.SameRank:
		return sameRank(r, selection), nil

	case rules.SelectionSize:
		return cond.Comparator.Compare(len(selection), cond.Value), nil

	case rules.Playable:
		for _, card := range selection {
			if !isPlayable(r, state, card) {
				return false, nil
			}
		}
		return true, nil

	case rules.HasPlayable:
		group, err := resolveCondition(state, cond)
		if err != nil {
			return false, err
		}
		for _, card := range group.Cards {
			if isPlayable(r, state, card) {
				return true, nil
			}
		}
		return false, nil

	case rules.PlayerCardCount:
		matching := 0
		for _, p := range state.Players {
			if cond.Comparator.Compare(p.CardCount(cond.Groups...), cond.Value) {
				matching++
			}
		}
		return matching == cond.Players.Want(len(state.Players)), nil
	}
	return false, errors.Newf(errors.CodeConfiguration, "unknown condition kind %q", cond.Kind)
}

func resolveCondition(state *GameState, cond rules.Condition) (*cards.CardGroup, error) {
	if cond.Group == nil {
		return nil, errors.Newf(errors.CodeConfiguration, "%s condition has no group", cond.Kind)
	}
	return Resolve(state, *cond.Group)
}

// allHold evaluates conds in order and stops at the first that fails.
func allHold(r *rules.GameRules, state *GameState, conds []rules.Condition, selection []cards.Card) (bool, error) {
	for _, cond := range conds {
		holds, err := Evaluate(r, state, cond, selection)
		if err != nil || !holds {
			return false, err
		}
	}
	return true, nil
}

func isWild(r *rules.GameRules, card cards.Card) bool {
	desc, ok := r.Describe(card)
	return ok && desc.Wild
}

func sameRank(r *rules.GameRules, selection []cards.Card) bool {
	rank := cards.NoRank
	for _, card := range selection {
		if isWild(r, card) {
			continue
		}
		if rank == cards.NoRank {
			rank = card.Rank
		} else if card.Rank != rank {
			return false
		}
	}
	return true
}

// isPlayable reports whether card satisfies every constraint of the current
// phase. Wild cards are always playable.
func isPlayable(r *rules.GameRules, state *GameState, card cards.Card) bool {
	if isWild(r, card) {
		return true
	}
	desc, _ := r.Describe(card)
	for _, c := range state.Phase.Constraints {
		switch c.Match {
		case rules.MatchSuitOrRank:
			if c.Card != nil && card.Suit != c.Card.Suit && card.Rank != c.Card.Rank {
				return false
			}
		default:
			if !c.Comparator.Compare(desc.Value, c.Value) {
				return false
			}
		}
	}
	return true
}
