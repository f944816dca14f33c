package engine

import (
	"cardtable-server/internal/cards"
	"cardtable-server/internal/errors"
	"cardtable-server/internal/rules"
)

// Resolve finds the group ref addresses in the live state. Every failure
// is a RESOLUTION_ERROR; it never returns a nil group without one.
func Resolve(state *GameState, ref rules.GroupRef) (*cards.CardGroup, error) {
	groups, err := ownerGroups(state, ref)
	if err != nil {
		return nil, err
	}

	if ref.Name != "" {
		group, ok := groups[ref.Name]
		if !ok {
			return nil, errors.Newf(errors.CodeResolution, "%s: no group named %s", ref, ref.Name)
		}
		return group, nil
	}
	if len(ref.FirstWithCards) == 0 {
		return nil, errors.Newf(errors.CodeResolution, "%s names no group", ref)
	}
	for _, name := range ref.FirstWithCards {
		group, ok := groups[name]
		if !ok {
			return nil, errors.Newf(errors.CodeResolution, "%s: no group named %s", ref, name)
		}
		if group.Len() > 0 {
			return group, nil
		}
	}
	return nil, errors.Newf(errors.CodeResolution, "%s: every candidate group is empty", ref)
}

func ownerGroups(state *GameState, ref rules.GroupRef) (map[string]*cards.CardGroup, error) {
	switch ref.Owner {
	case rules.Communal:
		return state.Communal, nil
	case rules.CurrentPlayer:
		n := len(state.Players)
		// Offsets wrap around the table; only negative ones are invalid.
		if ref.Offset < 0 || n == 0 {
			return nil, errors.Newf(errors.CodeResolution, "%s: offset %d with %d players", ref, ref.Offset, n)
		}
		return state.Players[(state.Current+ref.Offset)%n].Groups, nil
	case rules.NamedPlayer:
		player, ok := state.Player(ref.Player)
		if !ok {
			return nil, errors.Newf(errors.CodeResolution, "%s: no player %s", ref, ref.Player)
		}
		return player.Groups, nil
	}
	return nil, errors.Newf(errors.CodeResolution, "unknown group owner %q", ref.Owner)
}
