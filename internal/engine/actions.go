package engine

import (
	"cardtable-server/internal/errors"
	"cardtable-server/internal/rules"
)

// AvailableActions returns the actions the current player may take, in
// declaration order. An action whose conditions cannot be resolved is left
// out rather than failing the listing.
func AvailableActions(r *rules.GameRules, state *GameState) []*rules.Action {
	available := []*rules.Action{}
	for i := range r.Actions {
		action := &r.Actions[i]
		if err := isAvailable(r, state, action); err != nil {
			continue
		}
		available = append(available, action)
	}
	return available
}

// isAvailable returns nil when action may be taken, or the reason it may not.
func isAvailable(r *rules.GameRules, state *GameState, action *rules.Action) error {
	if state.Phase.IsExcluded(action.Name) {
		return errors.Newf(errors.CodeActionUnavailable, "%s is excluded this phase", action.Name)
	}
	holds, err := allHold(r, state, action.Conditions, nil)
	if err != nil {
		return errors.Wrap(errors.CodeActionUnavailable, action.Name+" is not available: "+err.Error(), err)
	}
	if !holds {
		return errors.Newf(errors.CodeActionUnavailable, "%s is not available", action.Name)
	}
	return nil
}

// FindAction looks up a turn action by name.
func FindAction(r *rules.GameRules, name string) (*rules.Action, error) {
	action, ok := r.Action(name)
	if !ok {
		return nil, errors.Newf(errors.CodeUnknownAction, "%s has no action %q", r.Name, name)
	}
	return action, nil
}

// EndingReached reports whether any ending condition holds. The engine
// never stops a game on its own; callers decide what to do with this.
func EndingReached(r *rules.GameRules, state *GameState) (bool, error) {
	for _, cond := range r.EndingConditions {
		holds, err := Evaluate(r, state, cond, nil)
		if err != nil {
			return false, err
		}
		if holds {
			return true, nil
		}
	}
	return false, nil
}
