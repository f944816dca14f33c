package engine

import (
	"cardtable-server/internal/cards"
	"cardtable-server/internal/errors"
	"cardtable-server/internal/rules"
)

// Selection holds the caller's chosen card positions. From indexes the
// action's source group; To indexes the destination of a swap.
type Selection struct {
	From []int `json:"from,omitempty"`
	To   []int `json:"to,omitempty"`
}

// Execute applies action and all of its consequences to state. It works on
// a copy and only commits when everything succeeds, so state is unchanged
// on any error.
func Execute(r *rules.GameRules, state *GameState, action *rules.Action, selection Selection) error {
	if err := isAvailable(r, state, action); err != nil {
		return err
	}

	work := state.Clone()
	ex := &executor{rules: r, state: work}
	moved, err := ex.apply(action, selection)
	if err != nil {
		return err
	}
	if action.Verb == rules.MoveCards && action.SelectionMode() == rules.SelectChosen {
		for _, card := range moved {
			if desc, ok := r.Describe(card); ok {
				for i := range desc.Consequences {
					ex.enqueue(&desc.Consequences[i], 2)
				}
			}
		}
	}
	for i := range action.Consequences {
		ex.enqueue(&action.Consequences[i], 2)
	}
	if err := ex.drain(); err != nil {
		return err
	}

	*state = *work
	return nil
}

type pending struct {
	action *rules.Action
	depth  int
}

// executor walks consequences iteratively. A consequence's own
// consequences run right after it, before its later siblings.
type executor struct {
	rules *rules.GameRules
	state *GameState
	queue []pending
}

func (ex *executor) enqueue(action *rules.Action, depth int) {
	ex.queue = append(ex.queue, pending{action: action, depth: depth})
}

func (ex *executor) drain() error {
	for len(ex.queue) > 0 {
		next := ex.queue[0]
		ex.queue = ex.queue[1:]
		if next.depth > rules.MaxConsequenceDepth {
			return errors.Newf(errors.CodeConfiguration,
				"consequences of %s nest deeper than %d", next.action, rules.MaxConsequenceDepth)
		}

		holds, err := allHold(ex.rules, ex.state, next.action.Conditions, nil)
		if err != nil && !errors.HasCode(err, errors.CodeResolution) {
			return err
		}
		if err != nil || !holds {
			continue
		}
		if _, err := ex.apply(next.action, Selection{}); err != nil {
			return err
		}

		children := make([]pending, 0, len(next.action.Consequences))
		for i := range next.action.Consequences {
			children = append(children, pending{action: &next.action.Consequences[i], depth: next.depth + 1})
		}
		ex.queue = append(children, ex.queue...)
	}
	return nil
}

// apply runs a single verb and returns any cards it moved.
func (ex *executor) apply(action *rules.Action, selection Selection) ([]cards.Card, error) {
	switch action.Verb {
	case rules.MoveCards:
		return ex.moveCards(action, selection)
	case rules.SwapCards:
		return nil, ex.swapCards(action, selection)
	case rules.MoveNextTurn:
		advanceTurn(ex.state, action.Step())
		return nil, nil
	case rules.ConstrainPlayableCards:
		return nil, ex.constrain(action)
	case rules.ExcludeActions:
		ex.state.Phase.exclude(action.Exclude...)
		return nil, nil
	case rules.EndPhase:
		ex.state.Phase.next()
		return nil, nil
	}
	return nil, errors.Newf(errors.CodeConfiguration, "unknown verb %q", action.Verb)
}

func (ex *executor) endpoints(action *rules.Action) (*cards.CardGroup, *cards.CardGroup, error) {
	if action.From == nil || action.To == nil {
		return nil, nil, errors.Newf(errors.CodeConfiguration, "%s needs from and to groups", action)
	}
	from, err := Resolve(ex.state, *action.From)
	if err != nil {
		return nil, nil, err
	}
	to, err := Resolve(ex.state, *action.To)
	if err != nil {
		return nil, nil, err
	}
	if from == to {
		return nil, nil, errors.Newf(errors.CodeInvalidSelection, "%s moves %s onto itself", action, from.Name)
	}
	return from, to, nil
}

func (ex *executor) checkCards(action *rules.Action, picked []cards.Card) error {
	holds, err := allHold(ex.rules, ex.state, action.CardConditions, picked)
	if err != nil {
		return err
	}
	if !holds {
		return errors.Newf(errors.CodeInvalidSelection, "%v cannot be used for %s", picked, action.Name)
	}
	return nil
}

func (ex *executor) moveCards(action *rules.Action, selection Selection) ([]cards.Card, error) {
	from, to, err := ex.endpoints(action)
	if err != nil {
		return nil, err
	}

	var moved []cards.Card
	switch action.SelectionMode() {
	case rules.SelectChosen:
		if len(selection.From) == 0 {
			return nil, errors.Newf(errors.CodeInvalidSelection, "%s needs at least one card", action.Name)
		}
		picked, err := from.Peek(selection.From)
		if err != nil {
			return nil, err
		}
		if err := ex.checkCards(action, picked); err != nil {
			return nil, err
		}
		moved, _ = from.TakeAt(selection.From)
	case rules.SelectAll:
		moved = from.TakeAll()
	case rules.SelectTop:
		moved = from.TakeTop(action.Count)
	default:
		return nil, errors.Newf(errors.CodeConfiguration, "%s has unknown selection %q", action, action.Select)
	}

	if action.SelectionMode() != rules.SelectChosen {
		if err := ex.checkCards(action, moved); err != nil {
			return nil, err
		}
	}
	if err := to.Push(moved...); err != nil {
		return nil, err
	}
	return moved, nil
}

func (ex *executor) swapCards(action *rules.Action, selection Selection) error {
	from, to, err := ex.endpoints(action)
	if err != nil {
		return err
	}
	if len(selection.From) != len(selection.To) {
		return errors.Newf(errors.CodeInvalidSelection,
			"swap needs equal selections, got %d and %d", len(selection.From), len(selection.To))
	}
	if len(selection.From) == 0 {
		return errors.Newf(errors.CodeInvalidSelection, "%s needs at least one card on each side", action.Name)
	}

	mine, err := from.Peek(selection.From)
	if err != nil {
		return err
	}
	theirs, err := to.Peek(selection.To)
	if err != nil {
		return err
	}
	if err := ex.checkCards(action, mine); err != nil {
		return err
	}
	if err := ex.checkCards(action, theirs); err != nil {
		return err
	}

	for i := range mine {
		from.Cards[selection.From[i]] = theirs[i]
		to.Cards[selection.To[i]] = mine[i]
	}
	return nil
}

func (ex *executor) constrain(action *rules.Action) error {
	constraint := Constraint{Match: action.MatchMode(), Comparator: action.Comparator}
	if action.Value != nil {
		constraint.Value = *action.Value
	}
	if action.RelativeTo != nil {
		group, err := Resolve(ex.state, *action.RelativeTo)
		if err != nil {
			return err
		}
		top, ok := group.Top()
		if !ok {
			// Nothing to beat: every card stays playable.
			return nil
		}
		desc, _ := ex.rules.Describe(top)
		constraint.Value = desc.Value
		constraint.Card = &top
	}
	ex.state.Phase.Constraints = append(ex.state.Phase.Constraints, constraint)
	return nil
}
