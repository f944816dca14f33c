package rules

import (
	"cardtable-server/internal/cards"
	"cardtable-server/internal/errors"
)

func configError(format string, args ...any) error {
	return errors.Newf(errors.CodeConfiguration, format, args...)
}

// Validate checks that the rules are internally consistent. Every failure
// is a CONFIGURATION_ERROR.
func (r *GameRules) Validate() error {
	if r.Name == "" {
		return configError("rules need a name")
	}
	if r.MinPlayers < 1 || r.MaxPlayers < r.MinPlayers {
		return configError("%s: invalid player range %d-%d", r.Name, r.MinPlayers, r.MaxPlayers)
	}
	if r.Deck.Copies < 0 || r.Deck.JokerCount() < 0 {
		return configError("%s: deck copies and jokers cannot be negative", r.Name)
	}
	for _, suit := range r.Deck.Suits {
		if suit == cards.NoSuit {
			return configError("%s: deck suits cannot include an empty suit", r.Name)
		}
	}
	for rank := range r.Cards {
		if rank == cards.NoRank || rank == cards.Hidden {
			return configError("%s: rank %q cannot appear in the card map", r.Name, rank)
		}
	}
	if err := r.validateTemplates(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(r.Actions))
	for i := range r.Actions {
		name := r.Actions[i].Name
		if name == "" {
			return configError("%s: action %d has no name", r.Name, i)
		}
		if seen[name] {
			return configError("%s: duplicate action %q", r.Name, name)
		}
		seen[name] = true
	}

	for i := range r.Setup {
		if err := r.validateAction(&r.Setup[i], 1, false); err != nil {
			return err
		}
	}
	for i := range r.Actions {
		if err := r.validateAction(&r.Actions[i], 1, true); err != nil {
			return err
		}
	}
	for _, desc := range r.Cards {
		for i := range desc.Consequences {
			if err := r.validateAction(&desc.Consequences[i], 2, false); err != nil {
				return err
			}
		}
	}
	for _, cond := range r.EndingConditions {
		if cond.Kind.SelectionBased() {
			return configError("%s: ending condition %s cannot inspect a selection", r.Name, cond.Kind)
		}
		if err := r.validateCondition(cond); err != nil {
			return err
		}
	}
	return nil
}

func (r *GameRules) validateTemplates() error {
	names := map[string]bool{}
	for _, t := range r.PlayerGroups {
		if err := r.validateTemplate(t, names); err != nil {
			return err
		}
		if t.Remainder {
			return configError("%s: hand group %s cannot be a remainder", r.Name, t.Name)
		}
	}

	names = map[string]bool{}
	for i, t := range r.CommunalGroups {
		if err := r.validateTemplate(t, names); err != nil {
			return err
		}
		last := i == len(r.CommunalGroups)-1
		switch {
		case t.Remainder && t.InitialSize != nil:
			return configError("%s: remainder group %s cannot have an initial size", r.Name, t.Name)
		case t.Remainder && !last:
			return configError("%s: remainder group %s must be the last communal group", r.Name, t.Name)
		case !t.Remainder && t.InitialSize == nil:
			return configError("%s: communal group %s needs an initial size or must be the remainder", r.Name, t.Name)
		}
	}
	return nil
}

func (r *GameRules) validateTemplate(t GroupTemplate, names map[string]bool) error {
	if t.Name == "" {
		return configError("%s: group template without a name", r.Name)
	}
	if names[t.Name] {
		return configError("%s: duplicate group %s", r.Name, t.Name)
	}
	names[t.Name] = true
	if t.Visibility != "" && !t.Visibility.Valid() {
		return configError("%s: group %s has unknown visibility %q", r.Name, t.Name, t.Visibility)
	}
	if t.Layout != "" && t.Layout != cards.Pile && t.Layout != cards.Spread {
		return configError("%s: group %s has unknown layout %q", r.Name, t.Name, t.Layout)
	}
	if t.InitialSize != nil && *t.InitialSize < 0 || t.MaxSize != nil && *t.MaxSize < 0 {
		return configError("%s: group %s has a negative size", r.Name, t.Name)
	}
	if t.InitialSize != nil && t.MaxSize != nil && *t.MaxSize < *t.InitialSize {
		return configError("%s: group %s has max size below its initial size", r.Name, t.Name)
	}
	return nil
}

// validateAction checks a and its consequences. Only prompted actions, the
// ones a player picks, may ask the caller for a card selection.
func (r *GameRules) validateAction(a *Action, depth int, prompted bool) error {
	if depth > MaxConsequenceDepth {
		return configError("%s: consequences of %s nest deeper than %d", r.Name, a, MaxConsequenceDepth)
	}
	if !a.Verb.Valid() {
		return configError("%s: action %s has unknown verb %q", r.Name, a.Name, a.Verb)
	}
	if !prompted && a.NeedsSelection() {
		return configError("%s: %s needs a card selection but is never chosen by a player", r.Name, a)
	}

	switch a.Verb {
	case MoveCards, SwapCards:
		if a.From == nil || a.To == nil {
			return configError("%s: %s needs from and to groups", r.Name, a)
		}
		if err := r.validateRef(*a.From); err != nil {
			return err
		}
		if err := r.validateRef(*a.To); err != nil {
			return err
		}
		if a.Verb == MoveCards {
			switch a.SelectionMode() {
			case SelectChosen, SelectAll:
			case SelectTop:
				if a.Count < 1 {
					return configError("%s: %s selects the top cards but has no count", r.Name, a)
				}
			default:
				return configError("%s: %s has unknown selection %q", r.Name, a, a.Select)
			}
		}
		for _, cond := range a.CardConditions {
			if err := r.validateCondition(cond); err != nil {
				return err
			}
		}
	case MoveNextTurn:
		if a.Step() < 0 {
			return configError("%s: %s has a negative offset", r.Name, a)
		}
	case ConstrainPlayableCards:
		switch a.MatchMode() {
		case MatchValue:
			if !a.Comparator.Valid() {
				return configError("%s: %s has unknown comparator %q", r.Name, a, a.Comparator)
			}
			if (a.Value == nil) == (a.RelativeTo == nil) {
				return configError("%s: %s needs exactly one of value or relative_to", r.Name, a)
			}
		case MatchSuitOrRank:
			if a.RelativeTo == nil {
				return configError("%s: %s needs relative_to", r.Name, a)
			}
		default:
			return configError("%s: %s has unknown match %q", r.Name, a, a.Match)
		}
		if a.RelativeTo != nil {
			if err := r.validateRef(*a.RelativeTo); err != nil {
				return err
			}
		}
	case ExcludeActions:
		if len(a.Exclude) == 0 {
			return configError("%s: %s excludes nothing", r.Name, a)
		}
		for _, name := range a.Exclude {
			if _, ok := r.Action(name); !ok {
				return configError("%s: %s excludes unknown action %q", r.Name, a, name)
			}
		}
	}

	for _, cond := range a.Conditions {
		if cond.Kind.SelectionBased() {
			return configError("%s: %s gates on %s, which belongs in card_conditions", r.Name, a, cond.Kind)
		}
		if err := r.validateCondition(cond); err != nil {
			return err
		}
	}
	for i := range a.Consequences {
		if err := r.validateAction(&a.Consequences[i], depth+1, false); err != nil {
			return err
		}
	}
	return nil
}

func (r *GameRules) validateCondition(c Condition) error {
	if !c.Kind.Valid() {
		return configError("%s: unknown condition kind %q", r.Name, c.Kind)
	}
	switch c.Kind {
	case GroupSize, HasPlayable:
		if c.Group == nil {
			return configError("%s: %s condition needs a group", r.Name, c.Kind)
		}
		if err := r.validateRef(*c.Group); err != nil {
			return err
		}
	case TurnRange:
		if c.From < 0 || c.Until != nil && *c.Until <= c.From {
			return configError("%s: empty turn range", r.Name)
		}
	case PlayerCardCount:
		if c.Players.IsZero() || len(c.Groups) == 0 {
			return configError("%s: player_card_count needs players and groups", r.Name)
		}
		for _, name := range c.Groups {
			if !r.hasPlayerGroup(name) {
				return configError("%s: player_card_count counts unknown hand group %s", r.Name, name)
			}
		}
	}
	switch c.Kind {
	case GroupSize, SelectionSize, PlayerCardCount:
		if !c.Comparator.Valid() {
			return configError("%s: %s condition has unknown comparator %q", r.Name, c.Kind, c.Comparator)
		}
	}
	return nil
}

func (r *GameRules) validateRef(ref GroupRef) error {
	if (ref.Name == "") == (len(ref.FirstWithCards) == 0) {
		return configError("%s: group reference %s needs exactly one of name or first_with_cards_of", r.Name, ref)
	}
	known := r.hasPlayerGroup
	switch ref.Owner {
	case Communal:
		known = r.hasCommunalGroup
	case CurrentPlayer:
		if ref.Offset < 0 {
			return configError("%s: group reference %s has a negative offset", r.Name, ref)
		}
	case NamedPlayer:
		if ref.Player == "" {
			return configError("%s: group reference %s names no player", r.Name, ref)
		}
	default:
		return configError("%s: group reference has unknown owner %q", r.Name, ref.Owner)
	}
	for _, name := range ref.Names() {
		if !known(name) {
			return configError("%s: group reference %s names unknown group %s", r.Name, ref, name)
		}
	}
	return nil
}
