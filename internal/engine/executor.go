package engine

import (
	"errors"
	"fmt"

	"github.com/MarianRusoiu99/text-based-sub001/internal/expr"
	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

var (
	ErrStoryEnded        = errors.New("the story has ended")
	ErrUnknownChoice     = errors.New("unknown choice")
	ErrChoiceUnavailable = errors.New("choice is not available")
	ErrUnknownNode       = errors.New("unknown node")
	ErrUnknownCheck      = errors.New("unknown check")
)

// Start produces the events that open a story: the session marker, entering the start
// node and that node's effects.
func Start(story *Story, tmpl *rules.RuleTemplate) ([]Event, error) {
	templateID := story.TemplateID
	if templateID == "" && tmpl != nil {
		templateID = tmpl.ID
	}
	scratch := NewPlayState(templateID, tmpl)
	r := &recorder{state: scratch}

	if err := r.emit(&SessionStartedEvent{StoryID: story.ID, TemplateID: templateID}); err != nil {
		return nil, err
	}
	if err := r.enter(story, tmpl, story.Start); err != nil {
		return nil, err
	}
	return r.events, nil
}

// AvailableChoices lists the choices of the current node whose requirements hold.
func AvailableChoices(state *PlayState, story *Story, eval *Evaluator) ([]Choice, error) {
	if state.Ended {
		return nil, nil
	}
	node, ok := story.Node(state.NodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, state.NodeID)
	}

	var out []Choice
	for _, c := range node.Choices {
		allowed, err := eval.Allows(c.Requires, state.Character)
		if err != nil {
			return nil, fmt.Errorf("choice '%s' requirement failed: %w", c.Key, err)
		}
		if allowed {
			out = append(out, c)
		}
	}
	return out, nil
}

// ExecuteChoice resolves a choice and returns the events it produces. The state is not
// modified; the caller applies and persists the events.
//
// Pipeline: lookup, requirement, optional check, choice effects, outcome effects,
// destination, destination entry effects.
func ExecuteChoice(key string, state *PlayState, story *Story, tmpl *rules.RuleTemplate, eval *Evaluator) ([]Event, error) {
	if state.Ended {
		return nil, ErrStoryEnded
	}
	node, ok := story.Node(state.NodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, state.NodeID)
	}
	choice, ok := node.FindChoice(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChoice, key)
	}

	allowed, err := eval.Allows(choice.Requires, state.Character)
	if err != nil {
		return nil, fmt.Errorf("choice '%s' requirement failed: %w", key, err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", ErrChoiceUnavailable, key)
	}

	r := &recorder{state: state.Clone()}
	next := choice.Next
	var outcome []Effect

	if choice.Check != "" {
		if tmpl == nil {
			return nil, fmt.Errorf("%w: %s (story has no rule template)", ErrUnknownCheck, choice.Check)
		}
		check, ok := tmpl.FindCheck(choice.Check)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, choice.Check)
		}
		res, err := rules.PerformCheck(check, r.state.Character)
		if err != nil {
			return nil, err
		}
		if err := r.emit(&CheckResolvedEvent{Choice: key, Result: *res}); err != nil {
			return nil, err
		}
		if res.Success {
			outcome = choice.OnSuccess
			if choice.OnSuccessNext != "" {
				next = choice.OnSuccessNext
			}
		} else {
			outcome = choice.OnFailure
			if choice.OnFailureNext != "" {
				next = choice.OnFailureNext
			}
		}
	}

	if err := r.effects(tmpl, choice.Effects); err != nil {
		return nil, err
	}
	if err := r.effects(tmpl, outcome); err != nil {
		return nil, err
	}

	if next != "" {
		if err := r.enter(story, tmpl, next); err != nil {
			return nil, err
		}
	}
	return r.events, nil
}

// recorder accumulates events while applying them to a scratch state, so each effect
// sees the result of the previous one.
type recorder struct {
	state  *PlayState
	events []Event
}

func (r *recorder) emit(evt Event) error {
	if err := evt.Apply(r.state); err != nil {
		return err
	}
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) enter(story *Story, tmpl *rules.RuleTemplate, nodeID string) error {
	node, ok := story.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	if err := r.emit(&NodeEnteredEvent{NodeID: nodeID, Ending: node.Ending}); err != nil {
		return err
	}
	return r.effects(tmpl, node.Effects)
}

func (r *recorder) effects(tmpl *rules.RuleTemplate, effects []Effect) error {
	for _, e := range effects {
		evt, err := effectEvent(e, r.state.Character, tmpl)
		if err != nil {
			return fmt.Errorf("effect %s failed: %w", e.Op, err)
		}
		if evt == nil {
			continue
		}
		if err := r.emit(evt); err != nil {
			return err
		}
	}
	return nil
}

// effectEvent translates an effect into the event that records it, or nil when the
// effect changes nothing.
func effectEvent(e Effect, char *rules.CharacterState, tmpl *rules.RuleTemplate) (Event, error) {
	switch e.Op {
	case OpAddStat:
		delta, err := effectValue(e, char)
		if err != nil {
			return nil, err
		}
		d, ok := rules.ToNumber(delta)
		if !ok {
			return nil, fmt.Errorf("add_stat %s: %v is not a number", e.Stat, delta)
		}
		cur, _ := rules.ToNumber(char.Stats[e.Stat])
		return &StatChangedEvent{Stat: e.Stat, Old: char.Stats[e.Stat], Value: clampStat(tmpl, e.Stat, cur+d)}, nil

	case OpSetStat:
		v, err := effectValue(e, char)
		if err != nil {
			return nil, err
		}
		if f, ok := rules.ToNumber(v); ok && !isString(v) {
			v = clampStat(tmpl, e.Stat, f)
		}
		return &StatChangedEvent{Stat: e.Stat, Old: char.Stats[e.Stat], Value: v}, nil

	case OpSetFlag:
		value := true
		if b, ok := e.Value.(bool); ok {
			value = b
		}
		return &FlagChangedEvent{Flag: e.Flag, Value: value}, nil

	case OpClearFlag:
		return &FlagChangedEvent{Flag: e.Flag, Value: false}, nil

	case OpAddItem, OpRemoveItem:
		q := e.Quantity
		if q == 0 {
			q = 1
		}
		if e.Op == OpRemoveItem {
			q = -q
		}
		cur := Quantity(char, e.Item)
		next := cur + q
		if next < 0 {
			next = 0
		}
		if next == cur {
			return nil, nil
		}
		return &ItemChangedEvent{ItemID: e.Item, Name: e.Name, Delta: next - cur, Quantity: next}, nil

	case OpSetVariable:
		v, err := effectValue(e, char)
		if err != nil {
			return nil, err
		}
		return &VariableChangedEvent{Key: e.Key, Value: v}, nil

	case OpUnlockAchievement:
		if HasAchievement(char, e.Achievement) {
			return nil, nil
		}
		return &AchievementUnlockedEvent{Achievement: e.Achievement}, nil
	}
	return nil, fmt.Errorf("unknown effect op %q", e.Op)
}

// effectValue is the literal value of an effect, or its expression evaluated against the stats.
func effectValue(e Effect, char *rules.CharacterState) (any, error) {
	if e.Expression == "" {
		return e.Value, nil
	}
	return expr.Evaluate(e.Expression, rules.Bindings(char))
}

// clampStat keeps a numeric stat within the template's bounds.
func clampStat(tmpl *rules.RuleTemplate, stat string, v float64) float64 {
	if tmpl == nil {
		return v
	}
	def, ok := tmpl.FindStat(stat)
	if !ok {
		return v
	}
	if def.MinValue != nil && v < *def.MinValue {
		v = *def.MinValue
	}
	if def.MaxValue != nil && v > *def.MaxValue {
		v = *def.MaxValue
	}
	return v
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}
