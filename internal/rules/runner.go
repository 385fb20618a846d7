package rules

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/MarianRusoiu99/text-based-sub001/internal/expr"
)

// Modifier result reasons.
const (
	ReasonAlwaysApplied   = "Always applied"
	ReasonConditionMet    = "Condition met"
	ReasonConditionNotMet = "Condition not met"
	ReasonConditionFailed = "Condition evaluation failed"
	ReasonInvalidValue    = "Invalid modifier value"
	ReasonUnknownType     = "Unknown modifier type"
)

// EvaluateFormula evaluates f against the character's stats.
// The result must match f.ReturnType when one is declared.
func EvaluateFormula(f FormulaDefinition, state *CharacterState) (*FormulaResult, error) {
	bindings := Bindings(state)

	value, err := expr.Evaluate(f.Expression, bindings)
	if err != nil {
		return nil, &EvaluationError{Kind: "formula", ID: f.ID, Err: err}
	}
	value, err = coerce(f.ReturnType, value)
	if err != nil {
		return nil, &EvaluationError{Kind: "formula", ID: f.ID, Err: err}
	}

	return &FormulaResult{
		FormulaID:  f.ID,
		Result:     value,
		Variables:  bindings,
		Expression: f.Expression,
	}, nil
}

// PerformCheck rolls the check formula, folds its modifiers in order and classifies the total.
// A failing roll is an *EvaluationError tagged with the check ID; a failing modifier only
// marks that modifier as not applied.
func PerformCheck(check CheckDefinition, state *CharacterState) (*CheckResult, error) {
	rolled, err := EvaluateFormula(FormulaDefinition{
		ID:         check.ID,
		Expression: check.Formula,
		ReturnType: ReturnNumber,
	}, state)
	if err != nil {
		cause := err
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) {
			cause = evalErr.Err
		}
		return nil, &EvaluationError{Kind: "check", ID: check.ID, Err: cause}
	}

	roll := rolled.Result.(float64)
	total := roll
	results := make([]ModifierResult, 0, len(check.Modifiers))
	for _, m := range check.Modifiers {
		var res ModifierResult
		res, total = applyModifier(m, total, rolled.Variables)
		results = append(results, res)
	}

	critical := (check.CriticalSuccess != nil && total >= *check.CriticalSuccess) ||
		(check.CriticalFailure != nil && total <= *check.CriticalFailure)

	return &CheckResult{
		CheckID:   check.ID,
		Roll:      roll,
		Threshold: check.SuccessThreshold,
		Success:   total >= check.SuccessThreshold,
		Critical:  critical,
		Modifiers: results,
		Total:     total,
	}, nil
}

func applyModifier(m Modifier, total float64, bindings map[string]any) (ModifierResult, float64) {
	res := ModifierResult{ModifierID: m.ID}

	switch m.Type {
	case ModifierAdditive, ModifierMultiplicative, ModifierConditional:
	default:
		res.Reason = ReasonUnknownType
		return res, total
	}

	value, ok := modifierValue(m.Value)
	if !ok {
		res.Reason = ReasonInvalidValue
		return res, total
	}

	switch {
	case m.Condition == "":
		res.Reason = ReasonAlwaysApplied
	default:
		holds, err := expr.Evaluate(m.Condition, bindings)
		if err != nil {
			res.Reason = fmt.Sprintf("%s: %v", ReasonConditionFailed, err)
			return res, total
		}
		if !expr.Truthy(holds) {
			res.Reason = ReasonConditionNotMet
			return res, total
		}
		res.Reason = ReasonConditionMet
	}

	res.Applied = true
	res.Value = value
	switch m.Type {
	case ModifierAdditive:
		return res, total + value
	case ModifierMultiplicative:
		return res, total * value
	}
	// conditional only records that its condition held.
	return res, total
}

// coerce checks a formula result against its declared return type.
func coerce(rt ReturnType, v any) (any, error) {
	switch rt {
	case "":
		return v, nil
	case ReturnNumber:
		if _, ok := v.(float64); ok {
			return v, nil
		}
	case ReturnBoolean:
		if _, ok := v.(bool); ok {
			return v, nil
		}
	case ReturnString:
		switch t := v.(type) {
		case string:
			return t, nil
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(t), nil
		case nil:
			return "null", nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown return type %q", expr.ErrType, rt)
	}
	return nil, fmt.Errorf("%w: result %v is not a %s", expr.ErrType, v, rt)
}

// InitializeCharacterState seeds a fresh character from the template's stat defaults.
func InitializeCharacterState(templateID string, config *RuleTemplate) *CharacterState {
	state := &CharacterState{
		TemplateID:   templateID,
		Stats:        map[string]any{},
		Flags:        map[string]bool{},
		Variables:    map[string]any{},
		Inventory:    []InventoryItem{},
		Achievements: []string{},
	}
	if config == nil {
		return state
	}
	for _, stat := range config.Stats {
		if list, ok := stat.DefaultValue.([]any); ok {
			state.Stats[stat.ID] = append([]any{}, list...)
			continue
		}
		state.Stats[stat.ID] = stat.DefaultValue
	}
	return state
}
