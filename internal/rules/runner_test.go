package rules

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarianRusoiu99/text-based-sub001/internal/expr"
)

func ptr(f float64) *float64 { return &f }

func strengthTemplate() *RuleTemplate {
	return &RuleTemplate{
		ID:      "basic",
		Version: "1.0.0",
		Stats: []StatDefinition{
			{ID: "strength", Name: "Strength", Type: StatNumber, DefaultValue: 10},
		},
	}
}

func TestInitializeCharacterState(t *testing.T) {
	tmpl := &RuleTemplate{
		Version: "1.0.0",
		Stats: []StatDefinition{
			{ID: "strength", Name: "Strength", Type: StatNumber, DefaultValue: 10},
			{ID: "title", Name: "Title", Type: StatString, DefaultValue: "Squire"},
			{ID: "brave", Name: "Brave", Type: StatBoolean, DefaultValue: true},
			{ID: "bag", Name: "Bag", Type: StatArray, DefaultValue: []any{"rope"}},
		},
	}

	state := InitializeCharacterState("tmpl-1", tmpl)

	assert.Equal(t, "tmpl-1", state.TemplateID)
	require.Len(t, state.Stats, len(tmpl.Stats))
	for _, stat := range tmpl.Stats {
		assert.Equal(t, stat.DefaultValue, state.Stats[stat.ID])
	}
	assert.Empty(t, state.Flags)
	assert.Empty(t, state.Variables)
	assert.NotNil(t, state.Inventory)
	assert.NotNil(t, state.Achievements)

	// Seeded lists do not alias the template.
	state.Stats["bag"] = append(state.Stats["bag"].([]any), "torch")
	assert.Equal(t, []any{"rope"}, tmpl.Stats[3].DefaultValue)
}

func TestPerformCheckScenarios(t *testing.T) {
	state := InitializeCharacterState("basic", strengthTemplate())

	t.Run("threshold reached", func(t *testing.T) {
		res, err := PerformCheck(CheckDefinition{ID: "lift", Formula: "strength", SuccessThreshold: 10}, state)
		require.NoError(t, err)
		assert.Equal(t, "lift", res.CheckID)
		assert.Equal(t, 10.0, res.Roll)
		assert.Equal(t, 10.0, res.Total)
		assert.True(t, res.Success)
		assert.False(t, res.Critical)
		assert.Empty(t, res.Modifiers)
	})

	t.Run("threshold missed", func(t *testing.T) {
		res, err := PerformCheck(CheckDefinition{ID: "lift", Formula: "strength", SuccessThreshold: 11}, state)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 11.0, res.Threshold)
	})

	t.Run("additive modifier", func(t *testing.T) {
		res, err := PerformCheck(CheckDefinition{
			ID: "lift", Formula: "strength", SuccessThreshold: 11,
			Modifiers: []Modifier{{ID: "mighty", Type: ModifierAdditive, Value: 5, Condition: "strength >= 10"}},
		}, state)
		require.NoError(t, err)
		assert.Equal(t, 15.0, res.Total)
		assert.True(t, res.Success)
		require.Len(t, res.Modifiers, 1)
		assert.Equal(t, ModifierResult{ModifierID: "mighty", Value: 5, Applied: true, Reason: ReasonConditionMet}, res.Modifiers[0])
	})

	t.Run("formula", func(t *testing.T) {
		res, err := EvaluateFormula(FormulaDefinition{ID: "carry", Expression: "Math.floor(strength / 3)", ReturnType: ReturnNumber}, state)
		require.NoError(t, err)
		assert.Equal(t, 3.0, res.Result)
		assert.Equal(t, "Math.floor(strength / 3)", res.Expression)
		assert.Equal(t, map[string]any{"strength": 10}, res.Variables)
	})
}

func TestPerformCheckModifierIsolation(t *testing.T) {
	state := InitializeCharacterState("basic", strengthTemplate())
	check := CheckDefinition{
		ID: "lift", Formula: "strength", SuccessThreshold: 12,
		Modifiers: []Modifier{
			{ID: "broken", Type: ModifierAdditive, Value: 100, Condition: "((strength"},
			{ID: "unknown", Type: ModifierAdditive, Value: 100, Condition: "agility > 1"},
			{ID: "valid", Type: ModifierAdditive, Value: 2, Condition: "strength > 5"},
		},
	}

	res, err := PerformCheck(check, state)
	require.NoError(t, err)

	require.Len(t, res.Modifiers, 3)
	assert.False(t, res.Modifiers[0].Applied)
	assert.Equal(t, 0.0, res.Modifiers[0].Value)
	assert.Contains(t, res.Modifiers[0].Reason, ReasonConditionFailed)
	assert.False(t, res.Modifiers[1].Applied)
	assert.Contains(t, res.Modifiers[1].Reason, "undefined variable")
	assert.True(t, res.Modifiers[2].Applied)
	assert.Equal(t, 12.0, res.Total)
	assert.True(t, res.Success)
}

func TestPerformCheckModifierKinds(t *testing.T) {
	state := InitializeCharacterState("basic", strengthTemplate())

	tests := []struct {
		name    string
		mod     Modifier
		total   float64
		applied bool
		reason  string
	}{
		{"unconditional additive", Modifier{ID: "m", Type: ModifierAdditive, Value: 3}, 13, true, ReasonAlwaysApplied},
		{"numeric string value", Modifier{ID: "m", Type: ModifierAdditive, Value: " -4 "}, 6, true, ReasonAlwaysApplied},
		{"multiplicative", Modifier{ID: "m", Type: ModifierMultiplicative, Value: 1.5}, 15, true, ReasonAlwaysApplied},
		{"condition not met", Modifier{ID: "m", Type: ModifierMultiplicative, Value: 2, Condition: "strength > 10"}, 10, false, ReasonConditionNotMet},
		{"conditional met leaves total", Modifier{ID: "m", Type: ModifierConditional, Value: 4, Condition: "strength == 10"}, 10, true, ReasonConditionMet},
		{"conditional not met", Modifier{ID: "m", Type: ModifierConditional, Value: 4, Condition: "strength > 10"}, 10, false, ReasonConditionNotMet},
		{"conditional without condition", Modifier{ID: "m", Type: ModifierConditional, Value: 4}, 10, true, ReasonAlwaysApplied},
		{"multiplicative without condition", Modifier{ID: "m", Type: ModifierMultiplicative, Value: 3}, 30, true, ReasonAlwaysApplied},
		{"invalid value", Modifier{ID: "m", Type: ModifierAdditive, Value: "lots"}, 10, false, ReasonInvalidValue},
		{"unknown type", Modifier{ID: "m", Type: "exponential", Value: 2}, 10, false, ReasonUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := PerformCheck(CheckDefinition{ID: "c", Formula: "strength", SuccessThreshold: 0, Modifiers: []Modifier{tt.mod}}, state)
			require.NoError(t, err)
			assert.Equal(t, tt.total, res.Total)
			assert.Equal(t, 10.0, res.Roll)
			assert.Equal(t, tt.applied, res.Modifiers[0].Applied)
			assert.Equal(t, tt.reason, res.Modifiers[0].Reason)
		})
	}
}

func TestPerformCheckModifiersFoldInOrder(t *testing.T) {
	state := InitializeCharacterState("basic", strengthTemplate())

	res, err := PerformCheck(CheckDefinition{
		ID: "c", Formula: "strength", SuccessThreshold: 0,
		Modifiers: []Modifier{
			{ID: "plus", Type: ModifierAdditive, Value: 2},
			{ID: "double", Type: ModifierMultiplicative, Value: 2},
		},
	}, state)
	require.NoError(t, err)
	assert.Equal(t, 24.0, res.Total)
}

func TestPerformCheckCriticals(t *testing.T) {
	state := InitializeCharacterState("basic", strengthTemplate())

	tests := []struct {
		name     string
		success  *float64
		failure  *float64
		critical bool
	}{
		{"none configured", nil, nil, false},
		{"critical success reached", ptr(10), nil, true},
		{"critical success missed", ptr(11), nil, false},
		{"critical failure reached", nil, ptr(10), true},
		{"critical failure missed", nil, ptr(9), false},
		{"overlapping thresholds", ptr(5), ptr(15), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := PerformCheck(CheckDefinition{
				ID: "c", Formula: "strength", SuccessThreshold: 10,
				CriticalSuccess: tt.success, CriticalFailure: tt.failure,
			}, state)
			require.NoError(t, err)
			assert.Equal(t, tt.critical, res.Critical)
		})
	}
}

func TestPerformCheckRollFailure(t *testing.T) {
	state := InitializeCharacterState("basic", strengthTemplate())

	for _, formula := range []string{"agility + 3", "((strength", "strength > 3"} {
		_, err := PerformCheck(CheckDefinition{ID: "lift", Formula: formula, SuccessThreshold: 10}, state)
		require.Error(t, err)

		var evalErr *EvaluationError
		require.True(t, errors.As(err, &evalErr))
		assert.Equal(t, "check", evalErr.Kind)
		assert.Equal(t, "lift", evalErr.ID)
		assert.Contains(t, err.Error(), "failed to evaluate check 'lift'")
	}

	_, err := PerformCheck(CheckDefinition{ID: "lift", Formula: "agility"}, state)
	assert.ErrorIs(t, err, expr.ErrUndefinedVariable)
}

func TestEvaluateFormulaReturnTypes(t *testing.T) {
	state := &CharacterState{Stats: map[string]any{"strength": 10, "name": "Aria", "brave": true}}

	tests := []struct {
		name string
		expr string
		rt   ReturnType
		want any
		err  bool
	}{
		{"number", "strength * 2", ReturnNumber, 20.0, false},
		{"number rejects bool", "strength > 2", ReturnNumber, nil, true},
		{"boolean", "brave && strength > 2", ReturnBoolean, true, false},
		{"boolean rejects number", "strength", ReturnBoolean, nil, true},
		{"string passes through", "name", ReturnString, "Aria", false},
		{"string formats number", "strength / 4", ReturnString, "2.5", false},
		{"string formats bool", "!brave", ReturnString, "false", false},
		{"untyped", "brave ? name : strength", "", "Aria", false},
		{"unknown return type", "strength", "array", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := EvaluateFormula(FormulaDefinition{ID: "f", Expression: tt.expr, ReturnType: tt.rt}, state)
			if tt.err {
				require.Error(t, err)
				assert.ErrorIs(t, err, expr.ErrType)
				var evalErr *EvaluationError
				require.True(t, errors.As(err, &evalErr))
				assert.Equal(t, "formula", evalErr.Kind)
				assert.Equal(t, "f", evalErr.ID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Result)
		})
	}
}

func TestEvaluateFormulaDoesNotMutateState(t *testing.T) {
	state := InitializeCharacterState("basic", strengthTemplate())
	before := state.Clone()

	res, err := EvaluateFormula(FormulaDefinition{ID: "f", Expression: "strength + 1"}, state)
	require.NoError(t, err)

	res.Variables["strength"] = 99
	assert.Equal(t, before, state)
}

func TestPerformCheckIsDeterministicAndConcurrent(t *testing.T) {
	state := InitializeCharacterState("basic", strengthTemplate())
	check := CheckDefinition{
		ID: "c", Formula: "strength * 2 + round(strength / 4)", SuccessThreshold: 20,
		Modifiers: []Modifier{{ID: "m", Type: ModifierAdditive, Value: "1.5", Condition: "strength % 2 == 0"}},
	}

	first, err := PerformCheck(check, state)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := PerformCheck(check, state)
			assert.NoError(t, err)
			assert.Equal(t, first, res)
		}()
	}
	wg.Wait()
	assert.Equal(t, 24.5, first.Total)
}
