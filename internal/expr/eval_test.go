package expr

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateArithmetic(t *testing.T) {
	bindings := map[string]any{"strength": 10, "dexterity": 14.0, "str": 3}

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"literal", "42", 42.0},
		{"decimal", ".5 + 1.25", 1.75},
		{"precedence", "2 + 3 * 4", 14.0},
		{"left associative minus", "10 - 3 - 2", 5.0},
		{"left associative divide", "100 / 10 / 5", 2.0},
		{"parentheses", "(2 + 3) * 4", 20.0},
		{"modulo", "strength % 3", 1.0},
		{"unary minus", "-strength + 2", -8.0},
		{"double negation", "- -4", 4.0},
		{"binding int widened", "strength / 4", 2.5},
		{"short name does not match long name", "str + strength", 13.0},
		{"math namespace", "Math.floor(strength / 3)", 3.0},
		{"bare function", "floor(dexterity / 4)", 3.0},
		{"variadic max", "max(1, strength, 7)", 10.0},
		{"min", "Math.min(strength, dexterity)", 10.0},
		{"pow", "pow(2, 10)", 1024.0},
		{"round half up", "round(2.5)", 3.0},
		{"round negative half", "round(-2.5)", -2.0},
		{"constant", "Math.PI > 3.14", true},
		{"exponent literal", "1e3", 1000.0},
		{"signed exponent", "strength * 1e-1", 1.0},
		{"divide by zero is infinity", "1 / 0", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, bindings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateConstants(t *testing.T) {
	got, err := Evaluate("PI == Math.PI && E == Math.E", nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	// A binding with the same name wins over the bare constant.
	got, err = Evaluate("E + Math.E", map[string]any{"E": 1})
	require.NoError(t, err)
	assert.Equal(t, 1+math.E, got)
}

func TestEvaluateBooleanLogic(t *testing.T) {
	bindings := map[string]any{"strength": 10, "blessed": true, "cursed": false, "name": "Aria"}

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"comparison", "strength >= 10", true},
		{"strict inequality", "strength > 10", false},
		{"and", "blessed && strength > 5", true},
		{"or", "cursed || strength < 5", false},
		{"not", "!cursed", true},
		{"equality", "strength == 10", true},
		{"strict equality", "strength === 10", true},
		{"mixed types never equal", "strength == '10'", false},
		{"inequality", "name != 'Bob'", true},
		{"string literal double quotes", `name == "Aria"`, true},
		{"string ordering", "'a' < 'b'", true},
		{"ternary", "blessed ? strength + 2 : strength", 12.0},
		{"nested ternary", "cursed ? 1 : blessed ? 2 : 3", 2.0},
		{"null literal", "null", nil},
		{"null equality", "null == null", true},
		{"truthy number", "strength && true", true},
		{"bare binding keeps value", "strength", 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, bindings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	// The right-hand side references an unknown name and would fail if evaluated.
	got, err := Evaluate("false && missing > 1", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = Evaluate("true || missing > 1", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = Evaluate("true && missing > 1", map[string]any{})
	assert.ErrorIs(t, err, ErrUndefinedVariable)
}

func TestEvaluateErrors(t *testing.T) {
	bindings := map[string]any{"strength": 10, "name": "Aria", "bag": []string{"rope"}}

	tests := []struct {
		name string
		expr string
		want error
	}{
		{"undefined variable", "agility + 3", ErrUndefinedVariable},
		{"unbalanced parens", "((strength", ErrSyntax},
		{"invalid token", "strength = 3", ErrSyntax},
		{"statement separator", "strength; 1", ErrSyntax},
		{"empty", "", ErrSyntax},
		{"unknown function", "exec('rm -rf /')", ErrUnknownFunction},
		{"unknown function with unbound argument", "exec(nothing)", ErrUnknownFunction},
		{"unknown math member", "Math.exec('x')", ErrUnknownFunction},
		{"foreign namespace", "os.exit(1)", ErrUnknownFunction},
		{"property access", "strength.constructor", ErrUndefinedVariable},
		{"calling a value", "strength(1)", ErrUnknownFunction},
		{"function used as value", "floor + 1", ErrType},
		{"string arithmetic", "name + 1", ErrType},
		{"mixed comparison", "name > 3", ErrType},
		{"unsupported binding", "bag", ErrType},
		{"wrong arity", "pow(2)", ErrType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, bindings)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var exprErr *Error
			require.True(t, errors.As(err, &exprErr))
			assert.Equal(t, tt.expr, exprErr.Expression)
		})
	}
}

func TestEvaluateRejectsOversizedInput(t *testing.T) {
	long := make([]byte, MaxLength+1)
	for i := range long {
		long[i] = '1'
	}
	_, err := Evaluate(string(long), nil)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestProgramDoesNotMutateBindings(t *testing.T) {
	bindings := map[string]any{"strength": 10}
	p, err := Compile("strength * 2")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := p.Eval(bindings)
		require.NoError(t, err)
		assert.Equal(t, 20.0, got)
	}
	assert.Equal(t, map[string]any{"strength": 10}, bindings)
	assert.Equal(t, "strength * 2", p.Source())
}

func TestProgramConcurrentEval(t *testing.T) {
	p, err := Compile("base + bonus * 2")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := p.Eval(map[string]any{"base": i, "bonus": 1})
			assert.NoError(t, err)
			assert.Equal(t, float64(i+2), got)
		}(i)
	}
	wg.Wait()
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(0.0))
	assert.False(t, Truthy(math.NaN()))
	assert.False(t, Truthy(""))
	assert.True(t, Truthy(true))
	assert.True(t, Truthy(-1.0))
	assert.True(t, Truthy("x"))
}
