package expr

import (
	"fmt"
	"math"
)

// function is an allow-listed math routine. Arity is checked before the call.
type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	fn      func(args []float64) float64
}

// MathNamespace is the identifier under which the math allow-list is also reachable
// ("Math.floor(x)" and "floor(x)" are the same call).
const MathNamespace = "Math"

var functions = map[string]function{
	"min":   {minArgs: 1, maxArgs: -1, fn: fold(math.Min)},
	"max":   {minArgs: 1, maxArgs: -1, fn: fold(math.Max)},
	"floor": {minArgs: 1, maxArgs: 1, fn: unary(math.Floor)},
	"ceil":  {minArgs: 1, maxArgs: 1, fn: unary(math.Ceil)},
	"round": {minArgs: 1, maxArgs: 1, fn: unary(roundHalfUp)},
	"abs":   {minArgs: 1, maxArgs: 1, fn: unary(math.Abs)},
	"sqrt":  {minArgs: 1, maxArgs: 1, fn: unary(math.Sqrt)},
	"pow":   {minArgs: 2, maxArgs: 2, fn: func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"sin":   {minArgs: 1, maxArgs: 1, fn: unary(math.Sin)},
	"cos":   {minArgs: 1, maxArgs: 1, fn: unary(math.Cos)},
	"tan":   {minArgs: 1, maxArgs: 1, fn: unary(math.Tan)},
}

var constants = map[string]float64{
	"PI": math.Pi,
	"E":  math.E,
}

// FunctionNames lists the allow-listed math functions.
func FunctionNames() []string {
	return []string{"min", "max", "floor", "ceil", "round", "abs", "sqrt", "pow", "sin", "cos", "tan"}
}

// IsFunction reports whether name is an allow-listed math function.
func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}

func call(name string, args []float64) (float64, error) {
	f, ok := functions[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if len(args) < f.minArgs || (f.maxArgs >= 0 && len(args) > f.maxArgs) {
		return 0, fmt.Errorf("%w: %s called with %d argument(s)", ErrType, name, len(args))
	}
	return f.fn(args), nil
}

func unary(f func(float64) float64) func([]float64) float64 {
	return func(a []float64) float64 { return f(a[0]) }
}

func fold(f func(float64, float64) float64) func([]float64) float64 {
	return func(a []float64) float64 {
		acc := a[0]
		for _, v := range a[1:] {
			acc = f(acc, v)
		}
		return acc
	}
}

// roundHalfUp rounds .5 towards +Inf, so round(-2.5) is -2.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
