// Package expr evaluates author-supplied arithmetic and boolean expressions against a flat
// map of bindings. Expressions are parsed into a restricted AST and walked directly;
// identifiers are resolved during evaluation and nothing outside the bindings and the math
// allow-list is reachable.
package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/MarianRusoiu99/text-based-sub001/internal/parser"
)

// MaxLength bounds the size of a single expression.
const MaxLength = 4096

var exprParser = parser.Build()

// Program is a parsed expression ready to be evaluated any number of times.
// It is immutable and safe for concurrent use.
type Program struct {
	source string
	ast    *parser.Expression
}

// Compile parses an expression without evaluating it.
func Compile(expression string) (*Program, error) {
	if len(expression) > MaxLength {
		return nil, &Error{Expression: expression, Err: fmt.Errorf("%w: expression longer than %d characters", ErrSyntax, MaxLength)}
	}
	ast, err := exprParser.ParseString("", expression)
	if err != nil {
		return nil, &Error{Expression: expression, Err: fmt.Errorf("%w: %v", ErrSyntax, parser.MapError(expression, err))}
	}
	return &Program{source: expression, ast: ast}, nil
}

// Evaluate compiles and evaluates an expression in one step.
func Evaluate(expression string, bindings map[string]any) (any, error) {
	p, err := Compile(expression)
	if err != nil {
		return nil, err
	}
	return p.Eval(bindings)
}

// Source returns the expression text the program was compiled from.
func (p *Program) Source() string { return p.source }

// Eval runs the program. The result is a float64, bool, string or nil.
// Bindings are only read.
func (p *Program) Eval(bindings map[string]any) (any, error) {
	ev := evaluator{bindings: bindings}
	v, err := ev.expression(p.ast)
	if err != nil {
		return nil, &Error{Expression: p.source, Err: err}
	}
	return v, nil
}

type evaluator struct {
	bindings map[string]any
}

func (ev evaluator) expression(e *parser.Expression) (any, error) {
	return ev.ternary(e.Ternary)
}

func (ev evaluator) ternary(t *parser.Ternary) (any, error) {
	cond, err := ev.or(t.Cond)
	if err != nil {
		return nil, err
	}
	if t.Then == nil {
		return cond, nil
	}
	if Truthy(cond) {
		return ev.ternary(t.Then)
	}
	return ev.ternary(t.Else)
}

func (ev evaluator) or(o *parser.Or) (any, error) {
	v, err := ev.and(o.Left)
	if err != nil || len(o.Right) == 0 {
		return v, err
	}
	acc := Truthy(v)
	for _, term := range o.Right {
		if acc {
			return true, nil
		}
		r, err := ev.and(term.Operand)
		if err != nil {
			return nil, err
		}
		acc = Truthy(r)
	}
	return acc, nil
}

func (ev evaluator) and(a *parser.And) (any, error) {
	v, err := ev.equality(a.Left)
	if err != nil || len(a.Right) == 0 {
		return v, err
	}
	acc := Truthy(v)
	for _, term := range a.Right {
		if !acc {
			return false, nil
		}
		r, err := ev.equality(term.Operand)
		if err != nil {
			return nil, err
		}
		acc = Truthy(r)
	}
	return acc, nil
}

func (ev evaluator) equality(e *parser.Equality) (any, error) {
	v, err := ev.comparison(e.Left)
	if err != nil {
		return nil, err
	}
	for _, term := range e.Right {
		r, err := ev.comparison(term.Operand)
		if err != nil {
			return nil, err
		}
		eq := equal(v, r)
		if term.Op == "!=" || term.Op == "!==" {
			eq = !eq
		}
		v = eq
	}
	return v, nil
}

func (ev evaluator) comparison(c *parser.Comparison) (any, error) {
	v, err := ev.additive(c.Left)
	if err != nil {
		return nil, err
	}
	for _, term := range c.Right {
		r, err := ev.additive(term.Operand)
		if err != nil {
			return nil, err
		}
		v, err = compare(term.Op, v, r)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (ev evaluator) additive(a *parser.Additive) (any, error) {
	v, err := ev.multiplicative(a.Left)
	if err != nil || len(a.Right) == 0 {
		return v, err
	}
	acc, err := number(a.Right[0].Op, v)
	if err != nil {
		return nil, err
	}
	for _, term := range a.Right {
		r, err := ev.multiplicative(term.Operand)
		if err != nil {
			return nil, err
		}
		n, err := number(term.Op, r)
		if err != nil {
			return nil, err
		}
		if term.Op == "+" {
			acc += n
		} else {
			acc -= n
		}
	}
	return acc, nil
}

func (ev evaluator) multiplicative(m *parser.Multiplicative) (any, error) {
	v, err := ev.unary(m.Left)
	if err != nil || len(m.Right) == 0 {
		return v, err
	}
	acc, err := number(m.Right[0].Op, v)
	if err != nil {
		return nil, err
	}
	for _, term := range m.Right {
		r, err := ev.unary(term.Operand)
		if err != nil {
			return nil, err
		}
		n, err := number(term.Op, r)
		if err != nil {
			return nil, err
		}
		switch term.Op {
		case "*":
			acc *= n
		case "/":
			acc /= n
		case "%":
			acc = math.Mod(acc, n)
		}
	}
	return acc, nil
}

func (ev evaluator) unary(u *parser.Unary) (any, error) {
	if u.Primary != nil {
		return ev.primary(u.Primary)
	}
	v, err := ev.unary(u.Unary)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case "!":
		return !Truthy(v), nil
	case "-":
		n, err := number("unary -", v)
		if err != nil {
			return nil, err
		}
		return -n, nil
	default:
		return number("unary +", v)
	}
}

func (ev evaluator) primary(p *parser.Primary) (any, error) {
	switch {
	case p.Number != nil:
		return *p.Number, nil
	case p.String != nil:
		return unquote(*p.String), nil
	case p.Bool != nil:
		return bool(*p.Bool), nil
	case p.Null:
		return nil, nil
	case p.Ref != nil:
		return ev.reference(p.Ref)
	case p.Sub != nil:
		return ev.expression(p.Sub)
	}
	return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
}

func (ev evaluator) reference(r *parser.Reference) (any, error) {
	if r.Call != nil {
		name := r.Name
		if r.Member != "" {
			if r.Name != MathNamespace {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownFunction, r.Name, r.Member)
			}
			name = r.Member
		}
		if !IsFunction(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
		}
		args := make([]float64, 0, len(r.Call.Args))
		for _, a := range r.Call.Args {
			v, err := ev.expression(a)
			if err != nil {
				return nil, err
			}
			n, err := number(name, v)
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		}
		return call(name, args)
	}

	if r.Member != "" {
		if c, ok := constants[r.Member]; ok && r.Name == MathNamespace {
			return c, nil
		}
		return nil, fmt.Errorf("%w: %s.%s", ErrUndefinedVariable, r.Name, r.Member)
	}

	raw, ok := ev.bindings[r.Name]
	if !ok {
		if c, ok := constants[r.Name]; ok {
			return c, nil
		}
		if IsFunction(r.Name) || r.Name == MathNamespace {
			return nil, fmt.Errorf("%w: %s is a function and must be called", ErrType, r.Name)
		}
		return nil, fmt.Errorf("%w: %s", ErrUndefinedVariable, r.Name)
	}
	v, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", r.Name, err)
	}
	return v, nil
}

// Truthy reports whether a value counts as true in a condition.
// false, 0, NaN, "" and nil are falsy; everything else is truthy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	}
	return true
}

// normalize widens a bound Go value to the evaluator's scalar types.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string, float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrType, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: unsupported value of type %T", ErrType, v)
}

func number(op string, v any) (float64, error) {
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s expects a number, got %s", ErrType, op, typeName(v))
	}
	return n, nil
}

func equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	}
	return false
}

func compare(op string, a, b any) (bool, error) {
	if x, ok := a.(float64); ok {
		if y, ok := b.(float64); ok {
			switch op {
			case "<":
				return x < y, nil
			case "<=":
				return x <= y, nil
			case ">":
				return x > y, nil
			default:
				return x >= y, nil
			}
		}
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			switch op {
			case "<":
				return x < y, nil
			case "<=":
				return x <= y, nil
			case ">":
				return x > y, nil
			default:
				return x >= y, nil
			}
		}
	}
	return false, fmt.Errorf("%w: cannot compare %s %s %s", ErrType, typeName(a), op, typeName(b))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case string:
		return "string"
	}
	return fmt.Sprintf("%T", v)
}

// unquote strips the surrounding quotes of a String token and resolves simple escapes.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	body := s[1 : len(s)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	escaped := false
	for _, r := range body {
		if !escaped {
			if r == '\\' {
				escaped = true
				continue
			}
			b.WriteRune(r)
			continue
		}
		escaped = false
		switch r {
		case 'n':
			b.WriteRune('\n')
		case 't':
			b.WriteRune('\t')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
