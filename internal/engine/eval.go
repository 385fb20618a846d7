package engine

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"

	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

// Evaluator wraps a CEL environment configured for choice requirements.
// Compiled programs are cached per expression; an Evaluator is safe for concurrent use.
type Evaluator struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewEvaluator creates a CEL environment exposing the character record:
//
//	stats        map(string, dyn)
//	flags        map(string, bool)
//	variables    map(string, dyn)
//	inventory    map(string, int)   item ID to quantity
//	achievements list(string)
//
// plus has_item(inventory, id) and item_count(inventory, id).
func NewEvaluator() (*Evaluator, error) {
	inventoryType := cel.MapType(cel.StringType, cel.IntType)

	env, err := cel.NewEnv(
		ext.Strings(),
		ext.Lists(),
		ext.Math(),
		cel.CrossTypeNumericComparisons(true),

		cel.Variable("stats", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("flags", cel.MapType(cel.StringType, cel.BoolType)),
		cel.Variable("variables", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("inventory", inventoryType),
		cel.Variable("achievements", cel.ListType(cel.StringType)),

		cel.Function("has_item",
			cel.Overload("has_item_map_string",
				[]*cel.Type{inventoryType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(inv, item ref.Val) ref.Val {
					return types.Bool(lookupQuantity(inv, item) > 0)
				}),
			),
		),
		cel.Function("item_count",
			cel.Overload("item_count_map_string",
				[]*cel.Type{inventoryType, cel.StringType},
				cel.IntType,
				cel.BinaryBinding(func(inv, item ref.Val) ref.Val {
					return types.Int(lookupQuantity(inv, item))
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env, cache: make(map[string]cel.Program)}, nil
}

// Compile checks an expression without evaluating it.
func (ev *Evaluator) Compile(expression string) error {
	_, err := ev.program(expression)
	return err
}

// Eval evaluates a CEL expression against the character and returns a native Go value.
func (ev *Evaluator) Eval(expression string, state *rules.CharacterState) (any, error) {
	prg, err := ev.program(expression)
	if err != nil {
		return nil, err
	}
	out, _, err := prg.Eval(Context(state))
	if err != nil {
		return nil, fmt.Errorf("CEL eval error: %w", err)
	}
	return convertRefVal(out), nil
}

// Allows evaluates a requirement. An empty requirement always holds.
func (ev *Evaluator) Allows(requires string, state *rules.CharacterState) (bool, error) {
	if requires == "" {
		return true, nil
	}
	out, err := ev.Eval(requires, state)
	if err != nil {
		return false, err
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("requirement %q yields %T, want bool", requires, out)
	}
	return ok, nil
}

func (ev *Evaluator) program(expression string) (cel.Program, error) {
	ev.mu.RLock()
	prg, ok := ev.cache[expression]
	ev.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := ev.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}
	prg, err := ev.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program error: %w", err)
	}

	ev.mu.Lock()
	ev.cache[expression] = prg
	ev.mu.Unlock()
	return prg, nil
}

// Context builds the CEL activation for a character. Numeric stats are widened to
// double so comparisons against literals behave the same for every stat.
func Context(state *rules.CharacterState) map[string]any {
	if state == nil {
		state = &rules.CharacterState{}
	}

	stats := make(map[string]any, len(state.Stats))
	for k, v := range state.Stats {
		stats[k] = widen(v)
	}
	variables := make(map[string]any, len(state.Variables))
	for k, v := range state.Variables {
		variables[k] = widen(v)
	}
	flags := make(map[string]bool, len(state.Flags))
	for k, v := range state.Flags {
		flags[k] = v
	}
	inventory := make(map[string]int64, len(state.Inventory))
	for _, it := range state.Inventory {
		inventory[it.ID] += int64(it.Quantity)
	}
	achievements := append([]string{}, state.Achievements...)

	return map[string]any{
		"stats":        stats,
		"flags":        flags,
		"variables":    variables,
		"inventory":    inventory,
		"achievements": achievements,
	}
}

func widen(v any) any {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		f, _ := rules.ToNumber(v)
		return f
	}
	return v
}

func lookupQuantity(inv, item ref.Val) int64 {
	m, ok := inv.(traits.Mapper)
	if !ok {
		return 0
	}
	v, found := m.Find(item)
	if !found {
		return 0
	}
	if n, ok := v.(types.Int); ok {
		return int64(n)
	}
	return 0
}

// convertRefVal converts a CEL ref.Val to a native Go value, recursively handling
// maps and lists so that downstream code can use standard Go type assertions.
func convertRefVal(val ref.Val) any {
	native := val.Value()
	switch v := native.(type) {
	case map[ref.Val]ref.Val:
		result := make(map[string]any, len(v))
		for mk, mv := range v {
			result[fmt.Sprintf("%v", mk.Value())] = convertRefVal(mv)
		}
		return result
	case []ref.Val:
		result := make([]any, len(v))
		for i, rv := range v {
			result[i] = convertRefVal(rv)
		}
		return result
	default:
		return native
	}
}
