package rules

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Bindings returns the evaluation environment for a character: a copy of its stats.
// The copy is what FormulaResult.Variables reports.
func Bindings(state *CharacterState) map[string]any {
	if state == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(state.Stats))
	for k, v := range state.Stats {
		out[k] = v
	}
	return out
}

// toFloat accepts Go numeric kinds only. Strings are not numbers here.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// modifierValue parses a modifier value, which may be a number or a numeric string.
func modifierValue(v any) (float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// ToNumber converts a stat value to float64, accepting numeric strings as well.
func ToNumber(v any) (float64, bool) {
	return modifierValue(v)
}
