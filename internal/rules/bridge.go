package rules

import (
	"encoding/json"
	"fmt"
)

// asConfig brings any supported template representation into the untyped form the validator
// walks. Unsupported shapes yield an empty document so that every section reports missing.
func asConfig(config any) map[string]any {
	switch c := config.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return untyped(c).(map[string]any)
	case map[any]any:
		m, _ := untyped(c).(map[string]any)
		return m
	case *RuleTemplate:
		if c == nil {
			return map[string]any{}
		}
		return c.ToConfig()
	case RuleTemplate:
		return c.ToConfig()
	}

	data, err := json.Marshal(config)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// ToConfig converts the typed template into its untyped document form. Nil sections become
// empty lists, as a typed template always carries them.
func (t RuleTemplate) ToConfig() map[string]any {
	if t.Stats == nil {
		t.Stats = []StatDefinition{}
	}
	if t.Checks == nil {
		t.Checks = []CheckDefinition{}
	}
	if t.Formulas == nil {
		t.Formulas = []FormulaDefinition{}
	}
	data, err := json.Marshal(t)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// DecodeTemplate converts an untyped document into a RuleTemplate. It is meant to run after
// ValidateTemplateConfig has accepted the document.
func DecodeTemplate(config map[string]any) (*RuleTemplate, error) {
	data, err := json.Marshal(untyped(config))
	if err != nil {
		return nil, fmt.Errorf("failed to encode template: %w", err)
	}
	var t RuleTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}
	return &t, nil
}

// untyped rewrites nested map[any]any (as YAML may produce for non-string keys) into
// map[string]any, recursively.
func untyped(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = untyped(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = untyped(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = untyped(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = untyped(val)
		}
		return out
	}
	return v
}
