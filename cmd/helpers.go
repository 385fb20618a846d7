package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MarianRusoiu99/text-based-sub001/internal/data"
	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

// resolveTemplate accepts either a path to a template file or a template name looked up
// under the configured data directories.
func resolveTemplate(ref string) (*rules.RuleTemplate, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		name := strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
		return data.LoadTemplateFile(ref, name)
	}
	return newLoader().LoadTemplate(ref)
}

// parseAssignments turns "key=value" flags into typed values. Numbers become float64,
// true/false become booleans and anything else stays a string.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected key=value", pair)
		}
		out[key] = parseValue(strings.TrimSpace(raw))
	}
	return out, nil
}

func parseValue(raw string) any {
	if n, ok := rules.ToNumber(raw); ok && raw != "" {
		return n
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

// characterFor seeds a character from tmpl and overlays the assignments on its stats.
func characterFor(tmpl *rules.RuleTemplate, sets []string) (*rules.CharacterState, error) {
	overrides, err := parseAssignments(sets)
	if err != nil {
		return nil, err
	}
	char := rules.InitializeCharacterState(tmpl.ID, tmpl)
	for k, v := range overrides {
		char.Stats[k] = v
	}
	return char, nil
}

// templateFiles lists the template documents directly inside dir, sorted.
func templateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(data.Extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	slices.Sort(files)
	return files, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
