package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MarianRusoiu99/text-based-sub001/internal/engine"
	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

// Extensions tried, in order, when resolving a document by name.
var Extensions = []string{".yaml", ".yml", ".json"}

// ErrNotFound is returned when no data directory holds the requested document.
var ErrNotFound = errors.New("not found in any data directory")

// InvalidTemplateError carries the validation result of a template that failed to load.
type InvalidTemplateError struct {
	Name   string
	Result *rules.ValidationResult
}

func (e *InvalidTemplateError) Error() string {
	parts := make([]string, 0, len(e.Result.Errors))
	for _, ve := range e.Result.Errors {
		parts = append(parts, fmt.Sprintf("%s (%s)", ve.Code, ve.Field))
	}
	return fmt.Sprintf("template %s is invalid: %s", e.Name, strings.Join(parts, ", "))
}

// Loader handles reading templates and stories from the data layer
type Loader struct {
	dataDirs []string
}

// NewLoader initializes a new Data Loader with the given data directory fallback hierarchy
func NewLoader(dataDirs []string) *Loader {
	return &Loader{
		dataDirs: dataDirs,
	}
}

// LoadTemplate finds templates/<name>, validates the raw document and decodes it.
// A template that fails validation is returned as *InvalidTemplateError.
func (l *Loader) LoadTemplate(name string) (*rules.RuleTemplate, error) {
	path, err := l.find("template", "templates", name)
	if err != nil {
		return nil, err
	}
	return LoadTemplateFile(path, name)
}

// LoadTemplateFile validates and decodes a template document at an explicit path.
// name is used in errors and as the ID when the document declares none.
func LoadTemplateFile(path, name string) (*rules.RuleTemplate, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	res := rules.ValidateTemplateConfig(doc)
	if !res.Valid {
		return nil, &InvalidTemplateError{Name: name, Result: res}
	}
	tmpl, err := rules.DecodeTemplate(doc)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	if tmpl.ID == "" {
		tmpl.ID = name
	}
	return tmpl, nil
}

// LoadStory finds stories/<name> and decodes it.
func (l *Loader) LoadStory(name string) (*engine.Story, error) {
	path, err := l.find("story", "stories", name)
	if err != nil {
		return nil, err
	}
	story, err := engine.LoadStory(path)
	if err != nil {
		return nil, err
	}
	if story.ID == "" {
		story.ID = name
	}
	return story, nil
}

// ReadDocument decodes a YAML or JSON file into its untyped form.
func ReadDocument(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var doc map[string]any
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// find searches the data directories sequentially for <dir>/<name><ext>. kind names the
// document in errors.
func (l *Loader) find(kind, dir, name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == ".." {
		return "", fmt.Errorf("invalid %s name %q", kind, name)
	}
	for _, root := range l.dataDirs {
		for _, ext := range Extensions {
			path := filepath.Join(root, dir, name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%s %s: %w", kind, name, ErrNotFound)
}
