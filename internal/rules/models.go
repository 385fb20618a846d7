package rules

// StatType enumerates the value kinds a stat may hold.
type StatType string

const (
	StatNumber  StatType = "number"
	StatString  StatType = "string"
	StatBoolean StatType = "boolean"
	StatArray   StatType = "array"
)

// ModifierType controls how a modifier folds into a check total.
type ModifierType string

const (
	ModifierAdditive       ModifierType = "additive"
	ModifierMultiplicative ModifierType = "multiplicative"
	ModifierConditional    ModifierType = "conditional"
)

// ReturnType is the declared result kind of a formula.
type ReturnType string

const (
	ReturnNumber  ReturnType = "number"
	ReturnBoolean ReturnType = "boolean"
	ReturnString  ReturnType = "string"
)

// RuleTemplate is an author-defined rule system: the stats a character carries,
// the checks a story can call for and the reusable formulas over those stats.
type RuleTemplate struct {
	ID       string              `json:"id,omitempty" yaml:"id,omitempty"`
	Version  string              `json:"version" yaml:"version"`
	Stats    []StatDefinition    `json:"stats" yaml:"stats"`
	Checks   []CheckDefinition   `json:"checks" yaml:"checks"`
	Formulas []FormulaDefinition `json:"formulas" yaml:"formulas"`
	Metadata TemplateMetadata    `json:"metadata" yaml:"metadata"`
}

// TemplateMetadata is descriptive only.
type TemplateMetadata struct {
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Author      string   `json:"author,omitempty" yaml:"author,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// StatDefinition declares one stat and the value a fresh character starts with.
type StatDefinition struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Type         StatType `json:"type" yaml:"type"`
	DefaultValue any      `json:"defaultValue" yaml:"defaultValue"`
	MinValue     *float64 `json:"minValue,omitempty" yaml:"minValue,omitempty"`
	MaxValue     *float64 `json:"maxValue,omitempty" yaml:"maxValue,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Category     string   `json:"category,omitempty" yaml:"category,omitempty"`
	Display      string   `json:"display,omitempty" yaml:"display,omitempty"`
}

// CheckDefinition is a skill or stat test resolved against a threshold.
type CheckDefinition struct {
	ID               string     `json:"id" yaml:"id"`
	Name             string     `json:"name" yaml:"name"`
	Formula          string     `json:"formula" yaml:"formula"`
	SuccessThreshold float64    `json:"successThreshold" yaml:"successThreshold"`
	CriticalSuccess  *float64   `json:"criticalSuccess,omitempty" yaml:"criticalSuccess,omitempty"`
	CriticalFailure  *float64   `json:"criticalFailure,omitempty" yaml:"criticalFailure,omitempty"`
	Modifiers        []Modifier `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
}

// Modifier adjusts a check total. Value is a number or a numeric string.
type Modifier struct {
	ID        string       `json:"id" yaml:"id"`
	Type      ModifierType `json:"type" yaml:"type"`
	Value     any          `json:"value" yaml:"value"`
	Condition string       `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// FormulaDefinition is a named expression that can be invoked on its own.
type FormulaDefinition struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Expression string     `json:"expression" yaml:"expression"`
	Variables  []string   `json:"variables,omitempty" yaml:"variables,omitempty"`
	ReturnType ReturnType `json:"returnType" yaml:"returnType"`
}

// FindCheck returns the check with the given ID.
func (t *RuleTemplate) FindCheck(id string) (CheckDefinition, bool) {
	for _, c := range t.Checks {
		if c.ID == id {
			return c, true
		}
	}
	return CheckDefinition{}, false
}

// FindFormula returns the formula with the given ID.
func (t *RuleTemplate) FindFormula(id string) (FormulaDefinition, bool) {
	for _, f := range t.Formulas {
		if f.ID == id {
			return f, true
		}
	}
	return FormulaDefinition{}, false
}

// FindStat returns the stat with the given ID.
func (t *RuleTemplate) FindStat(id string) (StatDefinition, bool) {
	for _, s := range t.Stats {
		if s.ID == id {
			return s, true
		}
	}
	return StatDefinition{}, false
}

// InventoryItem is one stack of items carried by a character.
type InventoryItem struct {
	ID         string         `json:"id" yaml:"id"`
	Name       string         `json:"name" yaml:"name"`
	Quantity   int            `json:"quantity" yaml:"quantity"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// CharacterState is the per-session record of a player's stats, flags and belongings.
// The rules package only reads it; the session owning it applies changes.
type CharacterState struct {
	TemplateID   string          `json:"templateId" yaml:"templateId"`
	Stats        map[string]any  `json:"stats" yaml:"stats"`
	Flags        map[string]bool `json:"flags" yaml:"flags"`
	Variables    map[string]any  `json:"variables" yaml:"variables"`
	Inventory    []InventoryItem `json:"inventory" yaml:"inventory"`
	Achievements []string        `json:"achievements" yaml:"achievements"`
}

// Clone returns a deep-enough copy for the session to mutate without aliasing.
func (s *CharacterState) Clone() *CharacterState {
	c := &CharacterState{
		TemplateID:   s.TemplateID,
		Stats:        make(map[string]any, len(s.Stats)),
		Flags:        make(map[string]bool, len(s.Flags)),
		Variables:    make(map[string]any, len(s.Variables)),
		Inventory:    make([]InventoryItem, len(s.Inventory)),
		Achievements: append([]string{}, s.Achievements...),
	}
	for k, v := range s.Stats {
		c.Stats[k] = v
	}
	for k, v := range s.Flags {
		c.Flags[k] = v
	}
	for k, v := range s.Variables {
		c.Variables[k] = v
	}
	copy(c.Inventory, s.Inventory)
	return c
}

// CheckResult is the outcome of PerformCheck.
type CheckResult struct {
	CheckID   string           `json:"checkId"`
	Roll      float64          `json:"roll"`
	Threshold float64          `json:"threshold"`
	Success   bool             `json:"success"`
	Critical  bool             `json:"critical"`
	Modifiers []ModifierResult `json:"modifiers"`
	Total     float64          `json:"total"`
}

// ModifierResult records what a single modifier contributed to a check.
type ModifierResult struct {
	ModifierID string  `json:"modifierId"`
	Value      float64 `json:"value"`
	Applied    bool    `json:"applied"`
	Reason     string  `json:"reason"`
}

// FormulaResult is the outcome of EvaluateFormula.
type FormulaResult struct {
	FormulaID  string         `json:"formulaId"`
	Result     any            `json:"result"`
	Variables  map[string]any `json:"variables"`
	Expression string         `json:"expression"`
}

// ValidationError is one coded problem found in a template.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult is the outcome of template validation. Warnings is reserved and
// currently always empty.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

// Codes returns the error codes in the order they were reported.
func (r *ValidationResult) Codes() []string {
	codes := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}
