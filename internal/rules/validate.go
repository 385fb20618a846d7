package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation error codes.
const (
	CodeInvalidVersion           = "INVALID_VERSION"
	CodeInvalidStats             = "INVALID_STATS"
	CodeDuplicateStatIDs         = "DUPLICATE_STAT_IDS"
	CodeInvalidStatID            = "INVALID_STAT_ID"
	CodeInvalidStatName          = "INVALID_STAT_NAME"
	CodeInvalidStatType          = "INVALID_STAT_TYPE"
	CodeInvalidDefaultValue      = "INVALID_DEFAULT_VALUE"
	CodeInvalidMinMax            = "INVALID_MIN_MAX"
	CodeInvalidChecks            = "INVALID_CHECKS"
	CodeInvalidCheckID           = "INVALID_CHECK_ID"
	CodeInvalidCheckFormula      = "INVALID_CHECK_FORMULA"
	CodeInvalidSuccessThreshold  = "INVALID_SUCCESS_THRESHOLD"
	CodeInvalidFormulas          = "INVALID_FORMULAS"
	CodeInvalidFormulaID         = "INVALID_FORMULA_ID"
	CodeInvalidFormulaExpression = "INVALID_FORMULA_EXPRESSION"
	CodeInvalidReturnType        = "INVALID_RETURN_TYPE"
	CodeUndefinedVariables       = "UNDEFINED_VARIABLES"
)

var (
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	// Numeric literals are matched whole, exponent included, before falling back to words.
	wordPattern    = regexp.MustCompile(`(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?|\w+`)
	numericPattern = regexp.MustCompile(`^(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)
)

// knownNames are identifiers an expression may use without declaring a stat.
var knownNames = map[string]bool{
	"true": true, "false": true, "null": true,
	"Math": true, "min": true, "max": true, "floor": true, "ceil": true, "round": true,
	"abs": true, "sqrt": true, "pow": true, "sin": true, "cos": true, "tan": true,
	// constants under Math
	"PI": true, "E": true,
}

var (
	statTypes   = map[string]bool{string(StatNumber): true, string(StatString): true, string(StatBoolean): true, string(StatArray): true}
	returnTypes = map[string]bool{string(ReturnNumber): true, string(ReturnBoolean): true, string(ReturnString): true}
)

// ValidateTemplateConfig checks an untrusted rule template for structural correctness and
// referential integrity. config is the untyped decoded document (map[string]any as produced by
// the YAML or JSON decoders); a *RuleTemplate is accepted as well. It never fails: every
// problem is reported as a coded ValidationError.
//
// Expression checking is lexical. Identifiers are extracted on word boundaries and compared
// against the declared stats and the math allow-list, so unknown names are caught but syntax
// errors such as "((strength" are not.
func ValidateTemplateConfig(config any) *ValidationResult {
	v := &validator{}
	cfg := asConfig(config)

	version, ok := cfg["version"].(string)
	if !ok || !versionPattern.MatchString(version) {
		v.add("version", "Version must follow the MAJOR.MINOR.PATCH format", CodeInvalidVersion)
	}

	// declared stays nil when the stat list is unusable; references are then not checked.
	var declared map[string]bool
	stats, ok := cfg["stats"].([]any)
	if !ok {
		v.add("stats", "Stats must be a list", CodeInvalidStats)
	} else {
		declared = map[string]bool{}
		for i, raw := range stats {
			stat, _ := raw.(map[string]any)
			v.validateStat(i, stat)
			if id, ok := stat["id"].(string); ok && id != "" {
				declared[id] = true
			}
		}
		if dups := duplicateIDs(stats); len(dups) > 0 {
			v.add("stats", fmt.Sprintf("Duplicate stat IDs found: %s", strings.Join(dups, ", ")), CodeDuplicateStatIDs)
		}
	}

	checks, ok := cfg["checks"].([]any)
	if !ok {
		v.add("checks", "Checks must be a list", CodeInvalidChecks)
	} else {
		for i, raw := range checks {
			check, _ := raw.(map[string]any)
			field := fmt.Sprintf("checks[%d]", i)
			if !nonEmptyString(check["id"]) {
				v.add(field+".id", "Check ID is required and must be a string", CodeInvalidCheckID)
			}
			if formula, ok := check["formula"].(string); !ok || formula == "" {
				v.add(field+".formula", "Check formula is required and must be a string", CodeInvalidCheckFormula)
			} else {
				v.validateReferences(field+".formula", formula, declared)
			}
			if !isNumber(check["successThreshold"]) {
				v.add(field+".successThreshold", "Success threshold must be a number", CodeInvalidSuccessThreshold)
			}
		}
	}

	formulas, ok := cfg["formulas"].([]any)
	if !ok {
		v.add("formulas", "Formulas must be a list", CodeInvalidFormulas)
	} else {
		for i, raw := range formulas {
			formula, _ := raw.(map[string]any)
			field := fmt.Sprintf("formulas[%d]", i)
			if !nonEmptyString(formula["id"]) {
				v.add(field+".id", "Formula ID is required and must be a string", CodeInvalidFormulaID)
			}
			if expression, ok := formula["expression"].(string); !ok || expression == "" {
				v.add(field+".expression", "Formula expression is required and must be a string", CodeInvalidFormulaExpression)
			} else {
				v.validateReferences(field+".expression", expression, declared)
			}
			if rt, ok := formula["returnType"].(string); !ok || !returnTypes[rt] {
				v.add(field+".returnType", "Return type must be one of: number, boolean, string", CodeInvalidReturnType)
			}
		}
	}

	return &ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: []string{},
	}
}

// Validate checks an already decoded template with the same rules as ValidateTemplateConfig.
func (t *RuleTemplate) Validate() *ValidationResult {
	return ValidateTemplateConfig(t)
}

type validator struct {
	errors []ValidationError
}

func (v *validator) add(field, message, code string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message, Code: code})
}

func (v *validator) validateStat(i int, stat map[string]any) {
	field := fmt.Sprintf("stats[%d]", i)

	if !nonEmptyString(stat["id"]) {
		v.add(field+".id", "Stat ID is required and must be a string", CodeInvalidStatID)
	}
	if !nonEmptyString(stat["name"]) {
		v.add(field+".name", "Stat name is required and must be a string", CodeInvalidStatName)
	}
	typ, ok := stat["type"].(string)
	if !ok || !statTypes[typ] {
		v.add(field+".type", "Stat type must be one of: number, string, boolean, array", CodeInvalidStatType)
		return
	}
	if typ != string(StatNumber) {
		return
	}
	if !isNumber(stat["defaultValue"]) {
		v.add(field+".defaultValue", "Default value must be a number for number stats", CodeInvalidDefaultValue)
	}
	minV, hasMin := toFloat(stat["minValue"])
	maxV, hasMax := toFloat(stat["maxValue"])
	if hasMin && hasMax && minV > maxV {
		v.add(field+".minValue", "Min value cannot be greater than max value", CodeInvalidMinMax)
	}
}

func (v *validator) validateReferences(field, expression string, declared map[string]bool) {
	if declared == nil {
		return
	}
	if undefined := UndefinedIdentifiers(expression, declared); len(undefined) > 0 {
		v.add(field, fmt.Sprintf("Undefined variables: %s", strings.Join(undefined, ", ")), CodeUndefinedVariables)
	}
}

// UndefinedIdentifiers lists, in order of first appearance, the words in expression that are
// not declared stats, literals, math names or numbers.
func UndefinedIdentifiers(expression string, declared map[string]bool) []string {
	var undefined []string
	seen := map[string]bool{}
	for _, word := range wordPattern.FindAllString(expression, -1) {
		if declared[word] || knownNames[word] || numericPattern.MatchString(word) || seen[word] {
			continue
		}
		seen[word] = true
		undefined = append(undefined, word)
	}
	return undefined
}

// duplicateIDs returns each stat ID that appears more than once, in order of its first repeat.
func duplicateIDs(stats []any) []string {
	count := map[string]int{}
	var dups []string
	for _, raw := range stats {
		stat, _ := raw.(map[string]any)
		id, ok := stat["id"].(string)
		if !ok || id == "" {
			continue
		}
		count[id]++
		if count[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}

func nonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}

func isNumber(v any) bool {
	_, ok := toFloat(v)
	return ok
}
