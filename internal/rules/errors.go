package rules

import "fmt"

// EvaluationError reports a formula or check that could not be resolved.
// ID names the offending formula or check; Err is the underlying evaluator failure.
type EvaluationError struct {
	Kind string // "formula" or "check"
	ID   string
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("failed to evaluate %s '%s': %v", e.Kind, e.ID, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
