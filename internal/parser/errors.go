package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
)

// MapError takes a raw expression and a participle error, and returns a human-friendly message
// pointing at the offending column.
func MapError(input string, err error) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("expression is empty")
	}

	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		return fmt.Errorf("%s at column %d", perr.Message(), pos.Column)
	}

	return fmt.Errorf("unable to parse expression %q", input)
}
