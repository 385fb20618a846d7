package session

import (
	"strconv"
	"strings"
)

// ParsedInput represents the structured result of parsing a raw player line.
// The format is:
//
//	<command> [<arg>]* [<key>: <value> [and <value>]*]*
//
// A line that is only a number selects the numbered choice.
type ParsedInput struct {
	Command string
	Args    []string
	Params  map[string]any
	Index   int // 1-based choice number, 0 when not given
}

// ParseInput parses a raw player line into a structured ParsedInput.
//
// Examples:
//
//	"2" → Command="choose", Index=2
//	"choose force" → Command="choose", Args=["force"]
//	"check force_door strength: 14" → Command="check", Args=["force_door"], Params={"strength":"14"}
//	"formula carry strength: 9 and 10" → Params={"strength":["9","10"]}
func ParseInput(input string) ParsedInput {
	result := ParsedInput{
		Params: make(map[string]any),
	}

	tokens := strings.Fields(input)
	if len(tokens) == 0 {
		return result
	}

	if n, err := strconv.Atoi(tokens[0]); err == nil && len(tokens) == 1 {
		result.Command = "choose"
		result.Index = n
		return result
	}

	// Phase 1: the command word and positional arguments before the first "key:" token
	result.Command = strings.ToLower(strings.TrimSuffix(tokens[0], ":"))
	i := 1
	for i < len(tokens) && !strings.HasSuffix(tokens[i], ":") {
		result.Args = append(result.Args, tokens[i])
		i++
	}

	// Phase 2: key: value pairs
	var currentKey string
	var currentValues []string

	flushKey := func() {
		if currentKey == "" {
			return
		}
		if len(currentValues) == 1 {
			result.Params[currentKey] = currentValues[0]
		} else if len(currentValues) > 1 {
			result.Params[currentKey] = currentValues
		}
		currentKey = ""
		currentValues = nil
	}

	for ; i < len(tokens); i++ {
		token := tokens[i]
		switch {
		case strings.HasSuffix(token, ":"):
			flushKey()
			currentKey = strings.TrimSuffix(token, ":")
		case strings.ToLower(token) == "and":
			// value separator
		default:
			currentValues = append(currentValues, token)
		}
	}
	flushKey()

	return result
}
