package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/MarianRusoiu99/text-based-sub001/internal/expr"
	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

// Validate reports structural problems of a story against its template: a missing start,
// dangling destinations, unknown checks and stats, unparseable expressions and
// requirements, and dead ends. The result joins every problem found; nil means playable.
// eval may be nil, in which case requirements are not compiled.
func (s *Story) Validate(tmpl *rules.RuleTemplate, eval *Evaluator) error {
	var errs []error
	addf := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if s.Start == "" {
		addf("story has no start node")
	} else if _, ok := s.Node(s.Start); !ok {
		addf("start node %q does not exist", s.Start)
	}

	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := s.Nodes[id]
		if node == nil {
			addf("node %q is empty", id)
			continue
		}
		if !node.Ending && len(node.Choices) == 0 {
			addf("node %q has no choices and is not an ending", id)
		}
		for _, err := range validateEffects(node.Effects, tmpl) {
			addf("node %q: %w", id, err)
		}

		seen := map[string]bool{}
		for i, c := range node.Choices {
			where := fmt.Sprintf("node %q choice %q", id, c.Key)
			if c.Key == "" {
				where = fmt.Sprintf("node %q choice #%d", id, i+1)
				addf("%s: missing key", where)
			} else if seen[c.Key] {
				addf("%s: duplicate key", where)
			}
			seen[c.Key] = true

			for _, dest := range []string{c.Next, c.OnSuccessNext, c.OnFailureNext} {
				if dest == "" {
					continue
				}
				if _, ok := s.Node(dest); !ok {
					addf("%s: destination %q does not exist", where, dest)
				}
			}
			if c.Check != "" {
				if tmpl == nil {
					addf("%s: check %q needs a rule template", where, c.Check)
				} else if _, ok := tmpl.FindCheck(c.Check); !ok {
					addf("%s: unknown check %q", where, c.Check)
				}
			}
			if c.Requires != "" && eval != nil {
				if err := eval.Compile(c.Requires); err != nil {
					addf("%s: %w", where, err)
				}
			}
			for _, group := range [][]Effect{c.Effects, c.OnSuccess, c.OnFailure} {
				for _, err := range validateEffects(group, tmpl) {
					addf("%s: %w", where, err)
				}
			}
		}
	}

	return errors.Join(errs...)
}

func validateEffects(effects []Effect, tmpl *rules.RuleTemplate) []error {
	var errs []error
	for _, e := range effects {
		switch e.Op {
		case OpAddStat, OpSetStat:
			if tmpl != nil {
				if _, ok := tmpl.FindStat(e.Stat); !ok {
					errs = append(errs, fmt.Errorf("%s: unknown stat %q", e.Op, e.Stat))
				}
			}
		case OpSetFlag, OpClearFlag:
			if e.Flag == "" {
				errs = append(errs, fmt.Errorf("%s: missing flag", e.Op))
			}
		case OpAddItem, OpRemoveItem:
			if e.Item == "" {
				errs = append(errs, fmt.Errorf("%s: missing item", e.Op))
			}
		case OpSetVariable:
			if e.Key == "" {
				errs = append(errs, fmt.Errorf("%s: missing key", e.Op))
			}
		case OpUnlockAchievement:
			if e.Achievement == "" {
				errs = append(errs, fmt.Errorf("%s: missing achievement", e.Op))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown effect op %q", e.Op))
		}
		if e.Expression != "" {
			if _, err := expr.Compile(e.Expression); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", e.Op, err))
			}
		}
	}
	return errs
}
