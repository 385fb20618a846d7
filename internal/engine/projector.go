package engine

import "github.com/MarianRusoiu99/text-based-sub001/internal/rules"

// Projector computes PlayState from the Event sequence
type Projector struct{}

// NewProjector creates a standard projector.
func NewProjector() *Projector {
	return &Projector{}
}

// Build seeds a character from the template and folds the events over it.
func (p *Projector) Build(tmpl *rules.RuleTemplate, events []Event) (*PlayState, error) {
	templateID := ""
	if tmpl != nil {
		templateID = tmpl.ID
	}
	state := NewPlayState(templateID, tmpl)

	for _, evt := range events {
		if err := evt.Apply(state); err != nil {
			return nil, err
		}
	}

	return state, nil
}
