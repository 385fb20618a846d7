// Package engine runs branching stories on top of a rule template.
// Stories are graphs of nodes and choices; choices may be gated by CEL requirements,
// resolved through rule-template checks, and carry effects on the character.
// All play state is derived from an event log.
package engine

import (
	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

// --- Story model ---

// Effect operations.
const (
	OpAddStat           = "add_stat"
	OpSetStat           = "set_stat"
	OpSetFlag           = "set_flag"
	OpClearFlag         = "clear_flag"
	OpAddItem           = "add_item"
	OpRemoveItem        = "remove_item"
	OpSetVariable       = "set_variable"
	OpUnlockAchievement = "unlock_achievement"
)

// Effect is a single change to the character. Which fields matter depends on Op:
// stat ops use Stat with Value or Expression, item ops use Item, Name and Quantity,
// set_variable uses Key with Value or Expression.
type Effect struct {
	Op          string `json:"op" yaml:"op"`
	Stat        string `json:"stat,omitempty" yaml:"stat,omitempty"`
	Value       any    `json:"value,omitempty" yaml:"value,omitempty"`
	Expression  string `json:"expression,omitempty" yaml:"expression,omitempty"`
	Flag        string `json:"flag,omitempty" yaml:"flag,omitempty"`
	Item        string `json:"item,omitempty" yaml:"item,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Quantity    int    `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Key         string `json:"key,omitempty" yaml:"key,omitempty"`
	Achievement string `json:"achievement,omitempty" yaml:"achievement,omitempty"`
}

// Choice is an edge out of a node.
type Choice struct {
	Key           string   `json:"key" yaml:"key"`
	Text          string   `json:"text" yaml:"text"`
	Requires      string   `json:"requires,omitempty" yaml:"requires,omitempty"` // CEL, must yield bool
	Check         string   `json:"check,omitempty" yaml:"check,omitempty"`       // check ID in the template
	Next          string   `json:"next,omitempty" yaml:"next,omitempty"`
	OnSuccessNext string   `json:"onSuccessNext,omitempty" yaml:"onSuccessNext,omitempty"`
	OnFailureNext string   `json:"onFailureNext,omitempty" yaml:"onFailureNext,omitempty"`
	Effects       []Effect `json:"effects,omitempty" yaml:"effects,omitempty"`
	OnSuccess     []Effect `json:"onSuccess,omitempty" yaml:"onSuccess,omitempty"`
	OnFailure     []Effect `json:"onFailure,omitempty" yaml:"onFailure,omitempty"`
}

// Node is a passage of the story. Effects run every time the node is entered.
type Node struct {
	Text    string   `json:"text" yaml:"text"`
	Choices []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
	Effects []Effect `json:"effects,omitempty" yaml:"effects,omitempty"`
	Ending  bool     `json:"ending,omitempty" yaml:"ending,omitempty"`
}

// Story is a playable graph bound to a rule template.
type Story struct {
	ID         string           `json:"id" yaml:"id"`
	Title      string           `json:"title" yaml:"title"`
	Template   string           `json:"template" yaml:"template"`                         // template file name
	TemplateID string           `json:"templateId,omitempty" yaml:"templateId,omitempty"` // defaults to the template's own ID
	Start      string           `json:"start" yaml:"start"`
	Nodes      map[string]*Node `json:"nodes" yaml:"nodes"`
}

// Node returns the node with the given ID. A declared node without a body counts as missing.
func (s *Story) Node(id string) (*Node, bool) {
	n, ok := s.Nodes[id]
	return n, ok && n != nil
}

// FindChoice returns the choice with the given key on a node.
func (n *Node) FindChoice(key string) (Choice, bool) {
	for _, c := range n.Choices {
		if c.Key == key {
			return c, true
		}
	}
	return Choice{}, false
}

// --- Play state ---

// PlayState is the projection of a session's event log.
type PlayState struct {
	StoryID   string                `json:"storyId"`
	NodeID    string                `json:"nodeId"`
	Character *rules.CharacterState `json:"character"`
	History   []string              `json:"history"`
	Ended     bool                  `json:"ended"`
	LastCheck *rules.CheckResult    `json:"lastCheck,omitempty"`
}

// NewPlayState creates a state with a character seeded from the template.
func NewPlayState(templateID string, tmpl *rules.RuleTemplate) *PlayState {
	return &PlayState{
		Character: rules.InitializeCharacterState(templateID, tmpl),
		History:   make([]string, 0),
	}
}

// Clone copies the state so that events can be applied speculatively.
func (s *PlayState) Clone() *PlayState {
	c := *s
	if s.Character != nil {
		c.Character = s.Character.Clone()
	}
	c.History = append([]string{}, s.History...)
	if s.LastCheck != nil {
		check := *s.LastCheck
		c.LastCheck = &check
	}
	return &c
}

// Quantity returns how many of an item the character carries.
func Quantity(state *rules.CharacterState, item string) int {
	for _, it := range state.Inventory {
		if it.ID == item {
			return it.Quantity
		}
	}
	return 0
}

// HasAchievement reports whether the character unlocked an achievement.
func HasAchievement(state *rules.CharacterState, id string) bool {
	for _, a := range state.Achievements {
		if a == id {
			return true
		}
	}
	return false
}
