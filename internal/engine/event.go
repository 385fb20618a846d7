package engine

import (
	"fmt"
	"strings"

	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

type EventType string

const (
	EventSessionStarted      EventType = "SessionStarted"
	EventNodeEntered         EventType = "NodeEntered"
	EventStatChanged         EventType = "StatChanged"
	EventFlagChanged         EventType = "FlagChanged"
	EventItemChanged         EventType = "ItemChanged"
	EventVariableChanged     EventType = "VariableChanged"
	EventAchievementUnlocked EventType = "AchievementUnlocked"
	EventCheckResolved       EventType = "CheckResolved"
)

// Event is the building block of the event-sourced play state.
type Event interface {
	Type() EventType
	Apply(state *PlayState) error
	Message() string
}

// SessionStartedEvent opens a play-through of a story.
type SessionStartedEvent struct {
	StoryID    string `json:"storyId"`
	TemplateID string `json:"templateId"`
}

func (e *SessionStartedEvent) Type() EventType { return EventSessionStarted }
func (e *SessionStartedEvent) Apply(state *PlayState) error {
	state.StoryID = e.StoryID
	state.Ended = false
	if e.TemplateID != "" {
		state.Character.TemplateID = e.TemplateID
	}
	return nil
}
func (e *SessionStartedEvent) Message() string { return fmt.Sprintf("Started %s.", e.StoryID) }

// NodeEnteredEvent moves the player to a node.
type NodeEnteredEvent struct {
	NodeID string `json:"nodeId"`
	Ending bool   `json:"ending,omitempty"`
}

func (e *NodeEnteredEvent) Type() EventType { return EventNodeEntered }
func (e *NodeEnteredEvent) Apply(state *PlayState) error {
	state.NodeID = e.NodeID
	state.History = append(state.History, e.NodeID)
	state.Ended = e.Ending
	return nil
}
func (e *NodeEnteredEvent) Message() string {
	if e.Ending {
		return "The End."
	}
	return ""
}

// StatChangedEvent records the new value of a stat.
type StatChangedEvent struct {
	Stat  string `json:"stat"`
	Old   any    `json:"old"`
	Value any    `json:"value"`
}

func (e *StatChangedEvent) Type() EventType { return EventStatChanged }
func (e *StatChangedEvent) Apply(state *PlayState) error {
	state.Character.Stats[e.Stat] = e.Value
	return nil
}
func (e *StatChangedEvent) Message() string {
	return fmt.Sprintf("%s: %v -> %v", e.Stat, e.Old, e.Value)
}

// FlagChangedEvent sets or clears a flag.
type FlagChangedEvent struct {
	Flag  string `json:"flag"`
	Value bool   `json:"value"`
}

func (e *FlagChangedEvent) Type() EventType { return EventFlagChanged }
func (e *FlagChangedEvent) Apply(state *PlayState) error {
	if e.Value {
		state.Character.Flags[e.Flag] = true
	} else {
		delete(state.Character.Flags, e.Flag)
	}
	return nil
}
func (e *FlagChangedEvent) Message() string { return "" }

// ItemChangedEvent records the new quantity of an inventory item.
type ItemChangedEvent struct {
	ItemID   string `json:"itemId"`
	Name     string `json:"name,omitempty"`
	Delta    int    `json:"delta"`
	Quantity int    `json:"quantity"`
}

func (e *ItemChangedEvent) Type() EventType { return EventItemChanged }
func (e *ItemChangedEvent) Apply(state *PlayState) error {
	inv := state.Character.Inventory
	for i, it := range inv {
		if it.ID != e.ItemID {
			continue
		}
		if e.Quantity <= 0 {
			state.Character.Inventory = append(inv[:i:i], inv[i+1:]...)
			return nil
		}
		inv[i].Quantity = e.Quantity
		return nil
	}
	if e.Quantity > 0 {
		name := e.Name
		if name == "" {
			name = e.ItemID
		}
		state.Character.Inventory = append(inv, rules.InventoryItem{ID: e.ItemID, Name: name, Quantity: e.Quantity})
	}
	return nil
}
func (e *ItemChangedEvent) Message() string {
	name := e.Name
	if name == "" {
		name = e.ItemID
	}
	if e.Delta >= 0 {
		return fmt.Sprintf("Gained %d x %s.", e.Delta, name)
	}
	return fmt.Sprintf("Lost %d x %s.", -e.Delta, name)
}

// VariableChangedEvent stores a free-form story variable.
type VariableChangedEvent struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (e *VariableChangedEvent) Type() EventType { return EventVariableChanged }
func (e *VariableChangedEvent) Apply(state *PlayState) error {
	state.Character.Variables[e.Key] = e.Value
	return nil
}
func (e *VariableChangedEvent) Message() string { return "" }

// AchievementUnlockedEvent records an achievement once.
type AchievementUnlockedEvent struct {
	Achievement string `json:"achievement"`
}

func (e *AchievementUnlockedEvent) Type() EventType { return EventAchievementUnlocked }
func (e *AchievementUnlockedEvent) Apply(state *PlayState) error {
	if !HasAchievement(state.Character, e.Achievement) {
		state.Character.Achievements = append(state.Character.Achievements, e.Achievement)
	}
	return nil
}
func (e *AchievementUnlockedEvent) Message() string {
	return fmt.Sprintf("Achievement unlocked: %s", e.Achievement)
}

// CheckResolvedEvent keeps the outcome of the last check for display.
type CheckResolvedEvent struct {
	Choice string            `json:"choice"`
	Result rules.CheckResult `json:"result"`
}

func (e *CheckResolvedEvent) Type() EventType { return EventCheckResolved }
func (e *CheckResolvedEvent) Apply(state *PlayState) error {
	res := e.Result
	state.LastCheck = &res
	return nil
}
func (e *CheckResolvedEvent) Message() string {
	return FormatCheck(e.Result)
}

// FormatCheck renders a check result as a short report.
func FormatCheck(r rules.CheckResult) string {
	var sb strings.Builder
	outcome := "failure"
	if r.Success {
		outcome = "success"
	}
	if r.Critical {
		outcome = "critical " + outcome
	}
	sb.WriteString(fmt.Sprintf("Check %s: rolled %g, total %g vs %g (%s)", r.CheckID, r.Roll, r.Total, r.Threshold, outcome))
	for _, m := range r.Modifiers {
		mark := "-"
		if m.Applied {
			mark = "+"
		}
		sb.WriteString(fmt.Sprintf("\n%s %s %g: %s", mark, m.ModifierID, m.Value, m.Reason))
	}
	return sb.String()
}
