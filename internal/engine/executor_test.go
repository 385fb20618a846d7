package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

func fptr(f float64) *float64 { return &f }

// testTemplate is a small rule system with one bounded stat and one check.
func testTemplate() *rules.RuleTemplate {
	return &rules.RuleTemplate{
		ID:      "heroic",
		Version: "1.0.0",
		Stats: []rules.StatDefinition{
			{ID: "strength", Name: "Strength", Type: rules.StatNumber, DefaultValue: 10, MinValue: fptr(0), MaxValue: fptr(12)},
			{ID: "title", Name: "Title", Type: rules.StatString, DefaultValue: "Squire"},
		},
		Checks: []rules.CheckDefinition{
			{ID: "force_door", Name: "Force door", Formula: "strength", SuccessThreshold: 11},
		},
	}
}

// testStory is a gate that can be forced or unlocked with a key.
func testStory() *Story {
	return &Story{
		ID:       "gate",
		Title:    "The Gate",
		Template: "heroic",
		Start:    "yard",
		Nodes: map[string]*Node{
			"yard": {
				Text: "A locked gate.",
				Choices: []Choice{
					{Key: "search", Text: "Search the yard", Next: "yard", Effects: []Effect{
						{Op: OpAddItem, Item: "key", Name: "Rusty key"},
						{Op: OpSetFlag, Flag: "searched"},
					}},
					{Key: "unlock", Text: "Use the key", Requires: "has_item(inventory, 'key')", Next: "inside", Effects: []Effect{
						{Op: OpRemoveItem, Item: "key"},
					}},
					{Key: "force", Text: "Force the gate", Check: "force_door", OnSuccessNext: "inside", OnFailureNext: "yard",
						OnSuccess: []Effect{{Op: OpUnlockAchievement, Achievement: "brute"}},
						OnFailure: []Effect{{Op: OpAddStat, Stat: "strength", Value: 1}},
					},
					{Key: "train", Text: "Train", Next: "yard", Requires: "!('searched' in flags)", Effects: []Effect{
						{Op: OpAddStat, Stat: "strength", Expression: "strength"},
					}},
				},
			},
			"inside": {
				Text:   "You are through.",
				Ending: true,
				Effects: []Effect{
					{Op: OpSetVariable, Key: "visits", Value: 1},
				},
			},
		},
	}
}

func startState(t *testing.T, story *Story, tmpl *rules.RuleTemplate) *PlayState {
	t.Helper()
	events, err := Start(story, tmpl)
	require.NoError(t, err)
	state, err := NewProjector().Build(tmpl, events)
	require.NoError(t, err)
	return state
}

func apply(t *testing.T, state *PlayState, events []Event) {
	t.Helper()
	for _, e := range events {
		require.NoError(t, e.Apply(state))
	}
}

func TestStart(t *testing.T) {
	tmpl := testTemplate()
	events, err := Start(testStory(), tmpl)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, EventSessionStarted, events[0].Type())
	assert.Equal(t, &NodeEnteredEvent{NodeID: "yard"}, events[1])

	state, err := NewProjector().Build(tmpl, events)
	require.NoError(t, err)
	assert.Equal(t, "gate", state.StoryID)
	assert.Equal(t, "yard", state.NodeID)
	assert.Equal(t, "heroic", state.Character.TemplateID)
	assert.Equal(t, 10, state.Character.Stats["strength"])
}

func TestExecuteChoiceEffectsAndRequirements(t *testing.T) {
	story, tmpl := testStory(), testTemplate()
	eval, err := NewEvaluator()
	require.NoError(t, err)
	state := startState(t, story, tmpl)

	choices, err := AvailableChoices(state, story, eval)
	require.NoError(t, err)
	assert.Equal(t, []string{"search", "force", "train"}, keys(choices))

	_, err = ExecuteChoice("unlock", state, story, tmpl, eval)
	assert.ErrorIs(t, err, ErrChoiceUnavailable)

	events, err := ExecuteChoice("search", state, story, tmpl, eval)
	require.NoError(t, err)
	assert.Equal(t, "yard", state.NodeID, "ExecuteChoice must not touch the state")
	assert.Empty(t, state.Character.Inventory)

	apply(t, state, events)
	assert.Equal(t, 1, Quantity(state.Character, "key"))
	assert.True(t, state.Character.Flags["searched"])

	choices, err = AvailableChoices(state, story, eval)
	require.NoError(t, err)
	assert.Equal(t, []string{"search", "unlock", "force"}, keys(choices))

	events, err = ExecuteChoice("unlock", state, story, tmpl, eval)
	require.NoError(t, err)
	apply(t, state, events)
	assert.Equal(t, 0, Quantity(state.Character, "key"))
	assert.Equal(t, "inside", state.NodeID)
	assert.True(t, state.Ended)
	assert.Equal(t, 1, state.Character.Variables["visits"])
	assert.Equal(t, []string{"yard", "yard", "inside"}, state.History)

	_, err = ExecuteChoice("search", state, story, tmpl, eval)
	assert.ErrorIs(t, err, ErrStoryEnded)
}

func TestExecuteChoiceCheckBranches(t *testing.T) {
	story, tmpl := testStory(), testTemplate()
	eval, err := NewEvaluator()
	require.NoError(t, err)
	state := startState(t, story, tmpl)

	// strength 10 against 11 fails and trains strength by one.
	events, err := ExecuteChoice("force", state, story, tmpl, eval)
	require.NoError(t, err)
	apply(t, state, events)

	require.NotNil(t, state.LastCheck)
	assert.False(t, state.LastCheck.Success)
	assert.Equal(t, 11.0, state.Character.Stats["strength"])
	assert.Equal(t, "yard", state.NodeID)

	events, err = ExecuteChoice("force", state, story, tmpl, eval)
	require.NoError(t, err)
	apply(t, state, events)

	assert.True(t, state.LastCheck.Success)
	assert.Equal(t, "inside", state.NodeID)
	assert.Equal(t, []string{"brute"}, state.Character.Achievements)
}

func TestExecuteChoiceClampsStats(t *testing.T) {
	story, tmpl := testStory(), testTemplate()
	eval, err := NewEvaluator()
	require.NoError(t, err)
	state := startState(t, story, tmpl)

	// strength + strength is capped at the stat maximum.
	events, err := ExecuteChoice("train", state, story, tmpl, eval)
	require.NoError(t, err)
	apply(t, state, events)

	assert.Equal(t, 12.0, state.Character.Stats["strength"])
	changed := events[0].(*StatChangedEvent)
	assert.Equal(t, 10, changed.Old)
}

func TestExecuteChoiceErrors(t *testing.T) {
	story, tmpl := testStory(), testTemplate()
	eval, err := NewEvaluator()
	require.NoError(t, err)
	state := startState(t, story, tmpl)

	_, err = ExecuteChoice("fly", state, story, tmpl, eval)
	assert.ErrorIs(t, err, ErrUnknownChoice)

	story.Nodes["yard"].Choices[0].Next = "nowhere"
	_, err = ExecuteChoice("search", state, story, tmpl, eval)
	assert.ErrorIs(t, err, ErrUnknownNode)

	tmpl.Checks[0].Formula = "agility"
	_, err = ExecuteChoice("force", state, story, tmpl, eval)
	var evalErr *rules.EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "force_door", evalErr.ID)

	tmpl.Checks = nil
	_, err = ExecuteChoice("force", state, story, tmpl, eval)
	assert.ErrorIs(t, err, ErrUnknownCheck)
}

func TestEmptyNodesAreMissing(t *testing.T) {
	story, tmpl := testStory(), testTemplate()
	eval, err := NewEvaluator()
	require.NoError(t, err)
	state := startState(t, story, tmpl)

	story.Nodes["void"] = nil
	story.Nodes["yard"].Choices[0].Next = "void"
	_, err = ExecuteChoice("search", state, story, tmpl, eval)
	assert.ErrorIs(t, err, ErrUnknownNode)

	state.NodeID = "void"
	_, err = AvailableChoices(state, story, eval)
	assert.ErrorIs(t, err, ErrUnknownNode)
	_, err = ExecuteChoice("search", state, story, tmpl, eval)
	assert.ErrorIs(t, err, ErrUnknownNode)

	err = story.Validate(tmpl, eval)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "void" is empty`)
	assert.Contains(t, err.Error(), `destination "void" does not exist`)
}

func TestEffectEvents(t *testing.T) {
	tmpl := testTemplate()
	char := rules.InitializeCharacterState("heroic", tmpl)
	char.Inventory = []rules.InventoryItem{{ID: "coin", Name: "Coin", Quantity: 2}}
	char.Achievements = []string{"first"}

	tests := []struct {
		name   string
		effect Effect
		want   Event
	}{
		{"set stat numeric", Effect{Op: OpSetStat, Stat: "strength", Value: -3}, &StatChangedEvent{Stat: "strength", Old: 10, Value: 0.0}},
		{"set stat string", Effect{Op: OpSetStat, Stat: "title", Value: "Knight"}, &StatChangedEvent{Stat: "title", Old: "Squire", Value: "Knight"}},
		{"set stat expression", Effect{Op: OpSetStat, Stat: "strength", Expression: "strength / 2"}, &StatChangedEvent{Stat: "strength", Old: 10, Value: 5.0}},
		{"set flag false", Effect{Op: OpSetFlag, Flag: "f", Value: false}, &FlagChangedEvent{Flag: "f", Value: false}},
		{"clear flag", Effect{Op: OpClearFlag, Flag: "f"}, &FlagChangedEvent{Flag: "f"}},
		{"add items", Effect{Op: OpAddItem, Item: "coin", Quantity: 3}, &ItemChangedEvent{ItemID: "coin", Delta: 3, Quantity: 5}},
		{"remove more than held", Effect{Op: OpRemoveItem, Item: "coin", Quantity: 5}, &ItemChangedEvent{ItemID: "coin", Delta: -2, Quantity: 0}},
		{"remove missing item", Effect{Op: OpRemoveItem, Item: "gem"}, nil},
		{"set variable expression", Effect{Op: OpSetVariable, Key: "k", Expression: "strength > 5"}, &VariableChangedEvent{Key: "k", Value: true}},
		{"achievement once", Effect{Op: OpUnlockAchievement, Achievement: "first"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := effectEvent(tt.effect, char, tmpl)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := effectEvent(Effect{Op: "teleport"}, char, tmpl)
	assert.Error(t, err)
	_, err = effectEvent(Effect{Op: OpAddStat, Stat: "strength", Value: "lots"}, char, tmpl)
	assert.Error(t, err)
}

func keys(choices []Choice) []string {
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		out = append(out, c.Key)
	}
	return out
}
