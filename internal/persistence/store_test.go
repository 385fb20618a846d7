package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarianRusoiu99/text-based-sub001/internal/engine"
	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

func TestStoreAppendLoad(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "log.jsonl"))
	require.NoError(t, err)
	defer store.Close()

	written := []engine.Event{
		&engine.SessionStartedEvent{StoryID: "gate", TemplateID: "heroic"},
		&engine.NodeEnteredEvent{NodeID: "yard"},
		&engine.StatChangedEvent{Stat: "strength", Old: 10.0, Value: 11.0},
		&engine.FlagChangedEvent{Flag: "lit", Value: true},
		&engine.ItemChangedEvent{ItemID: "rope", Name: "Rope", Delta: 1, Quantity: 1},
		&engine.VariableChangedEvent{Key: "mood", Value: "grim"},
		&engine.AchievementUnlockedEvent{Achievement: "explorer"},
		&engine.CheckResolvedEvent{Choice: "force", Result: rules.CheckResult{
			CheckID: "force_door", Roll: 10, Total: 12, Threshold: 11, Success: true,
			Modifiers: []rules.ModifierResult{{ModifierID: "m", Value: 2, Applied: true, Reason: "Always applied"}},
		}},
	}
	require.NoError(t, store.AppendAll(written))

	events, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, written, events)

	// Loading twice replays from the start.
	again, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, again, len(written))
}

func TestStoreRejectsUnknownEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"DiceRolled","data":{}}`+"\n"), 0644))

	store, err := NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load()
	assert.ErrorContains(t, err, "unknown event type in log: DiceRolled")
}

func TestSaveManager(t *testing.T) {
	m := NewSaveManager(t.TempDir())

	_, err := m.Load("gate", "slot1")
	assert.ErrorIs(t, err, ErrSaveNotFound)

	store, err := m.Create("gate", "slot1")
	require.NoError(t, err)
	require.NoError(t, store.Append(&engine.NodeEnteredEvent{NodeID: "yard"}))
	require.NoError(t, store.Close())

	other, err := m.Create("apple", "a")
	require.NoError(t, err)
	require.NoError(t, other.Close())

	loaded, err := m.Load("gate", "slot1")
	require.NoError(t, err)
	defer loaded.Close()
	events, err := loaded.Load()
	require.NoError(t, err)
	assert.Len(t, events, 1)

	saves, err := m.List()
	require.NoError(t, err)
	require.Len(t, saves, 2)
	assert.Equal(t, "apple", saves[0].Story)
	assert.Equal(t, "gate", saves[1].Story)
	assert.Equal(t, "slot1", saves[1].Slot)

	_, err = m.Create("gate", "../escape")
	assert.Error(t, err)
}
