package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarianRusoiu99/text-based-sub001/internal/rules"
)

func testCharacter() *rules.CharacterState {
	return &rules.CharacterState{
		Stats:        map[string]any{"strength": 10, "wits": 3.5, "title": "Squire"},
		Flags:        map[string]bool{"met_king": true},
		Variables:    map[string]any{"gold": 7, "mood": "grim"},
		Inventory:    []rules.InventoryItem{{ID: "rope", Quantity: 2}},
		Achievements: []string{"explorer"},
	}
}

func TestEvaluatorAllows(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)
	char := testCharacter()

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"empty holds", "", true},
		{"int stat against int literal", "stats.strength >= 10", true},
		{"double stat", "stats.wits < 4", true},
		{"string stat", "stats.title.startsWith('Sq')", true},
		{"flag", "flags.met_king", true},
		{"missing flag guarded", "has(flags.betrayed) && flags.betrayed", false},
		{"variable", "variables.gold > 5 && variables.mood == 'grim'", true},
		{"has item", "has_item(inventory, 'rope')", true},
		{"missing item", "has_item(inventory, 'lamp')", false},
		{"item count", "item_count(inventory, 'rope') == 2", true},
		{"achievement", "'explorer' in achievements", true},
		{"math ext", "math.least(4, 2, 9) == 2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Allows(tt.expr, char)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluatorErrors(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)
	char := testCharacter()

	_, err = ev.Allows("stats.strength +", char)
	assert.ErrorContains(t, err, "CEL compile error")

	_, err = ev.Allows("stats.strength", char)
	assert.ErrorContains(t, err, "want bool")

	_, err = ev.Allows("stats.unknown > 1", char)
	assert.ErrorContains(t, err, "CEL eval error")

	assert.Error(t, ev.Compile("actor.hp > 1"))
	assert.NoError(t, ev.Compile("flags.met_king"))
}

func TestEvaluatorEvalConvertsValues(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	out, err := ev.Eval("[stats.title, 'x']", testCharacter())
	require.NoError(t, err)
	assert.Equal(t, []any{"Squire", "x"}, out)
}

func TestEvaluatorConcurrentUse(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ev.Allows("stats.strength > 5", testCharacter())
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}
