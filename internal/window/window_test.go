package window

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerForwardScenario(t *testing.T) {
	t.Parallel()

	tr := NewTracker(3)

	w, ok := tr.Advance(0, 5, 100)
	require.True(t, ok)
	assert.Equal(t, Window{Start: 5, End: 8, Direction: Forward}, w)
	start, end := tr.Covered()
	assert.Equal(t, 5, start)
	assert.Equal(t, 8, end)

	// Positions 5-7 are already covered, only 8 is new
	w, ok = tr.Advance(1, 5, 100)
	require.True(t, ok)
	assert.Equal(t, 8, w.Start)
	assert.Equal(t, 9, w.End)
	assert.False(t, w.Reversed)
	_, end = tr.Covered()
	assert.Equal(t, 9, end)
}

func TestTrackerReversal(t *testing.T) {
	t.Parallel()

	tr := NewTracker(3)
	tr.Advance(0, 5, 100)
	tr.Advance(1, 5, 100)

	w, ok := tr.Advance(0, 5, 100)
	require.True(t, ok)
	assert.True(t, w.Reversed)
	assert.Equal(t, Backward, w.Direction)
	assert.True(t, w.Empty(), "backward window from the top of the list is clamped away")
	assert.Equal(t, Backward, tr.Direction())

	// Continuing backward is not a reversal
	tr2 := NewTracker(3)
	tr2.Advance(50, 5, 100)
	w, _ = tr2.Advance(40, 5, 100)
	assert.True(t, w.Reversed)
	assert.Equal(t, 37, w.Start)
	assert.Equal(t, 40, w.End)
	w, _ = tr2.Advance(39, 5, 100)
	assert.False(t, w.Reversed)
	assert.Equal(t, 36, w.Start)
	assert.Equal(t, 37, w.End)
}

func TestTrackerIdleUpdate(t *testing.T) {
	t.Parallel()

	tr := NewTracker(4)
	_, ok := tr.Advance(10, 5, 100)
	require.True(t, ok)

	w, ok := tr.Advance(10, 5, 100)
	assert.False(t, ok)
	assert.True(t, w.Empty())
	assert.Equal(t, 0, w.Len())

	// The total still follows the latest update
	tr.Advance(10, 5, 120)
	assert.Equal(t, 120, tr.Total())
}

func TestTrackerClampsToTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		first, visible     int
		total              int
		wantStart, wantEnd int
	}{
		{"empty list", 0, 0, 0, 0, 0},
		{"window past the end", 0, 10, 12, 10, 12},
		{"visible past the end", 0, 20, 12, 12, 12},
		{"fits", 0, 2, 100, 2, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := NewTracker(4)
			w, ok := tr.Advance(tt.first, tt.visible, tt.total)
			require.True(t, ok)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantEnd, w.End)
		})
	}
}

func TestTrackerCoveredInvariant(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	tr := NewTracker(6)
	total := 200

	for i := 0; i < 5000; i++ {
		// Mostly small moves with occasional jumps and shrinking lists
		first := max(0, tr.lastFirstVisible+rng.Intn(11)-5)
		if rng.Intn(50) == 0 {
			first = rng.Intn(total + 10)
		}
		if rng.Intn(200) == 0 {
			total = rng.Intn(300)
		}

		w, _ := tr.Advance(first, rng.Intn(12), total)
		start, end := tr.Covered()

		require.LessOrEqual(t, 0, start, "step %d", i)
		require.LessOrEqual(t, start, end, "step %d", i)
		require.LessOrEqual(t, end, total, "step %d", i)
		require.LessOrEqual(t, w.Len(), 6, "step %d", i)
	}
}

func TestTrackerReset(t *testing.T) {
	t.Parallel()

	tr := NewTracker(3)
	tr.Advance(20, 5, 100)
	tr.Advance(10, 5, 100)
	tr.Reset()

	start, end := tr.Covered()
	assert.Zero(t, start)
	assert.Zero(t, end)
	assert.Equal(t, Forward, tr.Direction())

	w, ok := tr.Advance(0, 5, 100)
	require.True(t, ok)
	assert.False(t, w.Reversed)
	assert.Equal(t, 5, w.Start)
}
