package window

// Direction is the scroll direction the window was last advanced in.
type Direction int

const (
	// Forward scrolls toward higher positions.
	Forward Direction = 1
	// Backward scrolls toward position zero.
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// unset marks a tracker that has not yet seen a scroll update
const unset = -1

// Window is the delta range to schedule after one scroll update.
type Window struct {
	Start     int       // First position to schedule (inclusive)
	End       int       // Last position to schedule (exclusive)
	Direction Direction // Iteration order: ascending for Forward, descending for Backward
	Reversed  bool      // Direction flipped since the previous update
}

// Empty reports whether the delta holds no positions.
func (w Window) Empty() bool {
	return w.Start >= w.End
}

// Len returns the number of positions in the delta.
func (w Window) Len() int {
	return max(w.End-w.Start, 0)
}

// Tracker holds the last scheduled sub-range of list positions and the scroll
// direction. Not safe for concurrent use: the owner of the scroll event stream
// is its only caller.
type Tracker struct {
	distance         int       // how many positions ahead to keep loaded
	direction        Direction // direction of the last non-idle update
	lastStart        int       // covered window start (inclusive)
	lastEnd          int       // covered window end (exclusive)
	lastFirstVisible int       // first visible position of the last update
	total            int       // item count of the last update
}

// NewTracker creates a Tracker that schedules distance positions past the
// visible edge. Initial direction is Forward, matching the first update from
// the top of a list.
func NewTracker(distance int) *Tracker {
	return &Tracker{
		distance:         distance,
		direction:        Forward,
		lastFirstVisible: unset,
	}
}

// Advance folds a scroll update into the tracker and returns the positions
// that newly need scheduling. The bool is false when the first visible
// position did not move, in which case nothing changes except the total.
func (t *Tracker) Advance(firstVisible, visibleCount, totalCount int) (Window, bool) {
	t.total = max(totalCount, 0)

	var dir Direction
	var anchor int
	switch {
	case firstVisible > t.lastFirstVisible:
		dir = Forward
		anchor = firstVisible + visibleCount
	case firstVisible < t.lastFirstVisible:
		dir = Backward
		anchor = firstVisible
	default:
		return Window{}, false
	}
	t.lastFirstVisible = firstVisible

	reversed := dir != t.direction
	t.direction = dir

	from := anchor
	to := anchor + int(dir)*t.distance

	var start, end int
	if from < to {
		start = max(t.lastEnd, from)
		end = to
	} else {
		start = to
		end = min(t.lastStart, from)
	}
	end = min(t.total, end)
	start = min(t.total, max(0, start))
	// A jump past the covered window can invert the narrowed range
	end = max(start, end)

	t.lastStart = start
	t.lastEnd = end

	return Window{Start: start, End: end, Direction: dir, Reversed: reversed}, true
}

// Covered returns the last scheduled window [start, end).
func (t *Tracker) Covered() (start, end int) {
	return t.lastStart, t.lastEnd
}

// Direction returns the direction of the last update that moved the list.
func (t *Tracker) Direction() Direction {
	return t.direction
}

// Total returns the item count reported by the last update.
func (t *Tracker) Total() int {
	return t.total
}

// Reset clears the tracker back to its initial state.
func (t *Tracker) Reset() {
	t.direction = Forward
	t.lastStart = 0
	t.lastEnd = 0
	t.lastFirstVisible = unset
	t.total = 0
}
