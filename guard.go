package listpreload

import "sync/atomic"

// FingerprintState is the lifecycle of an item's fingerprint.
type FingerprintState uint32

const (
	// NotStarted means no computation has been triggered, or the last one failed.
	NotStarted FingerprintState = iota
	// InProgress means a computation was triggered and has not completed.
	InProgress
	// Done means the fingerprint value is set.
	Done
)

func (s FingerprintState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// GuardResult tells the caller of Cell.Guard whether it won the right to
// start the fingerprint computation.
type GuardResult int

const (
	// Trigger means the caller moved the cell to InProgress and must start
	// the computation.
	Trigger GuardResult = iota
	// AlreadyDone means the computation is running or finished elsewhere.
	AlreadyDone
)

// Cell holds one item's fingerprint state. The zero value is NotStarted and
// ready to use. Safe for concurrent use; embed it in the item.
type Cell struct {
	state atomic.Uint32
	value atomic.Int32 // Valid once state is Done
}

// Guard atomically moves the cell from NotStarted to InProgress. Exactly one
// caller observes Trigger until the cell is reset.
func (c *Cell) Guard() GuardResult {
	if c.state.CompareAndSwap(uint32(NotStarted), uint32(InProgress)) {
		return Trigger
	}
	return AlreadyDone
}

// Complete records the computed fingerprint and marks the cell Done.
func (c *Cell) Complete(fp int32) {
	c.value.Store(fp)
	c.state.Store(uint32(Done))
}

// Reset returns an InProgress cell to NotStarted after a failed computation.
// Returns false if the cell was not InProgress.
func (c *Cell) Reset() bool {
	return c.state.CompareAndSwap(uint32(InProgress), uint32(NotStarted))
}

// Restore marks a NotStarted cell Done with a fingerprint known from an
// earlier run. Returns false if the cell already left NotStarted.
func (c *Cell) Restore(fp int32) bool {
	if !c.state.CompareAndSwap(uint32(NotStarted), uint32(InProgress)) {
		return false
	}
	c.Complete(fp)
	return true
}

// State returns the current lifecycle state.
func (c *Cell) State() FingerprintState {
	return FingerprintState(c.state.Load())
}

// Fingerprint returns the fingerprint once the cell is Done.
func (c *Cell) Fingerprint() (int32, bool) {
	if c.State() != Done {
		return 0, false
	}
	return c.value.Load(), true
}
