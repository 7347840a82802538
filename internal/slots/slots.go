package slots

import (
	"context"
	"sync"
	"sync/atomic"
)

// Ticket identifies one load attached to a Target. A ticket goes stale as soon
// as the target is cleared or handed a newer load.
type Ticket uint64

// Target is a reusable in-flight slot. Its dimensions are rewritten every
// time the pool hands it out; at most one load is attached at a time.
type Target struct {
	index  int
	width  int // Written by the scheduling goroutine only
	height int

	mu     sync.Mutex
	gen    uint64             // Bumped on every attach and clear
	cancel context.CancelFunc // Cancels the attached load (nil when idle)

	delivered atomic.Uint64
}

// Index returns the target's position in its pool.
func (t *Target) Index() int {
	return t.index
}

// Size returns the dimensions the target was last handed out with.
func (t *Target) Size() (width, height int) {
	return t.width, t.height
}

// Attach binds a new load to the target, cancelling whichever load was bound
// before. The returned ticket must be presented to Deliver.
func (t *Target) Attach(cancel context.CancelFunc) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	t.gen++
	t.cancel = cancel
	return Ticket(t.gen)
}

// Deliver completes the load identified by ticket and releases its context.
// Returns false when the ticket is stale, meaning the target has since been
// cleared or reused.
func (t *Target) Deliver(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if Ticket(t.gen) != ticket {
		return false
	}
	t.detach()
	t.delivered.Add(1)
	return true
}

// Release detaches the load identified by ticket without counting it as
// delivered, e.g. after it failed. Stale tickets are ignored.
func (t *Target) Release(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if Ticket(t.gen) != ticket {
		return false
	}
	t.detach()
	return true
}

// detach releases the attached load's context. Caller holds t.mu.
func (t *Target) detach() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Clear cancels the attached load, if any, and invalidates its ticket.
// Returns true if a load was in flight.
func (t *Target) Clear() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	if t.cancel == nil {
		return false
	}
	t.detach()
	return true
}

// InFlight reports whether a load is attached and not yet delivered.
func (t *Target) InFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Delivered returns how many loads completed into this target.
func (t *Target) Delivered() uint64 {
	return t.delivered.Load()
}

// Pool is a fixed-size ring of targets handed out round-robin. It never grows
// or shrinks after construction and Next never fails.
type Pool struct {
	targets []*Target
	cursor  int // Index of the next target to hand out
}

// NewPool creates a pool holding size targets (at least one).
func NewPool(size int) *Pool {
	size = max(size, 1)

	p := &Pool{targets: make([]*Target, size)}
	for i := range p.targets {
		p.targets[i] = &Target{index: i}
	}
	return p
}

// Next returns the head of the ring with its dimensions overwritten, then
// moves it to the tail.
func (p *Pool) Next(width, height int) *Target {
	t := p.targets[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.targets)

	t.width = width
	t.height = height
	return t
}

// ReleaseAll walks the whole ring once, in pool order, passing every target
// to release. The cursor ends where it started.
func (p *Pool) ReleaseAll(release func(*Target)) {
	for range p.targets {
		release(p.Next(0, 0))
	}
}

// Len returns the fixed pool capacity.
func (p *Pool) Len() int {
	return len(p.targets)
}

// InFlight counts targets with an attached, undelivered load.
func (p *Pool) InFlight() int {
	n := 0
	for _, t := range p.targets {
		if t.InFlight() {
			n++
		}
	}
	return n
}
