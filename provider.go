package listpreload

import "listpreload/internal/slots"

// Target is one of the preloader's reusable in-flight slots. Loaders read its
// size, attach a cancellable load to it and deliver into it on completion.
type Target = slots.Target

// Ticket identifies the load currently attached to a Target.
type Ticket = slots.Ticket

// Size is the pixel size of the view an item will be displayed in.
type Size struct {
	Width  int
	Height int
}

// Request is a prepared load for a single item.
type Request struct {
	// Source locates the resource for the loader (a file path or URL).
	// A request without a source is not dispatchable.
	Source string

	// Key identifies the resource in caches. Defaults to Source.
	Key string
}

// CacheKey returns Key, falling back to Source.
func (r *Request) CacheKey() string {
	if r.Key != "" {
		return r.Key
	}
	return r.Source
}

// Prepared reports whether the request can be dispatched.
func (r *Request) Prepared() bool {
	return r.Source != ""
}

// ModelProvider supplies the items to preload for each list position and the
// request able to load each of them.
type ModelProvider[T any] interface {
	// PreloadItems returns the items displayed at position, in display order.
	// Any number of items is allowed. Every item returned must produce a
	// prepared request from PreloadRequest; filter out items that cannot.
	PreloadItems(position int) []T

	// PreloadRequest returns the request for item, or nil if no load can be
	// started for it. The request must match the one used when the item's
	// view is bound, or the preloaded resource will not be reused.
	PreloadRequest(item T) *Request
}

// SizeProvider supplies the size of the view each item is displayed in.
type SizeProvider[T any] interface {
	// PreloadSize returns the view size for item, or false if no size is
	// available yet, in which case the item is not preloaded this pass.
	PreloadSize(item T, position, perItemIndex int) (Size, bool)
}

// FixedSizeProvider reports the same size for every item.
type FixedSizeProvider[T any] struct {
	Size Size
}

// NewFixedSizeProvider creates a FixedSizeProvider for width x height views.
func NewFixedSizeProvider[T any](width, height int) FixedSizeProvider[T] {
	return FixedSizeProvider[T]{Size: Size{Width: width, Height: height}}
}

// PreloadSize implements SizeProvider.
func (p FixedSizeProvider[T]) PreloadSize(T, int, int) (Size, bool) {
	return p.Size, true
}

// Loader starts and cancels resource loads into targets.
type Loader interface {
	// Load starts loading req into target. It must not block; completion is
	// reported through target.Deliver from any goroutine.
	Load(req *Request, target *Target)

	// Clear cancels whatever load is attached to target. Best effort: the
	// underlying work may finish later but must not deliver into target.
	Clear(target *Target)
}

// Fingerprinter is implemented by a ModelProvider whose items carry a content
// fingerprint. The preloader triggers Fingerprint at most once per item.
type Fingerprinter[T any] interface {
	// FingerprintCell returns the item's fingerprint state, or nil if the
	// item has none.
	FingerprintCell(item T) *Cell

	// Fingerprint starts computing the fingerprint for item. It runs on the
	// scheduling goroutine, so the computation itself must be asynchronous.
	// The implementation completes the cell when done, or resets it to allow
	// a later attempt.
	Fingerprint(req *Request, item T, cell *Cell)
}
