package listpreload

import (
	"fmt"

	"listpreload/internal/slots"
	"listpreload/internal/window"
)

// ScrollState is the list widget's scroll state (idle, dragging, flinging).
// The preloader does not act on it.
type ScrollState int

// Preloader loads resources a few items ahead in the direction of scrolling
// so they are resident in the loader's cache just before their views are
// created. Memory stays bounded by maxPreload+1 reusable targets.
//
// Preloader is driven by the goroutine that owns the list's scroll events;
// StateChanged and Scrolled must not be called concurrently.
type Preloader[T comparable] struct {
	maxPreload int

	loader Loader
	models ModelProvider[T]
	sizes  SizeProvider[T]
	hasher Fingerprinter[T] // nil unless models implements Fingerprinter

	tracker *window.Tracker
	targets *slots.Pool

	logger  Logger
	metrics Metrics
}

// New creates a Preloader that keeps up to maxPreload items ahead of the
// visible range loading. If models also implements Fingerprinter, each
// item's fingerprint is triggered the first time the item is preloaded.
func New[T comparable](loader Loader, models ModelProvider[T], sizes SizeProvider[T], maxPreload int, options ...Option) (*Preloader[T], error) {
	if loader == nil || models == nil || sizes == nil {
		return nil, ErrNilCollaborator
	}
	if maxPreload < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxPreload, maxPreload)
	}

	opts := defaultOptions()
	for _, opt := range options {
		opt(&opts)
	}

	p := &Preloader[T]{
		maxPreload: maxPreload,
		loader:     loader,
		models:     models,
		sizes:      sizes,
		tracker:    window.NewTracker(maxPreload),
		// One spare target so a free one exists while maxPreload are in flight
		targets: slots.NewPool(maxPreload + 1),
		logger:  opts.logger,
		metrics: opts.metrics,
	}
	if fp, ok := models.(Fingerprinter[T]); ok {
		p.hasher = fp
	}

	return p, nil
}

// StateChanged is the scroll state callback. Intentionally a no-op.
func (p *Preloader[T]) StateChanged(ScrollState) {}

// Scrolled is the scroll position callback: firstVisible is the first visible
// position, visibleCount the number of visible positions and totalCount the
// number of items in the list.
func (p *Preloader[T]) Scrolled(firstVisible, visibleCount, totalCount int) {
	w, moved := p.tracker.Advance(firstVisible, visibleCount, totalCount)
	if !moved {
		return
	}

	if w.Reversed {
		p.logger.Debug("preload: scroll direction reversed",
			"direction", w.Direction.String(), "first_visible", firstVisible)
		observeReversal(p.metrics)
		p.cancelAll()
	}

	if w.Direction == window.Forward {
		for pos := w.Start; pos < w.End; pos++ {
			p.preloadPosition(pos, true)
		}
	} else {
		for pos := w.End - 1; pos >= w.Start; pos-- {
			p.preloadPosition(pos, false)
		}
	}
}

// Window returns the last scheduled range of positions [start, end).
func (p *Preloader[T]) Window() (start, end int) {
	return p.tracker.Covered()
}

// MaxPreload returns the configured preload distance.
func (p *Preloader[T]) MaxPreload() int {
	return p.maxPreload
}

// Targets returns the fixed number of in-flight targets, maxPreload+1.
func (p *Preloader[T]) Targets() int {
	return p.targets.Len()
}

// Close clears every target, cancelling outstanding loads.
func (p *Preloader[T]) Close() {
	p.cancelAll()
	p.tracker.Reset()
}

func (p *Preloader[T]) preloadPosition(position int, increasing bool) {
	items := p.models.PreloadItems(position)

	if increasing {
		for i := 0; i < len(items); i++ {
			p.preloadItem(items[i], position, i)
		}
	} else {
		for i := len(items) - 1; i >= 0; i-- {
			p.preloadItem(items[i], position, i)
		}
	}
}

func (p *Preloader[T]) preloadItem(item T, position, perItemIndex int) {
	var zero T
	if item == zero {
		observeSkip(p.metrics, SkipNilItem)
		return
	}

	size, ok := p.sizes.PreloadSize(item, position, perItemIndex)
	if !ok {
		p.logger.Debug("preload: no size", "position", position, "index", perItemIndex)
		observeSkip(p.metrics, SkipNoSize)
		return
	}

	req := p.models.PreloadRequest(item)
	if req == nil {
		p.logger.Debug("preload: no request", "position", position, "index", perItemIndex)
		observeSkip(p.metrics, SkipNoRequest)
		return
	}
	if !req.Prepared() {
		p.logger.Error("preload: model provider returned an unprepared request",
			"position", position, "index", perItemIndex, "key", req.Key)
		panic(fmt.Errorf("%w (position %d, index %d)", ErrUnpreparedRequest, position, perItemIndex))
	}

	if p.hasher != nil {
		if cell := p.hasher.FingerprintCell(item); cell != nil && cell.Guard() == Trigger {
			observeFingerprint(p.metrics)
			p.hasher.Fingerprint(req, item, cell)
		}
	}

	p.loader.Load(req, p.targets.Next(size.Width, size.Height))
	observeDispatch(p.metrics)
}

// cancelAll clears every target in pool order.
func (p *Preloader[T]) cancelAll() {
	p.targets.ReleaseAll(p.loader.Clear)
	observeCancel(p.metrics, p.targets.Len())
}
