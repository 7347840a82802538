package fingerprint

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"listpreload"
)

// Source returns the bytes a fingerprint is computed from.
type Source interface {
	Resolve(ctx context.Context, req *listpreload.Request) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req *listpreload.Request) ([]byte, error)

func (f SourceFunc) Resolve(ctx context.Context, req *listpreload.Request) ([]byte, error) {
	return f(ctx, req)
}

// Recorder persists computed fingerprints. Record returns an error wrapping
// listpreload.ErrDuplicateFingerprint when another id already owns fp.
type Recorder interface {
	Record(id string, fp int32) error
}

const (
	// DefaultWorkers is the number of computations run at once when
	// Options.Workers is zero.
	DefaultWorkers = 2
	// DefaultQueueSize bounds waiting computations when Options.QueueSize is zero.
	DefaultQueueSize = 128
)

// Options configures a Worker.
type Options struct {
	Workers   int
	QueueSize int

	Primitive Primitive
	Source    Source
	Recorder  Recorder // Optional

	// OnDuplicate is called from a worker goroutine when Recorder reports
	// that fp already belongs to another item.
	OnDuplicate func(id string, fp int32)

	Logger listpreload.Logger
}

type job struct {
	id   string
	req  listpreload.Request
	cell *listpreload.Cell
}

// Worker computes fingerprints asynchronously. Every submitted cell ends up
// either Done, or NotStarted again when its computation failed or was
// dropped, so a later preload pass can retry it.
type Worker struct {
	opts  Options
	queue chan job

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	// Stats
	computed   atomic.Uint64
	failed     atomic.Uint64
	duplicates atomic.Uint64
	dropped    atomic.Uint64

	pending atomic.Int64
}

// NewWorker creates a Worker; call Start to run it.
func NewWorker(opts Options) (*Worker, error) {
	if opts.Primitive == nil || opts.Source == nil {
		return nil, errors.New("fingerprint: primitive and source are required")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = listpreload.DiscardLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		opts:   opts,
		queue:  make(chan job, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Submit queues a computation for the item identified by id. The cell must
// be InProgress, as left by a triggering Guard. Never blocks: when the queue
// is full the cell is reset and false is returned.
func (w *Worker) Submit(id string, req *listpreload.Request, cell *listpreload.Cell) bool {
	if w.closed.Load() {
		cell.Reset()
		return false
	}

	w.pending.Add(1)
	select {
	case w.queue <- job{id: id, req: *req, cell: cell}:
		return true
	default:
		w.pending.Add(-1)
		cell.Reset()
		w.dropped.Add(1)
		w.opts.Logger.Warn("fingerprint: dropping computation", "id", id, "error", listpreload.ErrQueueFull)
		return false
	}
}

// Start runs the workers and blocks until ctx is cancelled or Close is called.
// Computations still queued when it returns are discarded and their cells
// reset.
func (w *Worker) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for range w.opts.Workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-w.ctx.Done():
					return nil
				case j := <-w.queue:
					w.process(ctx, j)
				}
			}
		})
	}
	err := g.Wait()
	if n := w.drainQueue(); n > 0 {
		w.opts.Logger.Info("fingerprint: discarded queued computations", "count", n)
	}
	return err
}

func (w *Worker) drainQueue() int {
	n := 0
	for {
		select {
		case j := <-w.queue:
			j.cell.Reset()
			w.pending.Add(-1)
			n++
		default:
			return n
		}
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	defer w.pending.Add(-1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(w.ctx, cancel)
	defer stop()

	if ctx.Err() != nil {
		j.cell.Reset()
		return
	}

	fp, err := w.compute(ctx, j)
	if err != nil {
		w.failed.Add(1)
		j.cell.Reset()
		w.opts.Logger.Warn("fingerprint: computation failed", "id", j.id, "source", j.req.Source, "error", err)
		return
	}

	j.cell.Complete(fp)
	w.computed.Add(1)

	if w.opts.Recorder == nil {
		return
	}
	if err := w.opts.Recorder.Record(j.id, fp); err != nil {
		if errors.Is(err, listpreload.ErrDuplicateFingerprint) {
			w.opts.Logger.Info("fingerprint: duplicate", "id", j.id, "fingerprint", fp)
			if w.opts.OnDuplicate != nil {
				w.opts.OnDuplicate(j.id, fp)
			}
			w.duplicates.Add(1)
			return
		}
		w.opts.Logger.Warn("fingerprint: record failed", "id", j.id, "error", err)
	}
}

func (w *Worker) compute(ctx context.Context, j job) (int32, error) {
	data, err := w.opts.Source.Resolve(ctx, &j.req)
	if err != nil {
		return 0, err
	}
	return w.opts.Primitive.Compute(data)
}

// Idle reports whether no computation is queued or running.
func (w *Worker) Idle() bool {
	return w.pending.Load() == 0
}

// Stats reports worker activity.
type Stats struct {
	Computed   uint64
	Failed     uint64
	Duplicates uint64
	Dropped    uint64
}

func (w *Worker) Stats() Stats {
	return Stats{
		Computed:   w.computed.Load(),
		Failed:     w.failed.Load(),
		Duplicates: w.duplicates.Load(),
		Dropped:    w.dropped.Load(),
	}
}

// Close stops the workers. Computations already running are cancelled, and
// every cell still waiting for one is reset.
func (w *Worker) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return listpreload.ErrClosed
	}
	w.cancel()
	return nil
}
