// Package loader implements listpreload.Loader: a bounded pool of fetch
// workers in front of an LRU of resident resources.
package loader

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"listpreload"
)

const (
	// DefaultWorkers is the number of fetch workers when Options.Workers is zero.
	DefaultWorkers = 4
	// DefaultQueueSize bounds pending loads when Options.QueueSize is zero.
	DefaultQueueSize = 64
)

// Options configures a Manager.
type Options struct {
	// Workers is the number of concurrent fetches.
	Workers int
	// QueueSize bounds pending loads. Load drops work once it is full.
	QueueSize int
	// CacheEntries bounds resident resources.
	CacheEntries int

	Fetcher Fetcher
	Logger  listpreload.Logger
	Metrics listpreload.Metrics // nil disables metrics
}

type job struct {
	ctx    context.Context
	cancel context.CancelFunc
	key    string
	source string
	width  int
	height int
	target *listpreload.Target
	ticket listpreload.Ticket
}

// Manager fetches resources into its cache and delivers completions into
// preload targets. Load never blocks the caller; workers run once Start is
// called.
type Manager struct {
	opts  Options
	cache *Cache
	queue chan *job

	ctx    context.Context // Parent of every load, cancelled by Close
	cancel context.CancelFunc
	closed atomic.Bool

	// Stats
	loads     atomic.Uint64
	failures  atomic.Uint64
	cancelled atomic.Uint64
	dropped   atomic.Uint64
	stale     atomic.Uint64

	pending atomic.Int64 // Queued or running loads
}

// New creates a Manager. Options left zero take package defaults.
func New(opts Options) (*Manager, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("loader: fetcher is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = listpreload.DiscardLogger{}
	}

	cache, err := NewCache(opts.CacheEntries)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:   opts,
		cache:  cache,
		queue:  make(chan *job, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start runs the workers. It blocks until ctx is cancelled or the manager is
// closed. Loads still queued at that point are cancelled and their targets
// released.
func (m *Manager) Start(ctx context.Context) error {
	m.opts.Logger.Info("loader: starting workers", "workers", m.opts.Workers, "queue_size", m.opts.QueueSize)

	g, ctx := errgroup.WithContext(ctx)
	for range m.opts.Workers {
		g.Go(func() error {
			m.worker(ctx)
			return nil
		})
	}

	err := g.Wait()
	n := m.drainQueue()
	m.opts.Logger.Info("loader: workers stopped", "abandoned", n)
	return err
}

// drainQueue cancels every load left in the queue once the workers are gone.
func (m *Manager) drainQueue() int {
	n := 0
	for {
		select {
		case j := <-m.queue:
			j.cancel()
			m.abandon(j)
			m.pending.Add(-1)
			n++
		default:
			return n
		}
	}
}

// abandon counts a load that will never be delivered and frees its target,
// unless the target has already moved on to another load.
func (m *Manager) abandon(j *job) {
	m.cancelled.Add(1)
	j.target.Release(j.ticket)
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.ctx.Done():
			return
		case j := <-m.queue:
			m.process(ctx, j)
		}
	}
}

func (m *Manager) process(ctx context.Context, j *job) {
	defer m.pending.Add(-1)
	defer j.cancel()
	stop := context.AfterFunc(ctx, j.cancel)
	defer stop()

	if ctx.Err() != nil || j.ctx.Err() != nil {
		m.abandon(j)
		return
	}

	if !m.cache.Contains(j.key, j.width, j.height) {
		start := time.Now()
		data, err := m.opts.Fetcher.Fetch(j.ctx, j.source)
		listpreload.ObserveLoad(m.opts.Metrics, time.Since(start), err)

		if err != nil {
			if j.ctx.Err() != nil {
				m.abandon(j)
				return
			}
			m.failures.Add(1)
			m.opts.Logger.Warn("loader: fetch failed", "source", j.source, "error", err)
			j.target.Release(j.ticket)
			return
		}

		m.loads.Add(1)
		m.cache.Put(Resource{Key: j.key, Width: j.width, Height: j.height, Data: data})
	}

	if !j.target.Deliver(j.ticket) {
		m.stale.Add(1)
		m.opts.Logger.Debug("loader: target reused before delivery", "key", j.key, "target", j.target.Index())
	}
}

// Load implements listpreload.Loader. A resident resource is delivered
// immediately; otherwise the load is queued, or dropped if the queue is full.
func (m *Manager) Load(req *listpreload.Request, target *listpreload.Target) {
	width, height := target.Size()
	key := req.CacheKey()

	if _, ok := m.cache.Get(key, width, height); ok {
		listpreload.ObserveCache(m.opts.Metrics, true)
		target.Deliver(target.Attach(nil))
		return
	}
	listpreload.ObserveCache(m.opts.Metrics, false)

	if m.closed.Load() {
		target.Clear()
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	j := &job{
		ctx:    ctx,
		cancel: cancel,
		key:    key,
		source: req.Source,
		width:  width,
		height: height,
		target: target,
	}
	j.ticket = target.Attach(cancel)

	m.pending.Add(1)
	select {
	case m.queue <- j:
	default:
		m.pending.Add(-1)
		target.Clear()
		m.dropped.Add(1)
		m.opts.Logger.Warn("loader: dropping load", "key", key, "error", listpreload.ErrQueueFull)
	}
}

// Clear implements listpreload.Loader.
func (m *Manager) Clear(target *listpreload.Target) {
	target.Clear()
}

// Resolve returns the resource for req at the given size, fetching it
// synchronously on a miss. This is the lookup a view performs when bound.
func (m *Manager) Resolve(ctx context.Context, req *listpreload.Request, width, height int) (Resource, error) {
	if m.closed.Load() {
		return Resource{}, listpreload.ErrClosed
	}

	key := req.CacheKey()
	if r, ok := m.cache.Get(key, width, height); ok {
		listpreload.ObserveCache(m.opts.Metrics, true)
		return r, nil
	}
	listpreload.ObserveCache(m.opts.Metrics, false)

	start := time.Now()
	data, err := m.opts.Fetcher.Fetch(ctx, req.Source)
	listpreload.ObserveLoad(m.opts.Metrics, time.Since(start), err)
	if err != nil {
		m.failures.Add(1)
		return Resource{}, err
	}

	m.loads.Add(1)
	r := Resource{Key: key, Width: width, Height: height, Data: data}
	m.cache.Put(r)
	return r, nil
}

// Get returns a resident resource without fetching.
func (m *Manager) Get(key string, width, height int) (Resource, bool) {
	return m.cache.Get(key, width, height)
}

// Evict drops a resident resource, e.g. when its item leaves the list.
func (m *Manager) Evict(key string, width, height int) {
	m.cache.Delete(key, width, height)
}

// Idle reports whether no load is queued or running.
func (m *Manager) Idle() bool {
	return m.pending.Load() == 0
}

// ManagerStats reports load activity and cache behaviour.
type ManagerStats struct {
	Cache     Stats
	Resident  int
	Loads     uint64 // Successful fetches
	Failures  uint64
	Cancelled uint64 // Loads abandoned after their target was cleared
	Dropped   uint64 // Loads refused because the queue was full
	Stale     uint64 // Fetches that finished after their target moved on
}

// Stats returns a snapshot of load activity.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		Cache:     m.cache.Stats(),
		Resident:  m.cache.Size(),
		Loads:     m.loads.Load(),
		Failures:  m.failures.Load(),
		Cancelled: m.cancelled.Load(),
		Dropped:   m.dropped.Load(),
		Stale:     m.stale.Load(),
	}
}

// Close cancels every outstanding load and stops the workers. Further loads
// are discarded.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return listpreload.ErrClosed
	}
	m.cancel()
	return nil
}
