// Package sim wires a preloader to a real loader, fingerprint worker and
// store, and drives it with scripted scroll sweeps over a catalog.
package sim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"listpreload"
	"listpreload/fingerprint"
	"listpreload/internal/catalog"
	"listpreload/internal/config"
	"listpreload/loader"
	promMetrics "listpreload/metrics/prometheus"
	"listpreload/store"
)

// Report summarises a simulation run.
type Report struct {
	Items       int // Catalog size before the run
	Remaining   int // Catalog size after duplicates were removed
	Restored    int // Fingerprints loaded from the store at startup
	Scrolls     int
	Elapsed     time.Duration
	Loader      loader.ManagerStats
	Fingerprint fingerprint.Stats
}

// drainTimeout bounds how long Run waits for outstanding work after the last
// scroll event.
const drainTimeout = 10 * time.Second

// Run executes the simulation described by cfg. reg may be nil to disable
// metrics.
func Run(ctx context.Context, cfg *config.Config, log listpreload.Logger, reg prometheus.Registerer) (Report, error) {
	var report Report
	start := time.Now()

	root, items, cleanup, err := buildCatalog(cfg.Catalog)
	if err != nil {
		return report, err
	}
	defer cleanup()

	cat := catalog.New(items...)
	report.Items = cat.Len()
	if report.Items == 0 {
		return report, errors.New("catalog is empty")
	}

	var metrics listpreload.Metrics
	if reg != nil {
		metrics = promMetrics.New(reg)
	}

	mgr, err := loader.New(loader.Options{
		Workers:      cfg.Loader.Workers,
		QueueSize:    cfg.Loader.QueueSize,
		CacheEntries: cfg.Loader.CacheEntries,
		Fetcher:      loader.SchemeFetcher{File: loader.FileFetcher{Root: root}},
		Logger:       log,
		Metrics:      metrics,
	})
	if err != nil {
		return report, err
	}
	defer mgr.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Start(gctx) })

	var worker *fingerprint.Worker
	if cfg.Fingerprint.Enabled {
		db, err := store.Open(store.Options{Path: cfg.Store.Path, InMemory: cfg.Store.InMemory})
		if err != nil {
			return report, err
		}
		defer db.Close()

		err = db.Restore(func(id string, fp int32) error {
			if cat.Restore(id, fp) {
				report.Restored++
			}
			return nil
		})
		if err != nil {
			return report, fmt.Errorf("restore fingerprints: %w", err)
		}
		log.Info("sim: restored fingerprints", "count", report.Restored)

		width, height := cfg.Preload.Width, cfg.Preload.Height
		worker, err = fingerprint.NewWorker(fingerprint.Options{
			Workers:   cfg.Fingerprint.Workers,
			QueueSize: cfg.Fingerprint.QueueSize,
			Primitive: fingerprint.DHash{},
			Source: fingerprint.SourceFunc(func(ctx context.Context, req *listpreload.Request) ([]byte, error) {
				r, err := mgr.Resolve(ctx, req, width, height)
				return r.Data, err
			}),
			Recorder: db,
			OnDuplicate: func(id string, fp int32) {
				if cat.Remove(id) {
					mgr.Evict(id, width, height)
					log.Info("sim: removed duplicate", "id", id, "fingerprint", fp)
				}
			},
			Logger: log,
		})
		if err != nil {
			return report, err
		}
		defer worker.Close()

		g.Go(func() error { return worker.Start(gctx) })
		cat.SetSubmit(worker.Submit)
	}

	p, err := listpreload.New[*catalog.Artwork](mgr, cat,
		listpreload.NewFixedSizeProvider[*catalog.Artwork](cfg.Preload.Width, cfg.Preload.Height),
		cfg.Preload.MaxPreload,
		listpreload.WithLogger(log),
		listpreload.WithMetrics(metrics),
	)
	if err != nil {
		return report, err
	}

	report.Scrolls, err = sweep(gctx, p, cat, cfg.Scroll)
	if err == nil {
		err = drain(gctx, mgr, worker)
	}
	p.Close()

	_ = mgr.Close()
	if worker != nil {
		_ = worker.Close()
	}
	if werr := g.Wait(); err == nil {
		err = werr
	}

	report.Remaining = cat.Len()
	report.Elapsed = time.Since(start)
	report.Loader = mgr.Stats()
	if worker != nil {
		report.Fingerprint = worker.Stats()
	}
	return report, err
}

// sweep scrolls down to the end of the list and back up, Sweeps times.
func sweep(ctx context.Context, p *listpreload.Preloader[*catalog.Artwork], cat *catalog.Catalog, cfg config.ScrollConfig) (int, error) {
	scrolls := 0
	visible := cfg.VisibleCount

	scroll := func(first int) error {
		p.Scrolled(first, visible, cat.Len())
		scrolls++
		if cfg.Interval <= 0 {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Interval):
			return nil
		}
	}

	for range cfg.Sweeps {
		first := 0
		for ; first+visible < cat.Len(); first += cfg.Step {
			if err := scroll(first); err != nil {
				return scrolls, err
			}
		}
		for first -= cfg.Step; first >= 0; first -= cfg.Step {
			if err := scroll(first); err != nil {
				return scrolls, err
			}
		}
		// Land exactly on the top so the next sweep starts forward
		if err := scroll(0); err != nil {
			return scrolls, err
		}
	}
	return scrolls, nil
}

// drain waits for queued loads and fingerprints to finish.
func drain(ctx context.Context, mgr *loader.Manager, worker *fingerprint.Worker) error {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()

	for {
		if mgr.Idle() && (worker == nil || worker.Idle()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("drain: %w", ctx.Err())
		case <-tick.C:
		}
	}
}

// buildCatalog returns the file root for relative sources and the items to
// list. Synthetic images go to a temporary directory removed by cleanup.
func buildCatalog(cfg config.CatalogConfig) (string, []*catalog.Artwork, func(), error) {
	cleanup := func() {}

	if cfg.Dir == "" && len(cfg.URLs) == 0 {
		dir, err := os.MkdirTemp("", "listpreload-catalog-")
		if err != nil {
			return "", nil, cleanup, err
		}
		cleanup = func() { _ = os.RemoveAll(dir) }

		items, err := catalog.Synthesize(dir, cfg.Synthetic)
		if err != nil {
			cleanup()
			return "", nil, func() {}, err
		}
		return dir, items, cleanup, nil
	}

	var items []*catalog.Artwork
	if cfg.Dir != "" {
		fromDir, err := catalog.FromDir(cfg.Dir)
		if err != nil {
			return "", nil, cleanup, err
		}
		items = append(items, fromDir...)
	}
	items = append(items, catalog.FromURLs(cfg.URLs)...)
	return cfg.Dir, items, cleanup, nil
}
