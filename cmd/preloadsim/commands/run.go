package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"listpreload/internal/config"
	"listpreload/internal/sim"
)

var (
	runMaxPreload int
	runSweeps     int
	runDir        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scroll simulation",
	Long: `Run scroll sweeps over the configured catalog and report loader and
fingerprint statistics.

Examples:
  # Synthetic catalog with defaults
  preloadsim run

  # Images from a directory, preloading 8 ahead
  preloadsim run --dir ./images --max-preload 8

  # Override any setting via environment
  LISTPRELOAD_LOGGING_LEVEL=DEBUG preloadsim run`,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().IntVar(&runMaxPreload, "max-preload", 0, "Override preload.max_preload")
	runCmd.Flags().IntVar(&runSweeps, "sweeps", 0, "Override scroll.sweeps")
	runCmd.Flags().StringVar(&runDir, "dir", "", "Override catalog.dir")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if runMaxPreload > 0 {
		cfg.Preload.MaxPreload = runMaxPreload
	}
	if runSweeps > 0 {
		cfg.Scroll.Sweeps = runSweeps
	}
	if runDir != "" {
		cfg.Catalog.Dir = runDir
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	log, flush, err := sim.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		reg = registry

		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info("metrics server listening", "addr", cfg.Metrics.Addr)
	}

	report, err := sim.Run(ctx, cfg, log, reg)
	printReport(cmd.OutOrStdout(), report)
	return err
}

func printReport(w io.Writer, r sim.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	_, _ = fmt.Fprintf(tw, "Items\t%d\n", r.Items)
	_, _ = fmt.Fprintf(tw, "Remaining\t%d\n", r.Remaining)
	_, _ = fmt.Fprintf(tw, "Scroll events\t%d\n", r.Scrolls)
	_, _ = fmt.Fprintf(tw, "Elapsed\t%s\n", r.Elapsed.Round(time.Millisecond))
	_, _ = fmt.Fprintf(tw, "Loads\t%d (failed %d, cancelled %d, dropped %d, stale %d)\n",
		r.Loader.Loads, r.Loader.Failures, r.Loader.Cancelled, r.Loader.Dropped, r.Loader.Stale)
	_, _ = fmt.Fprintf(tw, "Cache\t%d resident, %d hits, %d misses, %d evictions\n",
		r.Loader.Resident, r.Loader.Cache.Hits, r.Loader.Cache.Misses, r.Loader.Cache.Evictions)
	_, _ = fmt.Fprintf(tw, "Fingerprints\t%d computed, %d restored, %d duplicates, %d failed, %d dropped\n",
		r.Fingerprint.Computed, r.Restored, r.Fingerprint.Duplicates, r.Fingerprint.Failed, r.Fingerprint.Dropped)
}
