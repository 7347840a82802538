package sim

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listpreload"
	"listpreload/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Backend = "slog"
	cfg.Logging.Level = "ERROR"
	cfg.Store.InMemory = true
	cfg.Catalog.Synthetic = 60
	cfg.Scroll.Interval = 0
	cfg.Scroll.Sweeps = 1
	return cfg
}

func discard(t *testing.T, cfg *config.Config) listpreload.Logger {
	t.Helper()

	log, flush, err := NewLogger(cfg.Logging, io.Discard)
	require.NoError(t, err)
	t.Cleanup(flush)
	return log
}

func TestRunRemovesDuplicates(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	report, err := Run(context.Background(), cfg, discard(t, cfg), nil)
	require.NoError(t, err)

	assert.Equal(t, 60, report.Items)
	assert.Positive(t, report.Scrolls)
	assert.Positive(t, report.Loader.Loads)

	// Items 24 and 49 repeat their predecessors
	assert.Equal(t, uint64(2), report.Fingerprint.Duplicates)
	assert.Equal(t, 58, report.Remaining)
	assert.GreaterOrEqual(t, report.Fingerprint.Computed, uint64(50))
}

func TestRunRestoresFingerprints(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Store.InMemory = false
	cfg.Store.Path = filepath.Join(t.TempDir(), "fingerprints")
	log := discard(t, cfg)

	first, err := Run(context.Background(), cfg, log, nil)
	require.NoError(t, err)
	require.Zero(t, first.Restored)

	second, err := Run(context.Background(), cfg, log, nil)
	require.NoError(t, err)

	assert.Equal(t, int(first.Fingerprint.Computed-first.Fingerprint.Duplicates), second.Restored)
	assert.Less(t, second.Fingerprint.Computed, first.Fingerprint.Computed)
}

func TestRunWithoutFingerprints(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Fingerprint.Enabled = false

	reg := prometheus.NewRegistry()
	report, err := Run(context.Background(), cfg, discard(t, cfg), reg)
	require.NoError(t, err)

	assert.Equal(t, report.Items, report.Remaining)
	assert.Zero(t, report.Fingerprint.Computed)

	n, err := testutil.GatherAndCount(reg, "listpreload_dispatches_total", "listpreload_reversals_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, discard(t, cfg), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmptyCatalog(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Catalog.Dir = t.TempDir()

	_, err := Run(context.Background(), cfg, discard(t, cfg), nil)
	assert.ErrorContains(t, err, "empty")
}

func TestNewLoggerBackends(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"zap", "logrus", "slog"} {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			log, flush, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Backend: backend}, &buf)
			require.NoError(t, err)

			log.Debug("hidden")
			log.Info("shown", "key", "value")
			flush()

			out := buf.String()
			assert.NotContains(t, out, "hidden")
			assert.Contains(t, out, "shown")
			assert.Contains(t, out, `"key":"value"`)
			assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1)
		})
	}

	_, _, err := NewLogger(config.LoggingConfig{Level: "info", Backend: "printf"}, io.Discard)
	assert.Error(t, err)
}
