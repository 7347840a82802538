package config

import (
	"path/filepath"
	"time"
)

// GetDefaultConfig returns a configuration that runs the simulator over a
// synthetic catalog with fingerprinting enabled.
func GetDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "INFO",
			Format:  "text",
			Backend: "zap",
		},
		Preload: PreloadConfig{
			MaxPreload: 4,
			Width:      65,
			Height:     65,
		},
		Loader: LoaderConfig{
			Workers:      4,
			QueueSize:    64,
			CacheEntries: 256,
		},
		Fingerprint: FingerprintConfig{
			Enabled:   true,
			Workers:   2,
			QueueSize: 128,
		},
		Store: StoreConfig{
			Path: filepath.Join(GetConfigDir(), "fingerprints"),
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Catalog: CatalogConfig{
			Synthetic: 200,
		},
		Scroll: ScrollConfig{
			VisibleCount: 6,
			Step:         2,
			Sweeps:       2,
			Interval:     5 * time.Millisecond,
		},
	}
}
