// Package prometheus implements listpreload.Metrics on Prometheus.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"listpreload"
)

// preloadMetrics is the Prometheus implementation of listpreload.Metrics.
type preloadMetrics struct {
	dispatches   prometheus.Counter
	skips        *prometheus.CounterVec
	cancels      prometheus.Counter
	reversals    prometheus.Counter
	fingerprints prometheus.Counter
	cacheLookups *prometheus.CounterVec
	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
}

// New registers the preload collectors with reg and returns the Metrics
// backed by them. Registering twice with the same registry panics.
func New(reg prometheus.Registerer) listpreload.Metrics {
	f := promauto.With(reg)

	return &preloadMetrics{
		dispatches: f.NewCounter(prometheus.CounterOpts{
			Name: "listpreload_dispatches_total",
			Help: "Total number of loads started into preload targets",
		}),
		skips: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "listpreload_skips_total",
				Help: "Total number of items not preloaded by reason",
			},
			[]string{"reason"}, // "nil_item", "no_size", "no_request"
		),
		cancels: f.NewCounter(prometheus.CounterOpts{
			Name: "listpreload_target_cancels_total",
			Help: "Total number of targets cleared on scroll direction reversal",
		}),
		reversals: f.NewCounter(prometheus.CounterOpts{
			Name: "listpreload_reversals_total",
			Help: "Total number of scroll direction reversals",
		}),
		fingerprints: f.NewCounter(prometheus.CounterOpts{
			Name: "listpreload_fingerprints_triggered_total",
			Help: "Total number of fingerprint computations triggered",
		}),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "listpreload_cache_lookups_total",
				Help: "Total number of resident cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		loads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "listpreload_loads_total",
				Help: "Total number of resource fetches by status",
			},
			[]string{"status"}, // "success", "error"
		),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name: "listpreload_load_duration_milliseconds",
			Help: "Duration of resource fetches in milliseconds",
			Buckets: []float64{
				1,    // 1ms - resident on local disk
				5,    // 5ms
				10,   // 10ms
				50,   // 50ms
				100,  // 100ms - typical remote thumbnail
				250,  // 250ms
				500,  // 500ms
				1000, // 1s
				5000, // 5s - slow network
			},
		}),
	}
}

func (m *preloadMetrics) ObserveDispatch() {
	m.dispatches.Inc()
}

func (m *preloadMetrics) ObserveSkip(reason string) {
	m.skips.WithLabelValues(reason).Inc()
}

func (m *preloadMetrics) ObserveCancel(targets int) {
	m.cancels.Add(float64(targets))
}

func (m *preloadMetrics) ObserveReversal() {
	m.reversals.Inc()
}

func (m *preloadMetrics) ObserveFingerprint() {
	m.fingerprints.Inc()
}

func (m *preloadMetrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *preloadMetrics) ObserveLoad(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.loads.WithLabelValues(status).Inc()
	m.loadDuration.Observe(float64(duration.Microseconds()) / 1000)
}
