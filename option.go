package listpreload

// Options configures a Preloader.
type Options struct {
	logger  Logger
	metrics Metrics // nil disables metrics
}

func defaultOptions() Options {
	return Options{
		logger: DiscardLogger{},
	}
}

// Option configures preloader options using the functional options pattern.
type Option func(*Options)

// WithLogger sets the logger used for skip, reversal and contract violation
// events. *slog.Logger satisfies Logger directly.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger(l Logger) Option {
	return func(opts *Options) {
		if l != nil {
			opts.logger = l
		}
	}
}

// WithMetrics enables metrics collection. See package metrics/prometheus.
//
//goland:noinspection GoUnusedExportedFunction
func WithMetrics(m Metrics) Option {
	return func(opts *Options) {
		opts.metrics = m
	}
}
