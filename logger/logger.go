// Package logger adapts zap and logrus to listpreload.Logger. A *slog.Logger
// satisfies the interface as is.
//
// The simulator builds its logger from config (see internal/sim.NewLogger);
// a program embedding the preloader wires one directly:
//
//	z, _ := zap.NewProduction()
//	defer z.Sync()
//
//	mgr, err := loader.New(loader.Options{
//	    Fetcher: loader.SchemeFetcher{File: loader.FileFetcher{Root: dir}},
//	    Logger:  logger.NewZap(z.Named("loader")),
//	})
//	...
//	p, err := listpreload.New[*Photo](mgr, photos, sizes, 4,
//	    listpreload.WithLogger(logger.NewLogrus(logrus.WithField("component", "preload"))),
//	)
//
// or, with the standard library only:
//
//	listpreload.WithLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
package logger
