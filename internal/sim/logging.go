package sim

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"listpreload"
	"listpreload/internal/config"
	"listpreload/logger"
)

// NewLogger builds the configured logging backend writing to w. The returned
// function flushes buffered output.
func NewLogger(cfg config.LoggingConfig, w io.Writer) (listpreload.Logger, func(), error) {
	level := strings.ToUpper(cfg.Level)

	switch cfg.Backend {
	case "zap":
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc := zapcore.NewConsoleEncoder(encCfg)
		if cfg.Format == "json" {
			enc = zapcore.NewJSONEncoder(encCfg)
		}

		z := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
		return logger.NewZap(z), func() { _ = z.Sync() }, nil

	case "logrus":
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}

		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(lvl)
		if cfg.Format == "json" {
			l.SetFormatter(&logrus.JSONFormatter{})
		} else {
			l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
		}
		return logger.NewLogrus(l), func() {}, nil

	case "slog":
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}

		opts := &slog.HandlerOptions{Level: lvl}
		var h slog.Handler = slog.NewTextHandler(w, opts)
		if cfg.Format == "json" {
			h = slog.NewJSONHandler(w, opts)
		}
		return slog.New(h), func() {}, nil
	}

	return nil, nil, fmt.Errorf("logging: unknown backend %q", cfg.Backend)
}
