// Package logging builds the process logger on top of log/slog.
//
// Local runs get colored output through tint; dev and prod emit JSON so the
// lines can be shipped to a collector.  LOG_LEVEL (debug, info, warn,
// error) overrides the level implied by the environment.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Setup returns a logger for env and installs it as the slog default.
func Setup(env string) *slog.Logger {
	log := New(env, os.Stdout)
	slog.SetDefault(log)
	return log
}

// New builds a logger for env writing to w.
func New(env string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if env != EnvProd {
		level = slog.LevelDebug
	}
	if l, ok := levelFromEnv(); ok {
		level = l
	}

	switch env {
	case EnvDev, EnvProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	default:
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
}

// Discard returns a logger that drops every record.  Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Err wraps err as an slog attribute under the "error" key.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "error", Value: slog.StringValue("")}
	}
	return slog.Attr{Key: "error", Value: slog.StringValue(err.Error())}
}

func levelFromEnv() (slog.Level, bool) {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}
