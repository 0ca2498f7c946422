package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. Production always gets JSON
// so posting and job logs stay machine-parseable; elsewhere LOG_FORMAT picks
// between json and the readable text handler.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
