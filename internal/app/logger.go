package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the service logger. Production always logs JSON; other
// environments follow LOG_FORMAT and default to text.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With(
			slog.String("service", cfg.ServiceName))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
