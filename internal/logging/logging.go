// Package logging builds the process-wide zerolog.Logger, adapted from the
// gateway's logger.New (console writer, debug level in development).
package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/sitescope-io/cctv-analytics/internal/config"
)

// New returns a configured zerolog.Logger for cfg.
func New(cfg *config.Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.IsDevelopment() && cfg.LogLevel == "" {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(out).With().Timestamp().Logger()
}
