// Package logger builds the zerolog instances used across the Invexis server.
// Components derive child loggers from the root with a "component" field.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the log level and output format.
type Config struct {
	Level  string // trace, debug, info, warn, error
	Pretty bool   // human-readable console output for development
}

// New builds the root logger and applies the level globally.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	root := zerolog.New(os.Stdout)
	if cfg.Pretty {
		root = root.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}
	return root.With().Timestamp().Caller().Logger()
}

// SetGlobalLogger routes zerolog's package-level log.Logger through the
// configured root, so stray log.Info() calls share the same output.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
