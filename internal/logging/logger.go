package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/svennapp/svennProductsFE/internal/config"
)

// NewLogger creates a structured zerolog.Logger writing JSON to stdout,
// tagged with the service name.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return New(os.Stdout, cfg.ServiceName, cfg.LogLevel)
}

// New creates a logger writing to w. An unknown level falls back to info.
func New(w io.Writer, service, level string) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return ctx.Logger().Level(lvl)
}

// NewConsole creates a human-readable logger for the CLI, writing to stderr.
func NewConsole(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(lvl)
}
