// Package logging builds the zerolog loggers shared by every service.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Config holds logger configuration options
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error
	Level string

	// Format is json, console, or auto (console when stderr is a terminal)
	Format string

	// Output is stderr, stdout, or a file path
	Output string

	// Service is attached to every line as the "service" field
	Service string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "auto",
		Output: "stderr",
	}
}

// New creates a logger from cfg. A file output that cannot be opened
// falls back to stderr.
func New(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	writer := writerFor(cfg)
	logger := zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	if cfg.Service != "" {
		logger = logger.With().Str("service", cfg.Service).Logger()
	}
	return logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func writerFor(cfg *Config) io.Writer {
	var out io.Writer
	var fd uintptr
	switch cfg.Output {
	case "", "stderr":
		out, fd = os.Stderr, os.Stderr.Fd()
	case "stdout":
		out, fd = os.Stdout, os.Stdout.Fd()
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			out, fd = os.Stderr, os.Stderr.Fd()
		} else {
			// Files never get color or console formatting in auto mode.
			out, fd = f, ^uintptr(0)
		}
	}

	format := strings.ToLower(cfg.Format)
	if format == "auto" || format == "" {
		format = "json"
		if fd != ^uintptr(0) && term.IsTerminal(int(fd)) {
			format = "console"
		}
	}

	if format == "console" {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return out
}
