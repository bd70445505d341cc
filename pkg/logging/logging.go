package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level is a slog level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the handler: key=value text or one JSON object per line.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ServiceName is attached to every record as the service attribute.
const ServiceName = "soapdemo"

// levels maps accepted level names (lower case) to slog levels. The empty
// name stands for the default.
var levels = map[string]Level{
	"":        LevelInfo,
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// Config holds logging configuration.
type Config struct {
	Level  Level
	Format Format
	// Output defaults to os.Stderr.
	Output io.Writer
	// AddSource adds source file and line to log entries.
	AddSource bool
}

// DefaultConfig is info level text on stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: FormatText, Output: os.Stderr}
}

// New builds a logger for cfg.
func New(cfg Config) *slog.Logger {
	return slog.New(newHandler(cfg)).With("service", ServiceName)
}

func newHandler(cfg Config) slog.Handler {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	if cfg.Format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// FromStrings builds a logger from the log.level and log.format config values.
func FromStrings(level, format string, w io.Writer) *slog.Logger {
	return New(Config{Level: ParseLevel(level), Format: ParseFormat(format), Output: w})
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseLevel ignores case and surrounding space. Unknown names are info;
// ValidLevel rejects them.
func ParseLevel(s string) Level {
	return levels[normalize(s)]
}

// ParseFormat returns FormatJSON for "json" in any case, FormatText otherwise.
func ParseFormat(s string) Format {
	if normalize(s) == string(FormatJSON) {
		return FormatJSON
	}
	return FormatText
}

// ValidLevel rejects names ParseLevel would silently map to info.
func ValidLevel(s string) error {
	if _, ok := levels[normalize(s)]; !ok {
		return fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
	return nil
}

// ValidFormat rejects anything but text, json and the empty string.
func ValidFormat(s string) error {
	switch Format(normalize(s)) {
	case "", FormatText, FormatJSON:
		return nil
	}
	return fmt.Errorf("unknown log format %q (want text or json)", s)
}
