package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects the logger output.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	// File, when set, also receives every record in the line-prefixed file format.
	File string
}

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout flow UI/JSON-RPC).
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOptions(level)))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Setup builds the logger described by opts. The returned closer releases the
// log file, if any, and must be called on shutdown.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var console slog.Handler
	switch opts.Format {
	case "", "text":
		console = New(level).Handler()
	case "json":
		console = slog.NewJSONHandler(os.Stderr, handlerOptions(level))
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.File == "" {
		return slog.New(console), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(NewMultiHandler(console, NewFileHandler(f, level))), f, nil
}

// ParseLevel maps a level name to a slog.Level. An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
}
