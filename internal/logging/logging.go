// Package logging builds the process-wide slog logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Options selects the logger's level, format and destination.
type Options struct {
	Level  string // debug, info, warning, error
	Format string // auto, text, json
	File   string // empty logs to Stderr

	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// isTerminalFn is replaced in tests.
var isTerminalFn = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// New returns a logger and a closer for any file it opened. The closer is
// never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nopCloser{}, err
	}

	var (
		w      io.Writer = opts.Stderr
		closer io.Closer = nopCloser{}
	)
	if w == nil {
		w = os.Stderr
	}
	if opts.File != "" {
		f, err := OpenRotatingFile(opts.File, DefaultMaxSizeMB, DefaultMaxFiles)
		if err != nil {
			return nil, nopCloser{}, err
		}
		w, closer = f, f
	}

	handler, err := newHandler(w, opts.Format, level, opts.File == "")
	if err != nil {
		closer.Close()
		return nil, nopCloser{}, err
	}
	return slog.New(handler), closer, nil
}

func newHandler(w io.Writer, format string, level slog.Level, console bool) (slog.Handler, error) {
	switch strings.ToLower(format) {
	case "", "auto":
		if console && isTerminalFn(w) {
			return charmlog.NewWithOptions(w, charmlog.Options{
				Level:           charmLevel(level),
				ReportTimestamp: true,
				TimeFormat:      time.TimeOnly,
			}), nil
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel accepts debug, info, warn/warning and error. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
