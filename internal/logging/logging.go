// Package logging configures slog for lanclip binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a string to a Format, returning FormatAuto for unknown values.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts a string to a slog.Level. An empty string yields def;
// anything unparseable yields Info.
func ParseLevel(s string, def slog.Level) slog.Level {
	if strings.TrimSpace(s) == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Options control New and Setup.
type Options struct {
	// Writer defaults to os.Stderr.
	Writer io.Writer
	Format Format
	Level  slog.Level
}

// New builds a logger: tinter for text (or auto on a terminal), JSON otherwise.
func New(o Options) *slog.Logger {
	w := o.Writer
	if w == nil {
		w = os.Stderr
	}

	var h slog.Handler
	if o.Format == FormatText || (o.Format == FormatAuto && IsTTY(w)) {
		h = tinter.NewHandler(w, &tinter.Options{
			Level:      o.Level,
			TimeFormat: time.TimeOnly + ".000",
			NoColor:    !IsTTY(w),
		})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: o.Level})
	}
	return slog.New(h)
}

// Setup installs New(o) as the default logger. Call once after flag parsing.
func Setup(o Options) {
	slog.SetDefault(New(o))
}
