package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
)

// Supported output formats for New.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatZerolog = "zerolog"
)

// New builds a Logger writing to w in the requested format at the requested
// level ("debug", "info", "warn", "error").
func New(format, level string, w io.Writer) (Logger, error) {
	switch strings.ToLower(format) {
	case "", FormatText, FormatJSON:
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(orDefault(level)))); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		opts := &slog.HandlerOptions{Level: lvl}
		var h slog.Handler = slog.NewTextHandler(w, opts)
		if strings.EqualFold(format, FormatJSON) {
			h = slog.NewJSONHandler(w, opts)
		}
		return NewSlogLogger(slog.New(h)), nil

	case FormatZerolog:
		lvl, err := zerolog.ParseLevel(strings.ToLower(orDefault(level)))
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zl := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
			Level(lvl).
			With().Timestamp().Logger()
		return NewZerologLogger(zl), nil

	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func orDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}
