// Package logging builds the slog logger of the command-line tool.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits of the log file.
const (
	MaxSizeMB  = 20
	MaxBackups = 3
	MaxAgeDays = 28
)

// Options select the level, format and destination.
type Options struct {
	Level  string
	Format string
	// File, when set, receives the logs instead of the fallback writer and is rotated.
	File string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing to fallback, or to a rotating file when opts.File is set.
// The returned closer flushes and closes the file.
func New(fallback io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", opts.Level, err)
	}

	out := fallback

	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    MaxSizeMB,
			MaxBackups: MaxBackups,
			MaxAge:     MaxAgeDays,
			Compress:   true,
		}

		out, closer = file, file
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler

	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	case "text", "":
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(handler), closer, nil
}
