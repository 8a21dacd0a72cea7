// Package logs builds the process logger: human-readable text on the
// terminal, optionally mirrored as JSON lines to a file.
package logs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

type Options struct {
	// Writer receives text output. Defaults to os.Stderr.
	Writer io.Writer
	// Level is a slog level name ("debug", "info", "warn", "error").
	Level string
	// File, when set, receives JSON lines in append mode.
	File string
}

// Logger bundles the slog logger with its level and any opened file.
type Logger struct {
	*slog.Logger
	Level *slog.LevelVar

	file *os.File
}

func New(opts Options) (*Logger, error) {
	level := new(slog.LevelVar)
	if err := SetLevel(level, opts.Level); err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}

	var file *os.File
	if path := strings.TrimSpace(opts.File); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return &Logger{
		Logger: slog.New(slogmulti.Fanout(handlers...)),
		Level:  level,
		file:   file,
	}, nil
}

// SetLevel parses name into lv. Empty means info.
func SetLevel(lv *slog.LevelVar, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		lv.Set(slog.LevelInfo)
		return nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	lv.Set(l)
	return nil
}

func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
