// Package logging builds the process logger from the [log] config section.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"taskdeck/internal/config"
)

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// New returns a logger writing to w in the configured format.
func New(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("log format %q: want text or json", cfg.Format)
}

// Open is New over cfg.File, appending. The returned close func is never
// nil. With no file configured the logger writes to fallback.
func Open(cfg config.Log, fallback io.Writer) (*slog.Logger, func() error, error) {
	if cfg.File == "" {
		l, err := New(fallback, cfg)
		return l, func() error { return nil }, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, func() error { return nil }, err
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	l, err := New(f, cfg)
	if err != nil {
		f.Close()
		return nil, func() error { return nil }, err
	}
	return l, f.Close, nil
}
