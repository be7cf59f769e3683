// Package logging builds the application logger. The TUI owns the terminal,
// so logs go to a file unless a writer is given explicitly.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Options configure New.
type Options struct {
	File   string // log file path; empty writes to Writer
	Level  string // debug, info, warn, error
	Writer io.Writer
	Prefix string
}

// New returns a logger and a close func for its file.
func New(opts Options) (*log.Logger, func() error, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = l
	}

	w := opts.Writer
	closeFn := func() error { return nil }
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}
	if w == nil {
		w = os.Stderr
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
	})
	return logger, closeFn, nil
}

// Discard is a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
