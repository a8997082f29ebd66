// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level  string // logrus level name; default info
	Format string // "json" (default) or "text"
	// Output is "stdout", "stderr" or a file path. Files are rotated.
	Output     string
	MaxSizeMB  int // rotation size; default 100
	MaxAgeDays int // 0 keeps rotated files forever
	Caller     bool
}

// New creates a logger. Callers derive per-subsystem loggers with Component.
func New(opts Options) (*logrus.Logger, error) {
	l := logrus.New()

	level := strings.ToLower(strings.TrimSpace(opts.Level))
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	l.SetLevel(lvl)

	prettyCaller := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}
	l.SetReportCaller(opts.Caller)

	switch strings.ToLower(opts.Format) {
	case "", "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
			CallerPrettyfier: prettyCaller,
		})
	case "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: prettyCaller,
		})
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	out, err := output(opts)
	if err != nil {
		return nil, err
	}
	l.SetOutput(out)
	return l, nil
}

func output(opts Options) (io.Writer, error) {
	switch opts.Output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	size := opts.MaxSizeMB
	if size <= 0 {
		size = 100
	}
	return &lumberjack.Logger{
		Filename: opts.Output,
		MaxSize:  size,
		MaxAge:   opts.MaxAgeDays,
		Compress: true,
	}, nil
}

// Component tags every entry with the subsystem name.
func Component(l logrus.FieldLogger, name string) *logrus.Entry {
	return l.WithField("component", name)
}
