// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/RackSec/srslog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/graphops/class-registry/internal/config"
)

// New builds a slog.Logger from the logging configuration. Output always
// goes to stdout; a rotated file and a syslog sink are added when
// configured. The returned closer releases the extra sinks.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	closers := multiCloser{}

	if cfg.File.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		writers = append(writers, rotator)
		closers = append(closers, rotator)
	}

	if cfg.Syslog.Enabled {
		tag := cfg.Syslog.Tag
		if tag == "" {
			tag = "class-registry"
		}
		sys, err := srslog.Dial(cfg.Syslog.Network, cfg.Syslog.Address, srslog.LOG_INFO|srslog.LOG_DAEMON, tag)
		if err != nil {
			closers.Close()
			return nil, nil, fmt.Errorf("failed to connect to syslog: %w", err)
		}
		writers = append(writers, sys)
		closers = append(closers, sys)
	}

	var out io.Writer = os.Stdout
	if len(writers) > 1 {
		out = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler), closers, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type multiCloser []io.Closer

// Close implements io.Closer, closing every sink and keeping the first error.
func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
