/* SPDX-License-Identifier: BSD-2-Clause */

package logutil

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
)

// Logger is a minimal interface for debug/error logging.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// LogFunc is a function type that implements Logger.
type LogFunc func(level, msg string, args ...any)

func (f LogFunc) Debug(msg string, args ...any) { f("DEBUG", msg, args...) }
func (f LogFunc) Error(msg string, args ...any) { f("ERROR", msg, args...) }

// StdLogger returns a simple default logger writing through the log package.
func StdLogger() Logger {
	return LogFunc(func(level, msg string, args ...any) {
		switch len(args) {
		case 0:
			log.Printf("%s: %s", level, msg)
		case 1:
			log.Printf("%s: %s %v", level, msg, args[0])
		default:
			log.Printf("%s: %s %s", level, msg, strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
		}
	})
}

// NoopLogger discards all logs.
func NoopLogger() Logger { return LogFunc(func(string, string, ...any) {}) }

// slogLogger forwards to a *slog.Logger. Args are treated as slog key/value pairs.
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// SlogLogger adapts l to Logger. A nil l uses slog.Default().
func SlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

// NewSlog builds a structured Logger writing to w.
// level is one of DEBUG, INFO, WARN, ERROR (case-insensitive); format is "text" or "json".
func NewSlog(w io.Writer, level, format string) (Logger, error) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "", "INFO":
		lvl = slog.LevelInfo
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return SlogLogger(slog.New(h)), nil
}
