/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"log/slog"
	"net/http"
	"net/http/httputil"

	"github.com/ricardobranco777/httpio/internal/logutil"
)

// Logger is a minimal interface for debug/error logging.
type Logger = logutil.Logger

// LogFunc is a function type that implements Logger.
type LogFunc = logutil.LogFunc

// StdLogger returns a simple default logger.
func StdLogger() Logger { return logutil.StdLogger() }

// NoopLogger discards all logs.
func NoopLogger() Logger { return logutil.NoopLogger() }

// SlogLogger adapts a *slog.Logger. Args passed to Debug and Error are slog attributes.
func SlogLogger(l *slog.Logger) Logger { return logutil.SlogLogger(l) }

func logRequest(l Logger, req *http.Request) {
	if l == nil {
		return
	}
	if dump, err := httputil.DumpRequestOut(req, false); err == nil {
		l.Debug("request", "dump", string(dump))
	} else {
		l.Error("failed to dump request", "err", err)
	}
}

// logResponse dumps headers only; the body is consumed by the caller.
func logResponse(l Logger, resp *http.Response) {
	if l == nil {
		return
	}
	if dump, err := httputil.DumpResponse(resp, false); err == nil {
		l.Debug("response", "dump", string(dump))
	} else {
		l.Error("failed to dump response", "err", err)
	}
}
