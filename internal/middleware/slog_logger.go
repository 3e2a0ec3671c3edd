// Package middleware provides HTTP middleware for the petrol logbook API:
// request logging, CORS, body limits, bearer auth and latency metrics.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewSlogLogger returns a middleware that logs one structured line per
// request with method, path, status, duration, remote address and the
// request ID set by chi's RequestID middleware. Server errors are logged at
// ERROR, client errors at WARN, everything else at INFO.
//
// Wire it after chimiddleware.RequestID so the request ID is available.
func NewSlogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("remote_ip", r.RemoteAddr),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			}
			log.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}
