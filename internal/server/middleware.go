package server

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/watzon/healthcheck/internal/metrics"
	"github.com/watzon/healthcheck/internal/requestctx"
	"github.com/watzon/healthcheck/internal/server/handlers"
)

const requestIDHeader = "X-Request-ID"

type Middleware func(http.Handler) http.Handler

// Chain wraps h so the first middleware is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RecoveryMiddleware turns a panicking handler into a 500. Panics inside a
// check never get here; the checker records them as failed targets.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Str("request_id", requestctx.RequestID(r.Context())).
					Str("path", r.URL.Path).
					Msg("Panic recovered")
				handlers.InternalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware reuses an incoming X-Request-ID or assigns a new one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := requestctx.WithRequestTime(requestctx.WithRequestID(r.Context(), id), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs one line per request. Scrapes and liveness probes
// log at debug, server errors at warn.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := newRecorder(w)
		next.ServeHTTP(rec, r)

		start := requestctx.RequestTime(r.Context())
		if start.IsZero() {
			start = rec.started
		}

		log.WithLevel(requestLevel(r.URL.Path, rec.status)).
			Str("request_id", requestctx.RequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("Request completed")
	})
}

func requestLevel(path string, status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.WarnLevel
	case path == "/metrics" || path == "/healthz":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// MetricsMiddleware records request counts and latency, except for /metrics itself.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := newRecorder(w)
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Method, normalizePath(r.URL.Path), rec.status, time.Since(rec.started))
	})
}

// responseWriter captures the status and size written by a handler.
type responseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	started time.Time
}

func newRecorder(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK, started: time.Now()}
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// normalizePath keeps label cardinality bounded for unknown paths.
func normalizePath(path string) string {
	if len(path) > 100 {
		path = path[:100]
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
