package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/dashcache/internal/config"
)

// RequestIDMiddleware adds X-Request-ID header and logger with request ID to context.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := AddRequestID(r.Context(), r.Header.Get(HeaderRequestID))
			w.Header().Set(HeaderRequestID, GetRequestID(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware writes one access log line per request.
func LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			event := accessEvent(zerolog.Ctx(r.Context()), wrapped.statusCode)
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("cache", wrapped.Header().Get(HeaderCache)).
				Msgf("%s %s", r.Method, r.URL.Path)
		})
	}
}

func accessEvent(logger *zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return logger.Error()
	case status >= 400:
		return logger.Warn()
	default:
		return logger.Info()
	}
}

// AdminKeyMiddleware requires X-Admin-Key to match server.admin_key.
// The key is read from the live config on every request so a reload can
// rotate it; an empty key disables the check.
func AdminKeyMiddleware(cfg config.RuntimeConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			expected := cfg.Get().Server.AdminKey
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(HeaderAdminKey)
			if provided == "" {
				failAuth(w, r, "missing "+HeaderAdminKey+" header")
				return
			}

			expectedHash := sha256.Sum256([]byte(expected))
			providedHash := sha256.Sum256([]byte(provided))
			if subtle.ConstantTimeCompare(providedHash[:], expectedHash[:]) != 1 {
				failAuth(w, r, "invalid "+HeaderAdminKey)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func failAuth(w http.ResponseWriter, r *http.Request, reason string) {
	zerolog.Ctx(r.Context()).Warn().Msg("admin authentication failed: " + reason)
	WriteError(w, http.StatusUnauthorized, "authentication_error", reason)
}

// responseWriter captures the status code for access logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
