package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/omarluq/dashcache/internal/fetch"
	"github.com/omarluq/dashcache/internal/reqcache"
)

// Cache metadata headers.
const (
	HeaderCache      = "X-Cache"
	HeaderCacheAge   = "X-Cache-Age"
	HeaderCacheError = "X-Cache-Error"
	HeaderCleared    = "X-Cache-Cleared"
	HeaderAdminKey   = "X-Admin-Key"
	HeaderRequestID  = "X-Request-ID"
)

// X-Cache values.
const (
	CacheHit     = "HIT"
	CacheMiss    = "MISS"
	CacheStale   = "STALE"
	CacheRefresh = "REFRESH"
	CacheBypass  = "BYPASS"
)

// ErrorResponse is the JSON body of every gateway error.
type ErrorResponse struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error type and message.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Type:  "error",
		Error: ErrorDetail{Type: errorType, Message: message},
	})
}

// writeFetchError maps a fetch failure to a response. Backend statuses pass
// through; everything else is a gateway failure.
func writeFetchError(w http.ResponseWriter, err error) {
	var statusErr *fetch.StatusError
	switch {
	case errors.As(err, &statusErr):
		WriteError(w, statusErr.Status, "backend_error", err.Error())
	case errors.Is(err, fetch.ErrCircuitOpen):
		WriteError(w, http.StatusServiceUnavailable, "backend_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.Is(err, reqcache.ErrNoData):
		WriteError(w, http.StatusBadGateway, "no_data", err.Error())
	default:
		WriteError(w, http.StatusBadGateway, "backend_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeRawJSON(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
