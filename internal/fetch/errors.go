package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for backend fetches.
var (
	// ErrCircuitOpen is returned when the backend breaker is open and rejecting requests.
	ErrCircuitOpen = errors.New("fetch: circuit breaker is open")

	// ErrRateLimited is returned when the limiter wait is abandoned.
	ErrRateLimited = errors.New("fetch: rate limit wait canceled")

	// ErrInvalidKey is returned by ParseKey for strings that are not cache keys.
	ErrInvalidKey = errors.New("fetch: invalid cache key")
)

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Body   string
	Status int
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("fetch: %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("fetch: %s %s: %d %s: %s", e.Method, e.Path, e.Status, http.StatusText(e.Status), e.Body)
}
