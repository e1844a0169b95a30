package gateway

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/omarluq/dashcache/internal/fetch"
)

// forwardedHeaders are copied from the client request to the backend.
var forwardedHeaders = []string{"Content-Type", "Authorization"}

// handleMutation proxies a write to the backend. On success every cached GET
// of the resource family, and its dashboard counter, is cleared so the next
// read refetches.
func (h *Handler) handleMutation(w http.ResponseWriter, r *http.Request) {
	path := backendPath(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "request_too_large",
				"request body exceeds the maximum allowed size")
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	header := make(http.Header)
	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			header.Set(name, v)
		}
	}
	if id := GetRequestID(r.Context()); id != "" {
		header.Set(HeaderRequestID, id)
	}

	resp, err := h.client.Do(r.Context(), r.Method, path, r.URL.Query(), body, header)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		cleared := h.invalidateFamily(path)
		w.Header().Set(HeaderCleared, strconv.Itoa(cleared))
		zerolog.Ctx(r.Context()).Debug().
			Str("path", path).
			Int("cleared", cleared).
			Msg("cleared cache after mutation")
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to copy backend response")
	}
}

// invalidateFamily clears the cached reads of the first path segment and the
// dashboard counters whose listing path covers path.
func (h *Handler) invalidateFamily(path string) int {
	segment, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if segment == "" {
		return 0
	}
	cleared := h.store.Clear(fetch.FamilyPrefix(segment))
	for _, c := range fetch.CountersFor(path) {
		cleared += h.store.Clear(c.Key())
	}
	return cleared
}
