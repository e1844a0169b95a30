package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/omarluq/dashcache/internal/config"
	"github.com/omarluq/dashcache/internal/fetch"
	"github.com/omarluq/dashcache/internal/reqcache"
)

// maxBodyBytes bounds proxied mutation bodies.
const maxBodyBytes = 1 << 20

// Handler serves the gateway routes. Reads go through the store, mutations
// go straight to the backend and clear the affected keys.
type Handler struct {
	store  *reqcache.Store
	client *fetch.Client
	cfg    config.RuntimeConfig
	now    func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithClock sets the clock used for X-Cache-Age. It should be the store's clock.
func WithClock(c reqcache.Clock) HandlerOption {
	return func(h *Handler) {
		h.now = c.Now
	}
}

// NewHandler creates a Handler. cfg is consulted per request so route TTLs
// and the admin key follow config reloads.
func NewHandler(store *reqcache.Store, client *fetch.Client, cfg config.RuntimeConfig, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:  store,
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the gateway mux.
//
//   - GET /api/{path...}            cached read of a backend path
//   - POST|PUT|PATCH|DELETE /api/…  proxied mutation, clears the resource family
//   - GET /query/{path...}          non-blocking cache envelope
//   - GET /dashboard/summary        cached counts of the dashboard resources
//   - /cache/…                      stats panel and cache administration;
//     everything but GET /cache/stats needs the admin key when one is set
//   - GET /healthz                  liveness and breaker state
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/{path...}", h.handleRead)
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		mux.HandleFunc(method+" /api/{path...}", h.handleMutation)
	}
	mux.HandleFunc("GET /query/{path...}", h.handleQuery)
	mux.HandleFunc("GET /dashboard/summary", h.handleSummary)

	admin := AdminKeyMiddleware(h.cfg)
	mux.HandleFunc("GET /cache/stats", h.handleStats)
	mux.Handle("GET /cache/keys", admin(http.HandlerFunc(h.handleKeys)))
	mux.Handle("POST /cache/stats/reset", admin(http.HandlerFunc(h.handleResetStats)))
	mux.Handle("POST /cache/clear", admin(http.HandlerFunc(h.handleClear)))
	mux.Handle("POST /cache/refresh", admin(http.HandlerFunc(h.handleRefresh)))
	mux.HandleFunc("GET /healthz", h.handleHealth)

	var handler http.Handler = mux
	handler = LoggingMiddleware()(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}

// mounts are the gateway prefixes that forward {path...} to the backend.
var mounts = []string{"/api/", "/query/"}

// backendPath maps the {path...} wildcard to a backend path. It keeps the
// request's escaping so an encoded "?" or "/" stays part of one segment and
// never reaches the cache key as a query separator.
func backendPath(r *http.Request) string {
	escaped := r.URL.EscapedPath()
	for _, mount := range mounts {
		if rest, ok := strings.CutPrefix(escaped, mount); ok {
			return "/" + rest
		}
	}
	return "/" + r.PathValue("path")
}
