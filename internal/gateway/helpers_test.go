package gateway_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omarluq/dashcache/internal/config"
	"github.com/omarluq/dashcache/internal/fetch"
	"github.com/omarluq/dashcache/internal/gateway"
	"github.com/omarluq/dashcache/internal/reqcache"
)

type manualClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type response struct {
	body   string
	status int
}

// fakeBackend serves canned responses per path and counts requests.
type fakeBackend struct {
	responses map[string]response
	calls     map[string]int
	queries   map[string]string
	gate      chan struct{}
	mu        sync.Mutex
}

func (b *fakeBackend) Set(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[method+" "+path] = response{status: status, body: body}
}

func (b *fakeBackend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

// LastQuery returns the raw query of the latest request to method and path.
func (b *fakeBackend) LastQuery(method, path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[method+" "+path]
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if b.gate != nil {
		<-b.gate
	}
	key := r.Method + " " + r.URL.Path

	b.mu.Lock()
	b.calls[key]++
	b.queries[key] = r.URL.RawQuery
	resp, ok := b.responses[key]
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

type env struct {
	backend *fakeBackend
	store   *reqcache.Store
	clock   *manualClock
	runtime *config.Runtime
	server  *httptest.Server
}

func newEnv(t *testing.T, mutate func(*config.Config)) *env {
	t.Helper()
	return newEnvWithGate(t, nil, mutate)
}

func newEnvWithGate(t *testing.T, gate chan struct{}, mutate func(*config.Config)) *env {
	t.Helper()

	backend := &fakeBackend{
		responses: make(map[string]response),
		calls:     make(map[string]int),
		queries:   make(map[string]string),
		gate:      gate,
	}
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	cfg := &config.Config{
		Backend: config.BackendConfig{BaseURL: backendSrv.URL},
	}
	if mutate != nil {
		mutate(cfg)
	}
	runtime := config.NewRuntime(cfg)

	client, err := fetch.NewClient(cfg.Backend)
	require.NoError(t, err)

	clock := &manualClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := reqcache.New(reqcache.WithClock(clock))
	handler := gateway.NewHandler(store, client, runtime, gateway.WithClock(clock))

	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)

	return &env{backend: backend, store: store, clock: clock, runtime: runtime, server: srv}
}

// settle waits for every outstanding fetch to finish.
func (e *env) settle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.store.Stats().Inflight == 0
	}, 2*time.Second, 5*time.Millisecond)
}
