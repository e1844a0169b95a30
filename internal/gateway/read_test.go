package gateway_test

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/omarluq/dashcache/internal/config"
	"github.com/omarluq/dashcache/internal/gateway"
)

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test helper
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRead_MissThenHit(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.backend.Set(http.MethodGet, "/offers", http.StatusOK, `[{"id":1},{"id":2}]`)

	resp, body := get(t, e.server.URL+"/api/offers")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gateway.CacheMiss, resp.Header.Get(gateway.HeaderCache))
	assert.JSONEq(t, `[{"id":1},{"id":2}]`, body)

	e.clock.Advance(5 * time.Second)
	resp, body = get(t, e.server.URL+"/api/offers")
	assert.Equal(t, gateway.CacheHit, resp.Header.Get(gateway.HeaderCache))
	assert.Equal(t, "5", resp.Header.Get(gateway.HeaderCacheAge))
	assert.JSONEq(t, `[{"id":1},{"id":2}]`, body)

	assert.Equal(t, 1, e.backend.Calls(http.MethodGet, "/offers"))
	stats := e.store.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestRead_QueryStringIsPartOfKey(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.backend.Set(http.MethodGet, "/offers", http.StatusOK, `[]`)

	get(t, e.server.URL+"/api/offers?skip=0&limit=50")
	get(t, e.server.URL+"/api/offers?limit=50&skip=0")
	get(t, e.server.URL+"/api/offers?limit=10")

	assert.Equal(t, 2, e.backend.Calls(http.MethodGet, "/offers"))
	assert.Equal(t, []string{
		"GET /offers?limit=10",
		"GET /offers?limit=50&skip=0",
	}, e.store.Keys("GET /offers"))
}

func TestRead_ConcurrentRequestsShareOneFetch(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	e := newEnvWithGate(t, gate, nil)
	e.backend.Set(http.MethodGet, "/campaigns", http.StatusOK, `{"items":[]}`)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(e.server.URL + "/api/campaigns") //nolint:noctx // test
			if !assert.NoError(t, err) {
				return
			}
			_ = resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, e.backend.Calls(http.MethodGet, "/campaigns"))
	assert.Equal(t, uint64(1), e.store.Stats().Misses)
}

func TestRead_StaleWhileRefetchServesImmediately(t *testing.T) {
	t.Parallel()

	swr := true
	e := newEnv(t, func(c *config.Config) {
		c.Cache.Routes = []config.RouteConfig{{Prefix: "/links", TTLMS: 1000, StaleWhileRefetch: &swr}}
	})
	e.backend.Set(http.MethodGet, "/links", http.StatusOK, `[1]`)

	get(t, e.server.URL+"/api/links")
	e.backend.Set(http.MethodGet, "/links", http.StatusOK, `[1,2]`)
	e.clock.Advance(2 * time.Second)

	resp, body := get(t, e.server.URL+"/api/links")
	assert.Equal(t, gateway.CacheStale, resp.Header.Get(gateway.HeaderCache))
	assert.JSONEq(t, `[1]`, body)

	e.settle(t)
	resp, body = get(t, e.server.URL+"/api/links")
	assert.Equal(t, gateway.CacheHit, resp.Header.Get(gateway.HeaderCache))
	assert.JSONEq(t, `[1,2]`, body)

	stats := e.store.Stats()
	assert.Equal(t, uint64(1), stats.StaleHits)
	assert.Equal(t, uint64(1), stats.BackgroundRefresh)
}

func TestRead_BackendErrorWithoutData(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)

	resp, body := get(t, e.server.URL+"/api/offers/404")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, gateway.CacheMiss, resp.Header.Get(gateway.HeaderCache))
	assert.Equal(t, "backend_error", gjson.Get(body, "error.type").String())
	assert.Equal(t, uint64(1), e.store.Stats().Errors)
	assert.Equal(t, 1, e.backend.Calls(http.MethodGet, "/offers/404"))
}

func TestRead_FailedRefreshKeepsData(t *testing.T) {
	t.Parallel()

	e := newEnv(t, func(c *config.Config) { c.Cache.DefaultTTLMS = 1000 })
	e.backend.Set(http.MethodGet, "/templates", http.StatusOK, `{"data":[1]}`)
	get(t, e.server.URL+"/api/templates")

	e.backend.Set(http.MethodGet, "/templates", http.StatusInternalServerError, `boom`)
	e.clock.Advance(2 * time.Second)

	resp, body := get(t, e.server.URL+"/api/templates")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gateway.CacheRefresh, resp.Header.Get(gateway.HeaderCache))
	assert.Contains(t, resp.Header.Get(gateway.HeaderCacheError), "500")
	assert.JSONEq(t, `{"data":[1]}`, body)
	assert.Equal(t, "2", resp.Header.Get(gateway.HeaderCacheAge))
}

func TestRead_DisabledRouteBypassesCache(t *testing.T) {
	t.Parallel()

	e := newEnv(t, func(c *config.Config) {
		c.Cache.Routes = []config.RouteConfig{{Prefix: "/auth", Disabled: true}}
	})
	e.backend.Set(http.MethodGet, "/auth/me", http.StatusOK, `{"user":"ops"}`)

	for range 2 {
		resp, body := get(t, e.server.URL+"/api/auth/me")
		assert.Equal(t, gateway.CacheBypass, resp.Header.Get(gateway.HeaderCache))
		assert.JSONEq(t, `{"user":"ops"}`, body)
	}
	assert.Equal(t, 2, e.backend.Calls(http.MethodGet, "/auth/me"))
	assert.Zero(t, e.store.Len())
}

func TestRead_RouteReloadAppliesToNextRead(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.backend.Set(http.MethodGet, "/offers", http.StatusOK, `[]`)
	get(t, e.server.URL+"/api/offers")
	e.clock.Advance(10 * time.Second)

	reloaded := *e.runtime.Get()
	reloaded.Cache.Routes = []config.RouteConfig{{Prefix: "/offers", TTLMS: 5000}}
	e.runtime.Store(&reloaded)

	resp, _ := get(t, e.server.URL+"/api/offers")
	assert.Equal(t, gateway.CacheRefresh, resp.Header.Get(gateway.HeaderCache))
	assert.Equal(t, 2, e.backend.Calls(http.MethodGet, "/offers"))
}

func TestQuery_EnvelopeDoesNotWait(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	e := newEnvWithGate(t, gate, nil)
	e.backend.Set(http.MethodGet, "/offers", http.StatusOK, `[{"id":7}]`)

	_, body := get(t, e.server.URL+"/query/offers")
	assert.Equal(t, "GET /offers", gjson.Get(body, "key").String())
	assert.True(t, gjson.Get(body, "loading").Bool())
	assert.True(t, gjson.Get(body, "stale").Bool())
	assert.Equal(t, gjson.Null, gjson.Get(body, "data").Type)

	close(gate)
	e.settle(t)

	resp, body := get(t, e.server.URL+"/query/offers")
	assert.Equal(t, gateway.CacheHit, resp.Header.Get(gateway.HeaderCache))
	assert.False(t, gjson.Get(body, "loading").Bool())
	assert.False(t, gjson.Get(body, "stale").Bool())
	assert.Equal(t, int64(7), gjson.Get(body, "data.0.id").Int())
	assert.Equal(t, gjson.Null, gjson.Get(body, "error").Type)
	assert.True(t, strings.HasPrefix(body, "{"))
}

func TestRead_EscapedPathIsNotAQuery(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil)
	e.backend.Set(http.MethodGet, "/a?b=1", http.StatusOK, `{"escaped":true}`)
	e.backend.Set(http.MethodGet, "/a", http.StatusOK, `{"escaped":false}`)

	resp, body := get(t, e.server.URL+"/api/a%3Fb=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"escaped":true}`, body)

	resp, body = get(t, e.server.URL+"/api/a?b=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gateway.CacheMiss, resp.Header.Get(gateway.HeaderCache))
	assert.JSONEq(t, `{"escaped":false}`, body)

	assert.Equal(t, []string{"GET /a%3Fb=1", "GET /a?b=1"}, e.store.Keys(""))

	resp, body = send(t, http.MethodPost,
		e.server.URL+"/cache/refresh?wait=true&key="+url.QueryEscape("GET /a%3Fb=1"), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, gjson.Get(body, "data.escaped").Bool())
	assert.Equal(t, 2, e.backend.Calls(http.MethodGet, "/a?b=1"))
	assert.Equal(t, 1, e.backend.Calls(http.MethodGet, "/a"))
}
