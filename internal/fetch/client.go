// Package fetch talks to the dashboard REST backend on behalf of the request cache.
//
// A Client wraps net/http with a token-bucket limiter and a circuit breaker.
// JSON and Count turn backend paths into reqcache fetchers, and Key/CountKey
// build the cache keys those fetchers are stored under.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/omarluq/dashcache/internal/config"
)

// AdminKeyHeader carries the backend admin key.
const AdminKeyHeader = "X-Admin-Key"

// maxErrorBody bounds how much of an error response is kept in StatusError.
const maxErrorBody = 512

// Client performs rate limited, breaker protected requests against the backend.
type Client struct {
	http     *http.Client
	base     *url.URL
	limiter  *Limiter
	breaker  *Breaker
	adminKey string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient builds a client for cfg. The base URL must already be validated.
func NewClient(cfg config.BackendConfig, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse base url: %w", err)
	}

	c := &Client{
		http:     &http.Client{Timeout: cfg.GetTimeout()},
		base:     base,
		limiter:  NewLimiter(cfg.RateLimitRPM),
		breaker:  NewBreaker(base.Host, cfg.Breaker),
		adminKey: cfg.AdminKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Limiter exposes the rate limiter so config reloads can retune it.
func (c *Client) Limiter() *Limiter {
	return c.limiter
}

// BreakerState returns the backend circuit state.
func (c *Client) BreakerState() State {
	return c.breaker.State()
}

// URL resolves a backend path against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// GetRaw fetches path and returns the body of a 2xx response.
func (c *Client) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, query, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: http.MethodGet,
			Path:   path,
			Status: resp.StatusCode,
			Body:   truncate(body),
		}
	}
	return body, nil
}

// Do sends a request and returns the raw response. Non-2xx statuses are not
// errors here; callers that proxy responses need them verbatim.
// The caller must close the response body.
func (c *Client) Do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body []byte,
	header http.Header,
) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	log := logger()
	done, err := c.breaker.Allow()
	if err != nil {
		log.Warn().Str("method", method).Str("path", path).Msg("backend circuit open, request rejected")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, query), bytes.NewReader(body))
	if err != nil {
		done(nil)
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.adminKey != "" {
		req.Header.Set(AdminKeyHeader, c.adminKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// A caller that gave up, by cancel or by its own deadline, says nothing
		// about the backend. The client timeout does not set ctx.Err and counts.
		if ctx.Err() == nil && ShouldCountAsFailure(0, err) {
			done(err)
		} else {
			done(nil)
		}
		log.Debug().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return nil, fmt.Errorf("fetch: %s %s: %w", method, path, err)
	}

	if ShouldCountAsFailure(resp.StatusCode, nil) {
		done(&StatusError{Method: method, Path: path, Status: resp.StatusCode})
	} else {
		done(nil)
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("backend response")

	return resp, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
