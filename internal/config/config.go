// Package config provides configuration loading and parsing for dashcache.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/omarluq/dashcache/internal/reqcache"
)

// Configuration errors.
var (
	ErrUnknownFormat = errors.New("config: unknown file format")
)

// RuntimeConfig defines the interface for accessing runtime configuration that supports hot-reload.
// Components that need to observe config changes should use this interface instead of
// holding a direct *Config pointer, which would become stale after hot-reload.
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Default values applied by the Get* accessors.
const (
	DefaultListen           = "127.0.0.1:8790"
	DefaultBackendTimeout   = 15 * time.Second
	DefaultServerTimeout    = 30 * time.Second
	DefaultFailureThreshold = 5
	DefaultOpenDuration     = 30 * time.Second
	DefaultHalfOpenProbes   = 1
)

// Config represents the complete dashcache configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Backend BackendConfig `yaml:"backend" toml:"backend"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache"`
}

// ServerConfig defines the gateway listener.
type ServerConfig struct {
	Listen string `yaml:"listen" toml:"listen"`

	// AdminKey guards the /cache mutation endpoints via X-Admin-Key.
	// Empty disables the check.
	AdminKey    string `yaml:"admin_key" toml:"admin_key"`
	TimeoutMS   int    `yaml:"timeout_ms" toml:"timeout_ms"`
	EnableHTTP2 bool   `yaml:"enable_http2" toml:"enable_http2"` // Enable HTTP/2 cleartext (h2c) support
}

// GetListen returns the listen address with default fallback.
func (s *ServerConfig) GetListen() string {
	if s.Listen == "" {
		return DefaultListen
	}
	return s.Listen
}

// GetTimeout returns the per-request timeout for foreground waits.
func (s *ServerConfig) GetTimeout() time.Duration {
	return msOption(s.TimeoutMS).OrElse(DefaultServerTimeout)
}

// BackendConfig describes the dashboard REST backend the gateway reads from.
type BackendConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// AdminKey is forwarded as X-Admin-Key on every backend request when set.
	AdminKey  string        `yaml:"admin_key" toml:"admin_key"`
	Breaker   BreakerConfig `yaml:"breaker" toml:"breaker"`
	TimeoutMS int           `yaml:"timeout_ms" toml:"timeout_ms"`

	// RateLimitRPM caps backend requests per minute. Zero means unlimited.
	RateLimitRPM int `yaml:"rate_limit_rpm" toml:"rate_limit_rpm"`
}

// GetTimeout returns the backend request timeout with default fallback.
func (b *BackendConfig) GetTimeout() time.Duration {
	return msOption(b.TimeoutMS).OrElse(DefaultBackendTimeout)
}

// GetRateLimitOption returns the requests-per-minute cap, None when unlimited.
func (b *BackendConfig) GetRateLimitOption() mo.Option[int] {
	if b.RateLimitRPM <= 0 {
		return mo.None[int]()
	}
	return mo.Some(b.RateLimitRPM)
}

// BreakerConfig configures the circuit breaker in front of the backend.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`
	OpenDurationMS   int `yaml:"open_duration_ms" toml:"open_duration_ms"`
	HalfOpenProbes   int `yaml:"half_open_probes" toml:"half_open_probes"`
}

// GetFailureThreshold returns the consecutive failures that open the circuit.
func (b *BreakerConfig) GetFailureThreshold() int {
	if b.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return b.FailureThreshold
}

// GetOpenDuration returns how long the circuit stays open.
func (b *BreakerConfig) GetOpenDuration() time.Duration {
	return msOption(b.OpenDurationMS).OrElse(DefaultOpenDuration)
}

// GetHalfOpenProbes returns how many probes are allowed while half-open.
func (b *BreakerConfig) GetHalfOpenProbes() int {
	if b.HalfOpenProbes <= 0 {
		return DefaultHalfOpenProbes
	}
	return b.HalfOpenProbes
}

// CacheConfig controls how gateway reads use the request cache.
type CacheConfig struct {
	// Routes override the defaults for backend paths by longest prefix.
	Routes       []RouteConfig `yaml:"routes" toml:"routes"`
	DefaultTTLMS int           `yaml:"default_ttl_ms" toml:"default_ttl_ms"`

	// StaleWhileRefetch is the default for routes that do not set it.
	StaleWhileRefetch bool `yaml:"stale_while_refetch" toml:"stale_while_refetch"`
}

// RouteConfig tunes caching for backend paths starting with Prefix.
type RouteConfig struct {
	StaleWhileRefetch *bool  `yaml:"stale_while_refetch" toml:"stale_while_refetch"`
	Prefix            string `yaml:"prefix" toml:"prefix"`
	TTLMS             int    `yaml:"ttl_ms" toml:"ttl_ms"`
	Disabled          bool   `yaml:"disabled" toml:"disabled"`
}

// GetDefaultTTL returns the TTL for paths without a route.
func (c *CacheConfig) GetDefaultTTL() time.Duration {
	return msOption(c.DefaultTTLMS).OrElse(reqcache.DefaultTTL)
}

// MatchRoute returns the route with the longest prefix matching path.
func (c *CacheConfig) MatchRoute(path string) mo.Option[RouteConfig] {
	matches := lo.Filter(c.Routes, func(r RouteConfig, _ int) bool {
		return strings.HasPrefix(path, r.Prefix)
	})
	if len(matches) == 0 {
		return mo.None[RouteConfig]()
	}
	return mo.Some(lo.MaxBy(matches, func(a, b RouteConfig) bool {
		return len(a.Prefix) > len(b.Prefix)
	}))
}

// OptionsFor returns the cache read options for a backend path.
// TTL is evaluated per read, so a hot-reloaded route applies to the very
// next request without touching cached entries.
func (c *CacheConfig) OptionsFor(path string) reqcache.Options {
	opts := reqcache.Options{
		TTL:               c.GetDefaultTTL(),
		StaleWhileRefetch: c.StaleWhileRefetch,
	}
	route, ok := c.MatchRoute(path).Get()
	if !ok {
		return opts
	}
	if route.TTLMS > 0 {
		opts.TTL = time.Duration(route.TTLMS) * time.Millisecond
	}
	if route.StaleWhileRefetch != nil {
		opts.StaleWhileRefetch = *route.StaleWhileRefetch
	}
	opts.Disabled = route.Disabled
	return opts
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"` // enable colored console output
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func msOption(ms int) mo.Option[time.Duration] {
	if ms <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(ms) * time.Millisecond)
}
