package reqcache

import (
	"context"
	"time"
)

// DefaultTTL is the freshness window used when Options.TTL is zero.
const DefaultTTL = 60 * time.Second

// Fetcher produces the value for a cache key. It is called at most once per
// logical fetch, on the store's dispatcher, with a context that carries the
// caller's values but is never canceled by the cache.
type Fetcher func(ctx context.Context) (any, error)

// Options are supplied on every read. The zero value matches the defaults:
// a 60s TTL, enabled, immediate, foreground refetch of stale data.
//
// TTL is not stored on the entry. Two call sites reading the same key with
// different TTLs observe different staleness for the same data.
type Options struct {
	// TTL is the freshness window. Zero means DefaultTTL.
	TTL time.Duration `yaml:"ttl" toml:"ttl"`

	// Disabled turns the query into a pure cache read: nothing is dispatched
	// and Refresh/Invalidate are no-ops.
	Disabled bool `yaml:"disabled" toml:"disabled"`

	// Lazy suppresses automatic foreground fetches until the query has been
	// explicitly refreshed or invalidated once.
	Lazy bool `yaml:"lazy" toml:"lazy"`

	// StaleWhileRefetch serves stale data immediately and refreshes it in the
	// background instead of refetching in the foreground.
	StaleWhileRefetch bool `yaml:"stale_while_refetch" toml:"stale_while_refetch"`
}

// EffectiveTTL returns TTL with the default applied.
func (o Options) EffectiveTTL() time.Duration {
	if o.TTL <= 0 {
		return DefaultTTL
	}
	return o.TTL
}

// Clock supplies the current time. Tests inject a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Dispatcher runs a fetch. The default starts a goroutine per fetch; tests
// inject a dispatcher that queues work so concurrency is deterministic.
type Dispatcher func(run func())

// GoDispatcher runs every fetch on its own goroutine.
func GoDispatcher(run func()) { go run() }

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used for timestamps and staleness.
func WithClock(c Clock) StoreOption {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithDispatcher sets how fetches are executed.
func WithDispatcher(d Dispatcher) StoreOption {
	return func(s *Store) {
		if d != nil {
			s.dispatch = d
		}
	}
}
