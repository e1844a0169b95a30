// Package reqcache provides the request cache that dashcache serves dashboard
// reads from.
//
// A Store keeps one entry per key holding the last fetched value, the last
// error and the time of the last successful fetch. Reads decide, under a
// single lock, whether the entry is fresh, stale or missing and whether a
// fetch must be started. At most one fetch per key is outstanding at any time;
// concurrent readers and forced refreshes join it instead of starting another.
//
// Basic usage:
//
//	store := reqcache.New()
//	q := store.Query("dash_offers_count", fetchOffersCount, reqcache.Options{
//		TTL:               20 * time.Second,
//		StaleWhileRefetch: true,
//	})
//
//	snap, err := q.Wait(ctx)
//	if err != nil {
//		return err // ctx canceled while loading
//	}
//	if snap.Err != nil {
//		// last fetch failed, snap.Data still holds the previous value if any
//	}
//
// All methods are safe for concurrent use.
package reqcache

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// entry is the cached state of one key.
type entry struct {
	updatedAt  time.Time
	data       any
	err        error
	call       *Call
	settledBy  *Call
	hasData    bool
	background bool
}

type listener struct {
	fn  func(Snapshot)
	ttl time.Duration
}

type notification struct {
	fn   func(Snapshot)
	snap Snapshot
}

// Store is a keyed cache of fetch results with single-flight fetching.
type Store struct {
	clock     Clock
	dispatch  Dispatcher
	entries   map[string]*entry
	listeners map[string]map[uint64]listener
	log       zerolog.Logger
	stats     Stats
	nextID    uint64
	mu        sync.Mutex
}

// WithLogger sets the store logger. Defaults to the package logger.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = l
	}
}

// New creates an empty Store. By default it uses the system clock and runs
// each fetch on its own goroutine.
func New(opts ...StoreOption) *Store {
	s := &Store{
		clock:     SystemClock{},
		dispatch:  GoDispatcher,
		entries:   make(map[string]*entry),
		listeners: make(map[string]map[uint64]listener),
		log:       logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query returns a consumer handle for key. The handle remembers which
// settled values it has already observed so that hit counting does not
// depend on how often it reads.
func (s *Store) Query(key string, fetcher Fetcher, opts Options) *Query {
	return &Query{
		store:   s,
		key:     key,
		fetcher: fetcher,
		opts:    opts,
	}
}

// Resolve performs a one-shot read of key. Each call acts as a new consumer.
func (s *Store) Resolve(ctx context.Context, key string, fetcher Fetcher, opts Options) Snapshot {
	return s.Query(key, fetcher, opts).Resolve(ctx)
}

// Get reads key and blocks until a foreground fetch, if any, has settled.
// It returns the cached data even when the latest fetch failed, provided an
// earlier fetch succeeded. Without data it returns the fetch error, or
// ErrNoData when nothing was fetched.
func (s *Store) Get(ctx context.Context, key string, fetcher Fetcher, opts Options) (any, error) {
	snap, err := s.Query(key, fetcher, opts).Wait(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.HasData {
		if snap.Err != nil {
			return nil, snap.Err
		}
		return nil, ErrNoData
	}
	return snap.Data, nil
}

// Peek returns the current state of key without dispatching or counting.
func (s *Store) Peek(key string, ttl time.Duration) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(key, s.entries[key], ttlOrDefault(ttl), s.clock.Now())
}

// Keys returns the cached keys starting with prefix, sorted.
// An empty prefix returns every key.
func (s *Store) Keys(prefix string) []string {
	s.mu.Lock()
	keys := lo.Filter(lo.Keys(s.entries), func(key string, _ int) bool {
		return strings.HasPrefix(key, prefix)
	})
	s.mu.Unlock()
	slices.Sort(keys)
	return keys
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear removes the entries whose key starts with prefix, or every entry
// when prefix is empty, and returns how many were cleared.
//
// An entry with a fetch in flight keeps its slot so that the key never has
// two outstanding fetches; its data and timestamp are dropped and the
// pending fetch repopulates it on settlement.
func (s *Store) Clear(prefix string) int {
	s.mu.Lock()
	now := s.clock.Now()
	cleared := 0
	var pending []notification
	for key, e := range s.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if e.call != nil {
			*e = entry{call: e.call, background: e.background}
		} else {
			delete(s.entries, key)
		}
		cleared++
		pending = append(pending, s.notificationsLocked(key, now)...)
	}
	s.mu.Unlock()

	deliver(pending)

	s.log.Debug().
		Str("prefix", prefix).
		Int("cleared", cleared).
		Msg("cache clear")

	return cleared
}

// Stats returns a copy of the store counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ResetStats zeroes every counter. Inflight is a gauge of outstanding fetches
// and keeps its current value so it never goes negative when those settle.
func (s *Store) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Stats{Inflight: s.stats.Inflight}
}

// Reset drops every entry and zeroes all counters. Fetches still in flight
// complete for their waiters but no longer touch the store.
func (s *Store) Reset() {
	s.mu.Lock()
	for _, e := range s.entries {
		if e.call != nil {
			e.call.counted = false
		}
	}
	s.entries = make(map[string]*entry)
	s.stats = Stats{}
	s.mu.Unlock()

	s.log.Debug().Msg("cache reset")
}

// resolve evaluates a read for q. When dispatch is false the read never
// starts a fetch; it still joins and counts like a normal read.
func (s *Store) resolve(ctx context.Context, q *Query, dispatch bool) Snapshot {
	ttl := q.opts.EffectiveTTL()

	s.mu.Lock()
	now := s.clock.Now()
	var (
		run     func()
		pending []notification
	)
	if !q.opts.Disabled {
		run = s.decideLocked(ctx, q, now, dispatch)
	}
	snap := s.snapshotLocked(q.key, s.entries[q.key], ttl, now)
	if run != nil {
		pending = s.notificationsLocked(q.key, now)
	}
	s.mu.Unlock()

	if run != nil {
		deliver(pending)
		s.dispatch(run)
	}
	return snap
}

// decideLocked applies the read precedence: in flight, fresh, miss, stale.
// The returned function, if any, runs the fetch that was just registered.
func (s *Store) decideLocked(ctx context.Context, q *Query, now time.Time, dispatch bool) func() {
	e := s.entries[q.key]
	stale := isStale(e, q.opts.EffectiveTTL(), now)

	switch {
	case e != nil && e.call != nil:
		q.joined = e.call
		return nil
	case !stale && e.hasData:
		if q.observeLocked(e) {
			s.stats.Hits++
		}
		return nil
	case !dispatch:
		return nil
	case e == nil || !e.hasData:
		if q.opts.Lazy && !q.armed {
			return nil
		}
		s.stats.Misses++
		_, run := s.startLocked(ctx, q, false)
		return run
	case q.opts.StaleWhileRefetch:
		s.stats.StaleHits++
		s.stats.BackgroundRefresh++
		_, run := s.startLocked(ctx, q, true)
		return run
	default:
		if q.opts.Lazy && !q.armed {
			return nil
		}
		s.stats.StaleRefetch++
		_, run := s.startLocked(ctx, q, false)
		return run
	}
}

// refresh starts a forced fetch for q, or joins the one already in flight.
func (s *Store) refresh(ctx context.Context, q *Query, invalidate bool) *Call {
	if q.opts.Disabled {
		return s.settledCall(q.key)
	}

	s.mu.Lock()
	now := s.clock.Now()
	e := s.entryLocked(q.key)
	if invalidate {
		e.updatedAt = time.Time{}
	}
	s.stats.ForcedRefresh++
	q.armed = true

	if c := e.call; c != nil {
		q.joined = c
		s.mu.Unlock()

		s.log.Debug().
			Str("key", q.key).
			Bool("invalidate", invalidate).
			Msg("forced refresh joined in-flight fetch")
		return c
	}

	c, run := s.startLocked(ctx, q, false)
	pending := s.notificationsLocked(q.key, now)
	s.mu.Unlock()

	deliver(pending)
	s.dispatch(run)
	return c
}

// startLocked registers a new in-flight call for q and returns it together
// with the function that performs the fetch. Registering and checking happen
// under the same lock, which is what makes fetching single-flight.
func (s *Store) startLocked(ctx context.Context, q *Query, background bool) (*Call, func()) {
	e := s.entryLocked(q.key)
	c := newCall()
	e.call = c
	e.background = background
	q.joined = c
	s.stats.Inflight++

	key, fetcher := q.key, q.fetcher
	fetchCtx := detach(ctx)

	s.log.Debug().
		Str("key", key).
		Bool("background", background).
		Msg("fetch dispatched")

	return c, func() {
		v, err := safeFetch(fetchCtx, fetcher)
		s.settle(key, e, c, v, err)
	}
}

// settle records the outcome of c. A failure keeps the previous data and
// timestamp so the entry stays stale and eligible for another read.
func (s *Store) settle(key string, e *entry, c *Call, v any, err error) {
	s.mu.Lock()
	now := s.clock.Now()
	if c.counted && s.stats.Inflight > 0 {
		s.stats.Inflight--
	}
	if err != nil {
		s.stats.Errors++
	}

	if s.entries[key] == e && e.call == c {
		if err != nil {
			e.err = err
		} else {
			e.data = v
			e.hasData = true
			e.err = nil
			e.updatedAt = now
			e.settledBy = c
		}
		e.call = nil
		e.background = false
	}

	c.val, c.err = v, err
	close(c.done)
	pending := s.notificationsLocked(key, now)
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("fetch failed")
	} else {
		s.log.Debug().Str("key", key).Msg("fetch settled")
	}

	deliver(pending)
}

// settledCall returns an already completed call carrying the cached data.
func (s *Store) settledCall(key string) *Call {
	c := newCall()
	c.counted = false
	s.mu.Lock()
	if e := s.entries[key]; e != nil {
		c.val = e.data
	}
	s.mu.Unlock()
	close(c.done)
	return c
}

// inflight returns the outstanding call for key, if any.
func (s *Store) inflight(key string) *Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entries[key]; e != nil {
		return e.call
	}
	return nil
}

func (s *Store) entryLocked(key string) *entry {
	e := s.entries[key]
	if e == nil {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

func (s *Store) snapshotLocked(key string, e *entry, ttl time.Duration, now time.Time) Snapshot {
	snap := Snapshot{Key: key, Stale: isStale(e, ttl, now)}
	if e == nil {
		return snap
	}
	snap.Data = e.data
	snap.HasData = e.hasData
	snap.Err = e.err
	snap.UpdatedAt = e.updatedAt
	if e.call != nil {
		snap.Loading = !e.background
		snap.Refreshing = e.background
	}
	return snap
}

func isStale(e *entry, ttl time.Duration, now time.Time) bool {
	return e == nil || now.Sub(e.updatedAt) > ttl
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	return Options{TTL: ttl}.EffectiveTTL()
}

// detach keeps the caller's context values but drops its cancellation:
// in-flight fetches are shared and always run to completion.
func detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

func safeFetch(ctx context.Context, fetch Fetcher) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrFetcherPanic, r)
		}
	}()
	return fetch(ctx)
}
