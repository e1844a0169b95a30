package reqcache

import (
	"context"
	"time"
)

// Query is one consumer of a key: a dashboard widget, an HTTP request, a
// background job. Its fields are guarded by the store lock.
type Query struct {
	countedAt time.Time
	store     *Store
	fetcher   Fetcher
	joined    *Call
	key       string
	opts      Options
	armed     bool
}

// Key returns the cache key of the query.
func (q *Query) Key() string {
	return q.key
}

// Options returns the read options of the query.
func (q *Query) Options() Options {
	return q.opts
}

// Resolve reads the key, starting a fetch when the entry is missing or stale
// and none is in flight. It never blocks on the fetch.
func (q *Query) Resolve(ctx context.Context) Snapshot {
	return q.store.resolve(ctx, q, true)
}

// Refresh forces a fetch regardless of freshness. If a fetch is already in
// flight for the key, Refresh joins it. Disabled queries return an already
// settled call holding the cached data.
func (q *Query) Refresh(ctx context.Context) *Call {
	return q.store.refresh(ctx, q, false)
}

// Invalidate marks the entry stale and then behaves like Refresh.
func (q *Query) Invalidate(ctx context.Context) *Call {
	return q.store.refresh(ctx, q, true)
}

// Wait resolves the key and blocks while a foreground fetch is outstanding.
// Stale data served under stale-while-refetch is returned immediately.
// The only error is ctx.Err(); fetch failures are reported in Snapshot.Err.
func (q *Query) Wait(ctx context.Context) (Snapshot, error) {
	snap := q.Resolve(ctx)
	return q.await(ctx, snap, func(s Snapshot) bool { return s.Loading })
}

// Settled blocks until no fetch of any kind is outstanding for the key,
// without starting one.
func (q *Query) Settled(ctx context.Context) (Snapshot, error) {
	snap := q.store.resolve(ctx, q, false)
	return q.await(ctx, snap, Snapshot.Pending)
}

// Subscribe registers fn for every change of the key, evaluated with the
// query's TTL.
func (q *Query) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return q.store.Subscribe(q.key, q.opts.EffectiveTTL(), fn)
}

func (q *Query) await(ctx context.Context, snap Snapshot, busy func(Snapshot) bool) (Snapshot, error) {
	for busy(snap) {
		if c := q.store.inflight(q.key); c != nil {
			select {
			case <-c.Done():
			case <-ctx.Done():
				return snap, ctx.Err()
			}
		}
		snap = q.store.resolve(ctx, q, false)
	}
	return snap, nil
}

// observeLocked reports whether reading e counts as a hit for this query:
// the settled timestamp must be new to the query and must not come from a
// fetch the query itself started or joined.
func (q *Query) observeLocked(e *entry) bool {
	if e.updatedAt.Equal(q.countedAt) {
		return false
	}
	q.countedAt = e.updatedAt
	return e.settledBy == nil || e.settledBy != q.joined
}
