package reqcache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/omarluq/dashcache/internal/reqcache"
)

// manualClock is a Clock that only moves when told to.
type manualClock struct {
	now time.Time
	mu  sync.Mutex
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
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

// queueDispatcher holds fetches until RunAll is called.
type queueDispatcher struct {
	queue []func()
	mu    sync.Mutex
}

func (d *queueDispatcher) Dispatch(run func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, run)
}

func (d *queueDispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// RunAll runs every queued fetch and returns how many ran.
func (d *queueDispatcher) RunAll() int {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, run := range queue {
		run()
	}
	return len(queue)
}

type payload struct {
	V int
}

// seqFetcher returns payload{V: n} on its n-th call, or failWith when set.
type seqFetcher struct {
	failWith atomic.Pointer[error]
	calls    atomic.Int32
}

func (f *seqFetcher) Fetch(_ context.Context) (any, error) {
	n := f.calls.Add(1)
	if errp := f.failWith.Load(); errp != nil {
		return nil, *errp
	}
	return payload{V: int(n)}, nil
}

func (f *seqFetcher) FailWith(err error) {
	f.failWith.Store(&err)
}

func (f *seqFetcher) Calls() int {
	return int(f.calls.Load())
}

var errBackend = errors.New("backend unavailable")

type testStore struct {
	store *reqcache.Store
	clock *manualClock
	queue *queueDispatcher
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	clock := newManualClock()
	queue := &queueDispatcher{}
	return &testStore{
		store: reqcache.New(reqcache.WithClock(clock), reqcache.WithDispatcher(queue.Dispatch)),
		clock: clock,
		queue: queue,
	}
}

func dataV(t *testing.T, snap reqcache.Snapshot) int {
	t.Helper()
	p, err := reqcache.Value[payload](snap)
	if err != nil {
		t.Fatalf("snapshot of %q has no payload: %v", snap.Key, err)
	}
	return p.V
}
