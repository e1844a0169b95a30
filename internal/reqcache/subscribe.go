package reqcache

import (
	"time"

	"github.com/samber/ro"
)

// Subscribe registers fn to be called with a fresh snapshot of key whenever a
// fetch for it starts or settles, or the key is cleared. Staleness in the
// delivered snapshots is evaluated with ttl (DefaultTTL when zero).
//
// fn runs on the goroutine that caused the change, outside the store lock,
// so it may call back into the store.
func (s *Store) Subscribe(key string, ttl time.Duration, fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	ls := s.listeners[key]
	if ls == nil {
		ls = make(map[uint64]listener)
		s.listeners[key] = ls
	}
	ls[id] = listener{fn: fn, ttl: ttlOrDefault(ttl)}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ls := s.listeners[key]; ls != nil {
			delete(ls, id)
			if len(ls) == 0 {
				delete(s.listeners, key)
			}
		}
	}
}

// Watch returns an Observable emitting the current snapshot of key on
// subscription and then every change. It never completes on its own;
// unsubscribing removes the listener.
//
// Example:
//
//	sub := store.Watch("dash_links_count", 30*time.Second).Subscribe(
//		ro.OnNext(func(snap reqcache.Snapshot) { render(snap) }),
//	)
//	defer sub.Unsubscribe()
func (s *Store) Watch(key string, ttl time.Duration) ro.Observable[Snapshot] {
	return ro.NewObservable(func(observer ro.Observer[Snapshot]) ro.Teardown {
		unsubscribe := s.Subscribe(key, ttl, observer.Next)
		observer.Next(s.Peek(key, ttl))
		return unsubscribe
	})
}

// notificationsLocked builds one snapshot per listener of key.
func (s *Store) notificationsLocked(key string, now time.Time) []notification {
	ls := s.listeners[key]
	if len(ls) == 0 {
		return nil
	}
	e := s.entries[key]
	out := make([]notification, 0, len(ls))
	for _, l := range ls {
		out = append(out, notification{fn: l.fn, snap: s.snapshotLocked(key, e, l.ttl, now)})
	}
	return out
}

func deliver(pending []notification) {
	for _, n := range pending {
		n.fn(n.snap)
	}
}
