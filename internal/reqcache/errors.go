package reqcache

import "errors"

// Standard errors for request cache operations.
//
// Fetcher failures are never returned from the read path; they surface
// through Snapshot.Err. These sentinels cover the remaining cases:
//
//	v, err := reqcache.Get[Offer](ctx, store, key, fetch, opts)
//	if errors.Is(err, reqcache.ErrTypeMismatch) {
//		// key shared by call sites that disagree on the value type
//	}
var (
	// ErrNoData is returned by blocking reads that finished without any data,
	// which happens when the query is disabled and nothing was cached yet.
	ErrNoData = errors.New("reqcache: no data available")

	// ErrTypeMismatch is returned by typed reads when the cached value is not
	// of the requested type.
	ErrTypeMismatch = errors.New("reqcache: cached value has unexpected type")

	// ErrFetcherPanic wraps a panic recovered from a fetcher.
	ErrFetcherPanic = errors.New("reqcache: fetcher panicked")
)
