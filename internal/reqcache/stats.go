package reqcache

// Stats holds the process-wide instrumentation counters of a Store.
// Stats values returned by Store.Stats are copies; mutating them has no effect.
type Stats struct {
	// Hits counts fresh reads served from cache, once per settled timestamp
	// per consumer.
	Hits uint64 `json:"hits"`

	// StaleHits counts stale data served immediately under stale-while-refetch.
	StaleHits uint64 `json:"stale_hits"`

	// Misses counts reads that found no data and dispatched a fetch.
	Misses uint64 `json:"misses"`

	// ForcedRefresh counts explicit Refresh and Invalidate calls.
	ForcedRefresh uint64 `json:"forced_refresh"`

	// StaleRefetch counts stale reads that refetched in the foreground.
	StaleRefetch uint64 `json:"stale_refetch"`

	// Errors counts failed fetches.
	Errors uint64 `json:"errors"`

	// Inflight is the number of fetches currently outstanding.
	Inflight int64 `json:"inflight"`

	// BackgroundRefresh counts background fetches started by stale-while-refetch.
	BackgroundRefresh uint64 `json:"background_refresh"`
}

// HitRatio returns the share of reads served from cache without waiting,
// fresh or stale, over all reads that were counted.
func (s Stats) HitRatio() float64 {
	served := s.Hits + s.StaleHits
	total := served + s.Misses + s.StaleRefetch
	if total == 0 {
		return 0
	}
	return float64(served) / float64(total)
}
