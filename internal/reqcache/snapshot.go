package reqcache

import "time"

// Snapshot is the state of a key as seen by one read.
type Snapshot struct {
	// UpdatedAt is the time of the last successful fetch, zero if none.
	UpdatedAt time.Time
	// Data is the last successfully fetched value. Valid when HasData is set.
	Data any
	// Err is the error of the last fetch, cleared by the next success.
	Err error
	Key string
	// HasData reports whether any fetch for the key ever succeeded.
	HasData bool
	// Loading is set while a foreground fetch is outstanding.
	Loading bool
	// Stale is set when the data is older than the read's TTL, or missing.
	Stale bool
	// Refreshing is set while a background refresh is outstanding.
	Refreshing bool
}

// Age returns how old the data is at now, or zero without data.
func (s Snapshot) Age(now time.Time) time.Duration {
	if !s.HasData || s.UpdatedAt.IsZero() {
		return 0
	}
	return now.Sub(s.UpdatedAt)
}

// Pending reports whether any fetch, foreground or background, is outstanding.
func (s Snapshot) Pending() bool {
	return s.Loading || s.Refreshing
}
