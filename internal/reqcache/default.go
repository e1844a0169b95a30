package reqcache

import "sync"

var (
	defaultMu    sync.RWMutex
	defaultStore *Store
)

// Default returns the process-wide store, creating it on first use.
func Default() *Store {
	defaultMu.RLock()
	s := defaultStore
	defaultMu.RUnlock()
	if s != nil {
		return s
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultStore == nil {
		defaultStore = New()
	}
	return defaultStore
}

// SetDefault replaces the process-wide store. The gateway installs the store
// it built from configuration so the package-level helpers act on it.
func SetDefault(s *Store) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultStore = s
}

// ClearCache clears the default store. See Store.Clear.
func ClearCache(prefix string) int {
	return Default().Clear(prefix)
}

// GetStats returns a copy of the default store counters.
func GetStats() Stats {
	return Default().Stats()
}

// ResetStats zeroes the default store counters.
func ResetStats() {
	Default().ResetStats()
}
