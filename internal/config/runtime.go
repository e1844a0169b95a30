package config

import "sync/atomic"

// Runtime provides atomic access to configuration for hot-reload support.
// In-flight requests keep the config they loaded; new requests see the
// most recently stored one.
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a new Runtime with the given initial configuration.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store swaps in cfg. Called by the watcher after a successful reload.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}

var _ RuntimeConfig = (*Runtime)(nil)
