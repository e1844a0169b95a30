package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntime_StoreSwapsConfig(t *testing.T) {
	t.Parallel()

	first := &Config{Server: ServerConfig{Listen: "127.0.0.1:1"}}
	second := &Config{Server: ServerConfig{Listen: "127.0.0.1:2"}}

	rt := NewRuntime(first)
	assert.Same(t, first, rt.Get())

	rt.Store(second)
	assert.Same(t, second, rt.Get())
}

func TestRuntime_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(&Config{})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			rt.Store(&Config{Cache: CacheConfig{DefaultTTLMS: i}})
		}()
		go func() {
			defer wg.Done()
			assert.NotNil(t, rt.Get())
		}()
	}
	wg.Wait()
}
