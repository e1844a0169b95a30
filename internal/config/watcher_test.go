package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path string, ttlMS int) {
	t.Helper()
	body := "backend:\n  base_url: http://localhost:3000\ncache:\n  default_ttl_ms: " +
		strconv.Itoa(ttlMS) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func startWatcher(t *testing.T, path string) (*Watcher, chan *Config) {
	t.Helper()

	w, err := NewWatcher(path, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	w.OnReload(func(cfg *Config) error {
		reloaded <- cfg
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = w.Close()
	})

	// Allow the watcher goroutine to start.
	time.Sleep(50 * time.Millisecond)
	return w, reloaded
}

func TestNewWatcher_ResolvesAbsolutePath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dashcache.yaml")
	writeConfigFile(t, path, 1000)

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	assert.Equal(t, abs, w.Path())
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewWatcher("/nonexistent/dashcache/config.yaml")
	require.Error(t, err)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dashcache.yaml")
	writeConfigFile(t, path, 1000)
	_, reloaded := startWatcher(t, path)

	writeConfigFile(t, path, 2500)

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 2500, cfg.Cache.DefaultTTLMS)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dashcache.yaml")
	writeConfigFile(t, path, 1000)
	_, reloaded := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("cache:\n  default_ttl_ms: -1\n"), 0o600))

	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid config should not be delivered, got %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "dashcache.yaml")
	writeConfigFile(t, path, 1000)
	_, reloaded := startWatcher(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))

	select {
	case <-reloaded:
		t.Fatal("sibling write should not trigger reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_CloseTwice(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dashcache.yaml")
	writeConfigFile(t, path, 1000)

	w, err := NewWatcher(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), ErrWatcherClosed)
}
