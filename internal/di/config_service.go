package di

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/dashcache/internal/config"
)

// ConfigService holds the live configuration. Reads go through the atomic
// Runtime, so in-flight requests keep the config they started with.
type ConfigService struct {
	runtime   *config.Runtime
	watcher   *config.Watcher
	path      string
	callbacks []config.ReloadCallback
	mu        sync.Mutex
}

// Get returns the current configuration.
func (c *ConfigService) Get() *config.Config {
	return c.runtime.Get()
}

// Path returns the config file path.
func (c *ConfigService) Path() string {
	return c.path
}

// OnReload registers fn to run after each successful reload, once the new
// config is visible through Get.
func (c *ConfigService) OnReload(fn config.ReloadCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

// Apply stores cfg and runs the reload callbacks. The watcher calls it on
// file changes.
func (c *ConfigService) Apply(cfg *config.Config) error {
	c.runtime.Store(cfg)

	c.mu.Lock()
	callbacks := append([]config.ReloadCallback(nil), c.callbacks...)
	c.mu.Unlock()

	for _, fn := range callbacks {
		if err := fn(cfg); err != nil {
			return err
		}
	}
	log.Info().Str("path", c.path).Msg("config hot-reloaded successfully")
	return nil
}

// StartWatching begins watching the config file until ctx is canceled.
// Call after the container is fully initialized.
func (c *ConfigService) StartWatching(ctx context.Context) {
	if c.watcher == nil {
		return
	}
	c.watcher.OnReload(c.Apply)

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Info().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner for graceful watcher cleanup.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads and validates the config file and prepares its watcher.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	cfg, err := config.LoadValidated(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	svc := &ConfigService{
		runtime: config.NewRuntime(cfg),
		path:    path,
	}

	// Hot reload is optional; a watcher failure only disables it.
	watcher, err := config.NewWatcher(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
	} else {
		svc.watcher = watcher
	}

	return svc, nil
}

var _ config.RuntimeConfig = (*ConfigService)(nil)
