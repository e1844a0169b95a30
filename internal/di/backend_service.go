package di

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/dashcache/internal/config"
	"github.com/omarluq/dashcache/internal/fetch"
)

// BackendService wraps the backend client.
type BackendService struct {
	Client *fetch.Client
}

// NewBackend creates the backend client. The rate limit follows config
// reloads; the base URL and breaker settings need a restart.
func NewBackend(i do.Injector) (*BackendService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	do.MustInvoke[*LoggerService](i)

	client, err := fetch.NewClient(cfgSvc.Get().Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	cfgSvc.OnReload(func(cfg *config.Config) error {
		if rpm := cfg.Backend.RateLimitRPM; rpm != client.Limiter().RPM() {
			client.Limiter().SetRPM(rpm)
			log.Info().Int("rate_limit_rpm", rpm).Msg("backend rate limit updated")
		}
		return nil
	})

	return &BackendService{Client: client}, nil
}
