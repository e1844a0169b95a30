package di

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/dashcache/internal/fetch"
	"github.com/omarluq/dashcache/internal/gateway"
	"github.com/omarluq/dashcache/internal/reqcache"
)

// LoggerService wraps the zerolog logger for DI.
type LoggerService struct {
	Logger *zerolog.Logger
}

// NewLogger creates the logger from configuration and hands it to the
// packages that log on their own.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, err := gateway.NewLogger(cfgSvc.Get().Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	reqcache.SetLogger(&logger)
	fetch.SetLogger(&logger)

	return &LoggerService{Logger: &logger}, nil
}
