package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/dashcache/internal/reqcache"
)

// StoreService wraps the request cache.
type StoreService struct {
	Store *reqcache.Store
}

// NewStore creates the request cache and installs it as the process default,
// so package-level ClearCache and GetStats act on the served cache.
func NewStore(i do.Injector) (*StoreService, error) {
	logSvc := do.MustInvoke[*LoggerService](i)

	store := reqcache.New(reqcache.WithLogger(logSvc.Logger.With().Str("component", "reqcache").Logger()))
	reqcache.SetDefault(store)

	return &StoreService{Store: store}, nil
}
