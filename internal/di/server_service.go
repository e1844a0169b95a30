package di

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/dashcache/internal/gateway"
)

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *gateway.Server
}

// NewHTTPServer creates the HTTP server. Listen address and h2c are read once.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	handlerSvc := do.MustInvoke[*HandlerService](i)

	cfg := cfgSvc.Get()
	server := gateway.NewServer(cfg.Server.GetListen(), handlerSvc.Handler, cfg.Server.EnableHTTP2)
	return &ServerService{Server: server}, nil
}

// Shutdown implements do.Shutdowner for graceful server shutdown.
func (s *ServerService) Shutdown() error {
	if s.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Server.Shutdown(ctx)
}
