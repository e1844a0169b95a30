package di

import (
	"net/http"

	"github.com/samber/do/v2"

	"github.com/omarluq/dashcache/internal/gateway"
)

// HandlerService wraps the HTTP handler.
type HandlerService struct {
	Handler http.Handler
}

// NewHandler creates the gateway handler with all middleware.
func NewHandler(i do.Injector) (*HandlerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	storeSvc := do.MustInvoke[*StoreService](i)
	backendSvc := do.MustInvoke[*BackendService](i)

	h := gateway.NewHandler(storeSvc.Store, backendSvc.Client, cfgSvc)
	return &HandlerService{Handler: h.Routes()}, nil
}
