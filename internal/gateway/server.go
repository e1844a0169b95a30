// Package gateway serves the dashboard API through the request cache.
package gateway

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server wraps http.Server with gateway timeouts.
type Server struct {
	httpServer *http.Server
	addr       string
}

// NewServer creates a Server. Responses are small JSON documents, but a
// foreground miss may wait on a slow backend, so WriteTimeout is kept above
// the backend request timeout.
//
// If enableHTTP2 is true, HTTP/2 cleartext (h2c) is accepted on the plain listener.
func NewServer(addr string, handler http.Handler, enableHTTP2 bool) *Server {
	finalHandler := handler
	if enableHTTP2 {
		finalHandler = h2c.NewHandler(handler, &http2.Server{})
	}

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           finalHandler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      90 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ListenAndServe starts the server (blocks).
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on l (blocks).
func (s *Server) Serve(l net.Listener) error {
	return s.httpServer.Serve(l)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
