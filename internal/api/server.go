package api

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// Server combines the HTTP router with the WebSocket hub. Construction is
// side-effect free; Start is the only method that opens listeners.
type Server struct {
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// ServerConfig wires a full server.
type ServerConfig struct {
	Engine    EngineInterface
	Snapshots SnapshotSource
	Renderer  FrameRenderer
	Verifier  *TokenVerifier
}

// NewServer builds the server: REST routes from the router factory plus the
// WebSocket endpoint bound to the hub.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		hub:         NewHub(cfg.Engine, cfg.Verifier),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}
	s.router = NewRouter(RouterConfig{
		Snapshots:   cfg.Snapshots,
		Renderer:    cfg.Renderer,
		RateLimiter: s.rateLimiter,
	})
	s.router.Get("/ws", s.hub.HandleWebSocket)
	return s
}

// Start serves HTTP on addr, blocking until shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	log.Printf("🌐 API server starting on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Shutdown drains the HTTP server and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub, which doubles as the simulation's Emitter.
func (s *Server) Hub() *Hub {
	return s.hub
}
