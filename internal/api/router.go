package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries everything the HTTP router needs, injected so tests
// can swap in fixtures and raise rate limits.
type RouterConfig struct {
	// Snapshots is the world view source (required).
	Snapshots SnapshotSource

	// Renderer serves /api/debug/frame when set.
	Renderer FrameRenderer

	// RateLimiter is an optional pre-built limiter; when nil one is created
	// from RateLimitConfig (or the defaults).
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the default allowlist.
	CORSOrigins []string

	// DisableLogging turns off the request logger, for benchmarks.
	DisableLogging bool
}

// NewRouter constructs the HTTP router. It is pure: no goroutines, no
// listeners, safe to wrap in httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS so floods are shed early.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		snapshots: cfg.Snapshots,
		renderer:  cfg.Renderer,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/players", h.handleGetPlayers)
		r.Get("/skills", h.handleGetSkills)
		r.Get("/match", h.handleGetMatch)
		r.Get("/debug/frame", h.handleDebugFrame)
	})
	r.Get("/healthz", h.handleHealth)

	return r
}
