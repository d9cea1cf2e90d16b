// Package api assembles the HTTP router.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/api/handlers"
	"github.com/Sanyam33/GSC-Verifier/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// requestTimeout caps a whole request, outbound Google calls included.
const requestTimeout = 30 * time.Second

// RouterConfig is everything the router needs.
type RouterConfig struct {
	Verifier    handlers.Verifier
	Ping        func(ctx context.Context) error
	APIKey      string
	CORSOrigins []string
	Limiter     *middleware.RateLimiter
}

// NewRouter builds the routes under /api/v1/gsc plus the root, health and
// version endpoints. The callback stays open because Google's redirect
// carries no API key.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", handlers.RootHandler())
	r.Get("/health", handlers.HealthHandler(cfg.Ping))

	r.Route("/api/v1/gsc", func(r chi.Router) {
		r.Get("/callback", handlers.CallbackHandler(cfg.Verifier))
		r.Get("/version", handlers.VersionHandler())

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(cfg.APIKey))
			r.With(middleware.RateLimit(cfg.Limiter)).Post("/request-verification", handlers.RequestVerificationHandler(cfg.Verifier))
			r.Get("/verify-result", handlers.VerifyResultHandler(cfg.Verifier))
			r.Get("/metrics", handlers.MetricsHandler(cfg.Verifier))
		})
	})

	return r
}
