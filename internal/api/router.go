// Package api provides the HTTP API for the application.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"norelock.dev/listenify/gateway/internal/api/handlers"
	appMiddleware "norelock.dev/listenify/gateway/internal/api/middleware"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Dependencies are the services the router dispatches to. Limiter and
// Recorder are optional.
type Dependencies struct {
	Caller  handlers.Caller
	Health  handlers.HealthReporter
	Metrics http.Handler
	// WebSocket serves JSON-RPC over /ws
	WebSocket http.HandlerFunc
	// RPC serves JSON-RPC over POST /rpc
	RPC      http.Handler
	Limiter  utils.Limiter
	Recorder appMiddleware.HTTPRecorder
	CORS     *appMiddleware.CORSConfig
}

// Router is the main HTTP router for the API.
type Router struct {
	*chi.Mux
	logger *utils.Logger
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies, logger *utils.Logger) *Router {
	if logger == nil {
		logger = utils.GetLogger()
	}

	r := chi.NewRouter()
	apiLogger := logger.Named("api")

	corsConfig := appMiddleware.DefaultCORSConfig()
	if deps.CORS != nil {
		corsConfig = *deps.CORS
	}

	// Create middleware
	recoveryMiddleware := appMiddleware.NewRecoveryMiddleware(apiLogger)
	loggerMiddleware := appMiddleware.NewLoggerMiddleware(apiLogger)
	corsMiddleware := appMiddleware.NewCORSMiddleware(corsConfig, apiLogger)

	// Create handlers
	mediaHandler := handlers.NewMediaHandler(deps.Caller, apiLogger)
	healthHandler := handlers.NewHealthHandler(deps.Health, apiLogger)

	// Apply global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoveryMiddleware.Recovery)
	r.Use(loggerMiddleware.Logger)
	if deps.Recorder != nil {
		r.Use(appMiddleware.Metrics(deps.Recorder))
	}
	r.Use(corsMiddleware.CORS)
	r.Use(middleware.Heartbeat("/ping"))

	// Operational routes, never rate limited
	r.Get("/health", healthHandler.Check)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// Caller facing routes
	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(utils.RateLimitMiddleware(deps.Limiter, utils.DefaultKeyFunc, apiLogger))
		}

		r.Route("/media", func(r chi.Router) {
			r.Get("/search", mediaHandler.Search)
			r.Get("/stream/{id}", mediaHandler.Stream)
			r.Get("/stream/{id}/redirect", mediaHandler.Redirect)
			r.Get("/channel", mediaHandler.Channel)
		})

		if deps.RPC != nil {
			r.Method(http.MethodPost, "/rpc", deps.RPC)
		}
		if deps.WebSocket != nil {
			r.Get("/ws", deps.WebSocket)
		}
	})

	return &Router{
		Mux:    r,
		logger: apiLogger,
	}
}
