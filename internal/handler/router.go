package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
)

// HealthChecker reports readiness and any per-dependency failures. A
// ready service may still list non-critical failures.
type HealthChecker interface {
	IsHealthy(ctx context.Context) (bool, map[string]error)
}

// RouterDeps collects everything NewRouter mounts. Limiter may be nil.
type RouterDeps struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Products *ProductHandler

	Authenticator Authenticator
	Limiter       Limiter
	Health        HealthChecker
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(cfg *config.Config, deps RouterDeps, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if cfg.Server.EnableTLS {
		router.Use(requireHTTPS)
	}

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(ClientIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := responder{logger: logger}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "vsgifts-api"})
	})

	router.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready, failures := deps.Health.IsHealthy(r.Context())
		var details any
		if len(failures) > 0 {
			failed := make(map[string]string, len(failures))
			for name, err := range failures {
				failed[name] = err.Error()
			}
			details = failed
		}
		if ready {
			h.respondWithJSON(w, http.StatusOK, successResponse(details, "ready"))
			return
		}
		h.respondWithJSON(w, http.StatusServiceUnavailable, Response{
			Success: false,
			Data:    details,
			Error:   "dependencies unhealthy",
			Message: "not ready",
		})
	})

	protect := Protect(deps.Authenticator, logger)
	admin := Admin(logger)
	limit := RateLimit(deps.Limiter, cfg.RateLimit, logger)

	router.Route("/api/v1", func(r chi.Router) {
		deps.Auth.RegisterRoutes(r, limit)
		deps.Users.RegisterRoutes(r, protect)
		deps.Products.RegisterRoutes(r, protect, admin)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.respondWithJSON(w, http.StatusNotFound, Response{Success: false, Error: "endpoint not found"})
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.respondWithJSON(w, http.StatusMethodNotAllowed, Response{Success: false, Error: "method not allowed"})
	})

	return router
}
