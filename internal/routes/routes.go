package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ymori/authkit/internal/database"
	"github.com/ymori/authkit/internal/handlers"
	"github.com/ymori/authkit/internal/metrics"
	"github.com/ymori/authkit/internal/middleware"
	pkghttp "github.com/ymori/authkit/pkg/http"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	db *database.DB,
	gatherer prometheus.Gatherer,
) {
	// Coarse per-IP throttle in front of the sign-in flow's own limiter
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/signin", authHandler.SignIn)

	router.Post("/users", userHandler.Register)
	router.Get("/users/{id}", userHandler.GetUser)
	router.Patch("/users/{id}", userHandler.UpdateProfile)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			pkghttp.WriteError(w, http.StatusServiceUnavailable, pkghttp.CodeInternal, "database unavailable")
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
}
