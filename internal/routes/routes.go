package routes

import (
	"net/http"

	"github.com/foodrescue/foodrescue/internal/apierror"
	"github.com/foodrescue/foodrescue/internal/app"
	"github.com/foodrescue/foodrescue/internal/handler"
	"github.com/foodrescue/foodrescue/internal/middleware"
	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService)
	posts := handler.NewPostHandler(app.PostService, app.ClaimService)
	stats := handler.NewStatsHandler(app.StatsService, app.AnalyticsService)
	digest := handler.NewDigestHandler(app.Scheduler)
	notifications := handler.NewNotificationsHandler(app.Relay, app.Cfg.AppURL)
	health := handler.NewHealthHandler(app.DB)

	mux := http.NewServeMux()

	// ============================================================================
	// OPERATIONS
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	// ============================================================================
	// AUTH
	// ============================================================================

	authLimiter := middleware.AuthRateLimiter()

	mux.HandleFunc("GET /api/auth/csrf", auth.CSRF)
	mux.HandleFunc("POST /api/auth/register", middleware.RateLimit("register", authLimiter)(middleware.RequireGuest(middleware.RequireCSRF(auth.Register))))
	mux.HandleFunc("POST /api/auth/login", middleware.RateLimit("login", authLimiter)(middleware.RequireGuest(middleware.RequireCSRF(auth.Login))))
	mux.HandleFunc("POST /api/auth/logout", auth.Logout)
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(auth.Me))

	// ============================================================================
	// POSTS
	// ============================================================================

	mux.HandleFunc("GET /api/posts", posts.List)
	mux.HandleFunc("POST /api/posts", middleware.RequireRole(model.RoleRestaurant, posts.Create))
	mux.HandleFunc("GET /api/posts/restaurant", middleware.RequireRole(model.RoleRestaurant, posts.Restaurant))
	mux.HandleFunc("GET /api/posts/shelter", middleware.RequireRole(model.RoleShelter, posts.Shelter))
	mux.HandleFunc("POST /api/posts/{id}/photo", middleware.RequireRole(model.RoleRestaurant, posts.UploadPhoto))
	// Role is checked by the claim workflow itself so the order of its checks holds
	mux.HandleFunc("POST /api/posts/{id}/claim", middleware.RateLimit("claim", middleware.ClaimRateLimiter())(posts.Claim))

	// ============================================================================
	// STATS & DIGEST
	// ============================================================================

	mux.HandleFunc("GET /api/metrics", middleware.RequireAuth(stats.Personal))
	mux.HandleFunc("GET /api/analytics", middleware.RequireAuth(stats.Analytics))
	mux.HandleFunc("POST /api/digest", middleware.RequireAuth(middleware.RateLimit("digest", middleware.DigestRateLimiter())(digest.Trigger)))

	// ============================================================================
	// REAL-TIME
	// ============================================================================

	mux.HandleFunc("GET /api/notifications/ws", middleware.RequireRole(model.RoleRestaurant, notifications.Stream))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", func(w http.ResponseWriter, r *http.Request) {
		apierror.NotFound(w, "route not found")
	})

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.Config(app.Cfg), // Config must be first (needed by SecurityHeaders and CSRF cookie flags)
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		middleware.Metrics,
		middleware.AuthMiddleware(app.AuthService),
		middleware.CSRFProtection, // needs the session resolved by AuthMiddleware
	)

	return handler
}
