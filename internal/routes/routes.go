package routes

import (
	"net/http"

	"github.com/venus-savings/venus/internal/app"
	"github.com/venus-savings/venus/internal/handler"
	"github.com/venus-savings/venus/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.EmailService)
	goal := handler.NewGoalHandler(app.GoalService, app.CheckService)
	insight := handler.NewInsightHandler(app.InsightService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /api/health", handler.Health)
	mux.Handle("GET /metrics", app.Metrics.Handler())

	// Insights
	mux.HandleFunc("GET /api/insights", insight.List)
	mux.HandleFunc("GET /api/insights/tip", insight.Tip)

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("POST /api/auth/register", rateLimiter(auth.Register))
	mux.HandleFunc("POST /api/auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /api/auth/logout", auth.Logout)

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(auth.Me))

	// Goals
	mux.HandleFunc("GET /api/goals", middleware.RequireAuth(goal.List))
	mux.HandleFunc("GET /api/goals/summary", middleware.RequireAuth(goal.Summary))
	mux.HandleFunc("POST /api/goals", middleware.RequireAuth(goal.Create))
	mux.HandleFunc("PATCH /api/goals/{id}", middleware.RequireAuth(goal.Patch))
	mux.HandleFunc("DELETE /api/goals/{id}", middleware.RequireAuth(goal.Delete))
	mux.HandleFunc("POST /api/goals/{id}/checks", middleware.RequireAuth(goal.UploadCheck))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/api/", handler.NotFound)

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.Recover,
		middleware.RequestID,
		middleware.RequestLogging,
		middleware.Metrics(app.Metrics),
		middleware.CORS(app.Cfg.ClientURL),
		middleware.AuthMiddleware(app.AuthService),
	)

	return handler
}
