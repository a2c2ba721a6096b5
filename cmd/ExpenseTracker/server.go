package main

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/familyspend/ExpenseTracker/internal/auth"
	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/finance/interfaces"
	"github.com/familyspend/ExpenseTracker/internal/log"
	"github.com/familyspend/ExpenseTracker/internal/response"
	"github.com/familyspend/ExpenseTracker/internal/user"
)

type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Server struct {
	router            *http.ServeMux
	logger            *log.Logger
	health            HealthChecker
	gate              *auth.Gate
	authHandler       *auth.Handler
	categoryHandler   *interfaces.CategoryHandler
	expenseHandler    *interfaces.ExpenseHandler
	statisticsHandler *interfaces.StatisticsHandler
}

func NewServer(
	logger *log.Logger,
	health HealthChecker,
	gate *auth.Gate,
	authHandler *auth.Handler,
	categoryHandler *interfaces.CategoryHandler,
	expenseHandler *interfaces.ExpenseHandler,
	statisticsHandler *interfaces.StatisticsHandler,
) *Server {
	return &Server{
		router:            http.NewServeMux(),
		logger:            logger,
		health:            health,
		gate:              gate,
		authHandler:       authHandler,
		categoryHandler:   categoryHandler,
		expenseHandler:    expenseHandler,
		statisticsHandler: statisticsHandler,
	}
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, http.StatusOK, map[string]string{"status": "ready"}, "")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.health.Health(r.Context())
	if stats["status"] != "up" {
		s.logger.WarnContext(r.Context(), "health check failed", log.FieldError, stats["error"])
		response.JSON(w, http.StatusServiceUnavailable, response.Envelope{
			Success: false,
			Error:   appErrors.PublicMessage(appErrors.ErrUnavailable),
			Data:    map[string]string{"status": stats["status"]},
		})
		return
	}
	response.Success(w, http.StatusOK, stats, "")
}

func (s *Server) RegisterRoutes() {
	protect := func(h http.HandlerFunc) http.Handler {
		return s.gate.RequireSession(h)
	}

	// Public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("POST /api/auth/register", http.HandlerFunc(s.authHandler.HandleRegister))
	publicRoutes.Handle("POST /api/auth/login", http.HandlerFunc(s.authHandler.HandleLogin))
	publicRoutes.Handle("POST /api/auth/logout", http.HandlerFunc(s.authHandler.HandleLogout))
	publicRoutes.Handle("GET /api/auth/session", http.HandlerFunc(s.authHandler.HandleSession))
	publicRoutes.Handle("POST /api/auth/forgot-password", http.HandlerFunc(s.authHandler.HandleForgotPassword))
	publicRoutes.Handle("POST /api/auth/reset-password", http.HandlerFunc(s.authHandler.HandleResetPassword))
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))
	publicRoutes.Handle("GET /api/health", http.HandlerFunc(s.handleHealth))
	publicRoutes.Handle("/", http.HandlerFunc(response.NotFound))

	// Protected routes
	protectedRoutes := http.NewServeMux()
	protectedRoutes.Handle("GET /api/auth/me", protect(s.authHandler.HandleMe))
	protectedRoutes.Handle("PUT /api/auth/profile", protect(s.authHandler.HandleUpdateProfile))
	protectedRoutes.Handle("GET /api/auth/access-logs", protect(s.authHandler.HandleOwnAccessLogs))

	protectedRoutes.Handle("GET /api/categories", protect(s.categoryHandler.ListCategories))
	protectedRoutes.Handle("POST /api/categories", protect(s.categoryHandler.CreateCategory))
	protectedRoutes.Handle("GET /api/categories/{id}", protect(s.categoryHandler.GetCategory))
	protectedRoutes.Handle("PUT /api/categories/{id}", protect(s.categoryHandler.UpdateCategory))
	protectedRoutes.Handle("DELETE /api/categories/{id}", protect(s.categoryHandler.DeleteCategory))

	protectedRoutes.Handle("GET /api/expenses", protect(s.expenseHandler.ListExpenses))
	protectedRoutes.Handle("POST /api/expenses", protect(s.expenseHandler.CreateExpense))
	protectedRoutes.Handle("GET /api/expenses/export", protect(s.expenseHandler.Export))
	protectedRoutes.Handle("GET /api/expenses/{id}", protect(s.expenseHandler.GetExpense))
	protectedRoutes.Handle("PUT /api/expenses/{id}", protect(s.expenseHandler.UpdateExpense))
	protectedRoutes.Handle("DELETE /api/expenses/{id}", protect(s.expenseHandler.DeleteExpense))

	protectedRoutes.Handle("GET /api/statistics", protect(s.statisticsHandler.Summary))
	protectedRoutes.Handle("GET /api/statistics/categories", protect(s.statisticsHandler.ByCategory))
	protectedRoutes.Handle("GET /api/statistics/monthly", protect(s.statisticsHandler.Monthly))
	protectedRoutes.Handle("/", http.HandlerFunc(response.NotFound))

	// Admin routes
	adminRoutes := http.NewServeMux()
	adminRoutes.Handle("GET /api/admin/access-logs",
		s.gate.RequireRole(user.RoleAdmin)(http.HandlerFunc(s.authHandler.HandleAdminAccessLogs)))
	adminRoutes.Handle("/", http.HandlerFunc(response.NotFound))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", publicRoutes)
	for _, prefix := range []string{"/api/auth/me", "/api/auth/profile", "/api/auth/access-logs", "/api/categories", "/api/expenses", "/api/statistics"} {
		mainRouter.Handle(prefix, protectedRoutes)
		mainRouter.Handle(prefix+"/", protectedRoutes)
	}
	mainRouter.Handle("/api/admin/", adminRoutes)
	mainRouter.Handle("/", http.HandlerFunc(response.NotFound))

	s.router = mainRouter
}

// Handler returns the router wrapped in the request middlewares.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = recoverPanics(handler)
	handler = securityHeaders(handler)
	handler = log.AccessLog(handler)
	handler = log.RequestID(handler)
	return log.Middleware(s.logger)(handler)
}

// recoverPanics turns a handler panic into a 500 envelope.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			log.FromContext(r.Context()).ErrorContext(r.Context(), "panic while handling request",
				log.FieldPath, r.URL.Path,
				log.FieldError, fmt.Sprint(p),
				"stack", string(debug.Stack()))
			response.Error(w, http.StatusInternalServerError, "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
