package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codelab-portal/internal/config"
	"github.com/noah-isme/codelab-portal/internal/handler"
	"github.com/noah-isme/codelab-portal/internal/middleware"
	"github.com/noah-isme/codelab-portal/internal/observability"
	"github.com/noah-isme/codelab-portal/internal/session"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler           *handler.AuthHandler
	LearningHandler       *handler.LearningHandler
	WorkspaceHandler      *handler.WorkspaceHandler
	AdminDashboardHandler *handler.AdminDashboardHandler
	AdminClassHandler     *handler.AdminClassHandler
	AdminExerciseHandler  *handler.AdminExerciseHandler
	AdminActivityHandler  *handler.AdminActivityHandler
	SessionMiddleware     fiber.Handler
	RunLimiter            fiber.Handler
	HealthProbes          []handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health, metrics and sign-in
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))
	api.Get("/metrics", observability.MetricsHandler())

	sessionMiddleware := deps.SessionMiddleware
	if sessionMiddleware == nil {
		sessionMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(auth.Group("", sessionMiddleware))
	}

	// Student area
	student := app.Group("/api/v2/student", sessionMiddleware, middleware.RequireRole(session.RoleStudent))
	if deps.LearningHandler != nil {
		deps.LearningHandler.Register(student)
	}
	if deps.WorkspaceHandler != nil {
		if deps.RunLimiter != nil {
			deps.WorkspaceHandler.Register(student, deps.RunLimiter)
		} else {
			deps.WorkspaceHandler.Register(student)
		}
	}

	// Teacher area
	admin := app.Group("/api/admin", sessionMiddleware, middleware.RequireRole(session.RoleTeacher))
	if deps.AdminDashboardHandler != nil {
		deps.AdminDashboardHandler.Register(admin)
	}
	if deps.AdminClassHandler != nil {
		deps.AdminClassHandler.Register(admin)
	}
	if deps.AdminExerciseHandler != nil {
		deps.AdminExerciseHandler.Register(admin)
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin)
	}
}
