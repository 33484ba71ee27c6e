package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/service"
	"github.com/noah-isme/codelab-portal/internal/utils"
)

// AdminDashboardHandler exposes the teacher dashboard.
type AdminDashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewAdminDashboardHandler constructs the dashboard handler.
func NewAdminDashboardHandler(service service.DashboardService, logger zerolog.Logger) *AdminDashboardHandler {
	return &AdminDashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_dashboard_handler").Logger(),
	}
}

// Register attaches dashboard routes.
func (h *AdminDashboardHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
}

func (h *AdminDashboardHandler) dashboard(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}

	resp, err := h.service.Dashboard(requestContext(c), sess)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to build dashboard")
	}
	return utils.OK(c, resp, "dashboard retrieved", fiber.Map{"cacheHit": resp.CacheHit})
}
