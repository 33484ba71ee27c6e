package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/service"
	"github.com/noah-isme/codelab-portal/internal/utils"
)

// WorkspaceHandler exposes the exercise workspace: open, run, submit and dismiss.
type WorkspaceHandler struct {
	service   service.WorkspaceService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewWorkspaceHandler constructs the workspace handler.
func NewWorkspaceHandler(service service.WorkspaceService, validate *validator.Validate, logger zerolog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "workspace_handler").Logger(),
	}
}

// Register attaches workspace routes. runLimiter guards the run and submit endpoints.
func (h *WorkspaceHandler) Register(router fiber.Router, runLimiter ...fiber.Handler) {
	router.Get("/exercises/:id", h.open)
	router.Get("/exercises/:id/attempt", h.attempt)
	router.Post("/exercises/:id/attempt/dismiss", h.dismiss)

	run := append(append([]fiber.Handler{}, runLimiter...), h.run)
	submit := append(append([]fiber.Handler{}, runLimiter...), h.submit)
	router.Post("/exercises/:id/run", run...)
	router.Post("/exercises/:id/submit", submit...)
}

func (h *WorkspaceHandler) exerciseLogger(c *fiber.Ctx, exerciseID uint) *zerolog.Logger {
	logger := requestLogger(h.logger, c).With().Uint("exercise_id", exerciseID).Logger()
	return &logger
}

func (h *WorkspaceHandler) open(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exercise id")
	}

	resp, err := h.service.Open(requestContext(c), sess, id)
	if err != nil {
		return handleError(c, h.exerciseLogger(c, id), err, "failed to open exercise")
	}
	return utils.SendSuccess(c, "exercise opened", resp)
}

func (h *WorkspaceHandler) attempt(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exercise id")
	}

	attempt, err := h.service.Attempt(sess, id)
	if err != nil {
		return handleError(c, h.exerciseLogger(c, id), err, "failed to load attempt")
	}
	return utils.SendSuccess(c, "attempt retrieved", attempt)
}

func (h *WorkspaceHandler) run(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exercise id")
	}

	var payload dto.SolutionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return handleError(c, h.exerciseLogger(c, id), err, "invalid solution")
	}

	resp, err := h.service.Run(requestContext(c), sess, id, payload)
	if err != nil {
		return handleError(c, h.exerciseLogger(c, id), err, "failed to run solution")
	}
	message := "run completed"
	if resp.Stale {
		message = "run result discarded"
	}
	return utils.SendSuccess(c, message, resp)
}

func (h *WorkspaceHandler) submit(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exercise id")
	}

	var payload dto.SolutionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return handleError(c, h.exerciseLogger(c, id), err, "invalid solution")
	}

	resp, err := h.service.Submit(requestContext(c), sess, id, payload)
	if err != nil {
		return handleError(c, h.exerciseLogger(c, id), err, "failed to submit solution")
	}

	message := "submission accepted"
	if final := resp.Attempt.Final; final == nil || !final.Accepted {
		message = "submission rejected"
	}
	return utils.SendSuccess(c, message, resp)
}

func (h *WorkspaceHandler) dismiss(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exercise id")
	}

	attempt, err := h.service.Dismiss(sess, id)
	if err != nil {
		return handleError(c, h.exerciseLogger(c, id), err, "failed to dismiss result")
	}
	return utils.SendSuccess(c, "result dismissed", attempt)
}
