package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/service"
	"github.com/noah-isme/codelab-portal/internal/utils"
)

// AuthHandler exposes sign-in and sign-out endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the auth handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches the public login endpoints.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/student/login", h.studentLogin)
	router.Post("/teacher/login", h.teacherLogin)
}

// RegisterProtected attaches endpoints that need a session.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Post("/logout", h.logout)
}

func (h *AuthHandler) studentLogin(c *fiber.Ctx) error {
	var payload dto.StudentLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.LoginStudent(requestContext(c), payload)
	if err != nil {
		return h.loginError(c, err)
	}
	return utils.SendSuccess(c, "signed in", resp)
}

func (h *AuthHandler) teacherLogin(c *fiber.Ctx) error {
	var payload dto.TeacherLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.LoginTeacher(requestContext(c), payload)
	if err != nil {
		return h.loginError(c, err)
	}
	return utils.SendSuccess(c, "signed in", resp)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}

	if err := h.service.Logout(requestContext(c), sess); err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to sign out")
	}
	return utils.SendSuccess(c, "signed out", fiber.Map{"redirect": sess.LoginRoute()})
}

func (h *AuthHandler) loginError(c *fiber.Ctx, err error) error {
	if errors.Is(err, backend.ErrUnauthorized) {
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	var rejection *backend.RejectionError
	if errors.As(err, &rejection) && rejection.StatusCode < fiber.StatusInternalServerError {
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	return handleError(c, requestLogger(h.logger, c), err, "failed to sign in")
}
