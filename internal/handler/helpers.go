package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/middleware"
	"github.com/noah-isme/codelab-portal/internal/service"
	"github.com/noah-isme/codelab-portal/internal/session"
	"github.com/noah-isme/codelab-portal/internal/utils"
)

// FieldError describes one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// requestContext carries the request's correlation id into service calls.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return service.WithCorrelationID(ctx, middleware.GetCorrelationID(c))
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) []FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]FieldError, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, FieldError{Field: fieldErr.Namespace(), Rule: fieldErr.Tag()})
	}
	return details
}

func loginRouteFor(c *fiber.Ctx) string {
	if sess := middleware.SessionFromContext(c); sess != nil {
		return sess.LoginRoute()
	}
	return middleware.LoginRouteForPath(c.Path())
}

// currentSession returns the request session or answers 401.
func currentSession(c *fiber.Ctx) (*session.Session, error) {
	sess := middleware.SessionFromContext(c)
	if sess == nil {
		return nil, middleware.SendAuthFailure(c, loginRouteFor(c), "session required")
	}
	return sess, nil
}

// handleError maps service and gateway errors onto HTTP responses.
func handleError(c *fiber.Ctx, logger *zerolog.Logger, err error, fallback string) error {
	var rejection *backend.RejectionError

	switch {
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, service.ErrSessionRequired):
		return middleware.SendAuthFailure(c, loginRouteFor(c), "session expired")
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, grading.ErrGateClosed):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, grading.ErrRunInFlight),
		errors.Is(err, grading.ErrFinalInFlight),
		errors.Is(err, grading.ErrControlsLocked),
		errors.Is(err, grading.ErrNoExercise),
		errors.Is(err, service.ErrWorkspaceNotOpen):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnsupportedContent):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrEmptyUpload):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, backend.ErrNotFound):
		message := backend.RejectionMessage(err)
		if message == "" {
			message = "resource not found"
		}
		return utils.SendError(c, fiber.StatusNotFound, message)
	case errors.As(err, &rejection):
		status := rejection.StatusCode
		if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
			status = fiber.StatusBadGateway
		}
		message := rejection.Message
		if message == "" {
			message = fallback
		}
		logger.Warn().Err(err).Int("backend_status", rejection.StatusCode).Msg(fallback)
		return utils.SendError(c, status, message)
	case errors.Is(err, backend.ErrNetwork):
		logger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusServiceUnavailable, "learning backend unavailable")
	case errors.Is(err, backend.ErrMalformedResponse):
		logger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusBadGateway, "learning backend returned an invalid response")
	default:
		logger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
