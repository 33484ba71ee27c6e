package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/service"
	"github.com/noah-isme/codelab-portal/internal/utils"
)

// LearningHandler exposes the student's classes, lessons and progress.
type LearningHandler struct {
	service service.LearningService
	logger  zerolog.Logger
}

// NewLearningHandler constructs the learning handler.
func NewLearningHandler(service service.LearningService, logger zerolog.Logger) *LearningHandler {
	return &LearningHandler{
		service: service,
		logger:  logger.With().Str("component", "learning_handler").Logger(),
	}
}

// Register attaches student learning routes.
func (h *LearningHandler) Register(router fiber.Router) {
	router.Get("/me", h.profile)
	router.Get("/classes", h.classes)
	router.Get("/classes/:classId/lessons", h.classLessons)
	router.Get("/classes/:classId/scores", h.classScores)
	router.Get("/lessons/:lessonId/contents", h.lessonContents)
	router.Get("/lessons/:lessonId/exercises", h.lessonExercises)
}

func (h *LearningHandler) profile(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	resp, err := h.service.Profile(requestContext(c), sess)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load profile")
	}
	return utils.SendSuccess(c, "profile retrieved", resp)
}

func (h *LearningHandler) classes(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	classes, err := h.service.Classes(requestContext(c), sess)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load classes")
	}
	return utils.OK(c, classes, "classes retrieved", fiber.Map{"count": len(classes)})
}

func (h *LearningHandler) classLessons(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid class id")
	}
	lessons, err := h.service.ClassLessons(requestContext(c), sess, classID)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load lessons")
	}
	return utils.OK(c, lessons, "lessons retrieved", fiber.Map{"count": len(lessons)})
}

func (h *LearningHandler) classScores(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid class id")
	}
	report, err := h.service.ClassScores(requestContext(c), sess, classID)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load scores")
	}
	return utils.SendSuccess(c, "scores retrieved", report)
}

func (h *LearningHandler) lessonContents(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	lessonID, err := parseUintParam(c, "lessonId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid lesson id")
	}
	resp, err := h.service.LessonContents(requestContext(c), sess, lessonID)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load lesson contents")
	}
	return utils.SendSuccess(c, "lesson contents retrieved", resp)
}

func (h *LearningHandler) lessonExercises(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	lessonID, err := parseUintParam(c, "lessonId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid lesson id")
	}
	resp, err := h.service.LessonExercises(requestContext(c), sess, lessonID)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load exercises")
	}
	return utils.SendSuccess(c, "exercises retrieved", resp)
}
