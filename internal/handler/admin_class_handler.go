package handler

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/service"
	"github.com/noah-isme/codelab-portal/internal/utils"
)

// AdminClassHandler exposes class, lesson and lesson content management for teachers.
type AdminClassHandler struct {
	service service.AdminClassService
	logger  zerolog.Logger
}

// NewAdminClassHandler constructs the handler.
func NewAdminClassHandler(service service.AdminClassService, logger zerolog.Logger) *AdminClassHandler {
	return &AdminClassHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_class_handler").Logger(),
	}
}

// Register attaches class management routes.
func (h *AdminClassHandler) Register(router fiber.Router) {
	router.Get("/classes", h.classes)
	router.Get("/classes/:classId", h.classDetail)
	router.Get("/classes/:classId/lessons", h.classLessons)
	router.Post("/classes/:classId/lessons", h.createLesson)
	router.Get("/classes/:classId/students", h.classStudents)
	router.Get("/lessons/:lessonId/contents", h.lessonContents)
	router.Post("/lessons/:lessonId/contents", h.uploadContent)
	router.Delete("/contents/:id", h.deleteContent)
}

func (h *AdminClassHandler) classes(c *fiber.Ctx) error {
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

func (h *AdminClassHandler) classDetail(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid class id")
	}
	resp, err := h.service.ClassDetail(requestContext(c), sess, classID)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load class")
	}
	return utils.SendSuccess(c, "class retrieved", resp)
}

func (h *AdminClassHandler) classLessons(c *fiber.Ctx) error {
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

func (h *AdminClassHandler) createLesson(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid class id")
	}

	var payload dto.LessonCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	lesson, err := h.service.CreateLesson(requestContext(c), sess, classID, payload)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to create lesson")
	}
	return utils.Created(c, "lesson created", lesson)
}

func (h *AdminClassHandler) classStudents(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid class id")
	}
	resp, err := h.service.ClassStudents(requestContext(c), sess, classID)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load class students")
	}
	return utils.OK(c, resp, "class students retrieved", fiber.Map{"count": len(resp.Students)})
}

func (h *AdminClassHandler) lessonContents(c *fiber.Ctx) error {
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

func (h *AdminClassHandler) uploadContent(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	lessonID, err := parseUintParam(c, "lessonId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid lesson id")
	}

	var form dto.ContentUploadRequest
	if err := c.BodyParser(&form); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form data")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read file")
	}

	content, err := h.service.UploadContent(requestContext(c), sess, lessonID, form, fileHeader.Filename, data)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to upload content")
	}
	return utils.Created(c, "content uploaded", content)
}

func (h *AdminClassHandler) deleteContent(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	contentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid content id")
	}
	if err := h.service.DeleteContent(requestContext(c), sess, contentID); err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to delete content")
	}
	return utils.SendSuccess(c, "content deleted", fiber.Map{"id": contentID})
}
