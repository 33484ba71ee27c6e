package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/service"
	"github.com/noah-isme/codelab-portal/internal/utils"
)

// AdminExerciseHandler exposes exercise authoring and submission review.
type AdminExerciseHandler struct {
	service service.AdminExerciseService
	logger  zerolog.Logger
}

// NewAdminExerciseHandler constructs the handler.
func NewAdminExerciseHandler(service service.AdminExerciseService, logger zerolog.Logger) *AdminExerciseHandler {
	return &AdminExerciseHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_exercise_handler").Logger(),
	}
}

// Register attaches exercise and submission routes.
func (h *AdminExerciseHandler) Register(router fiber.Router) {
	router.Get("/lessons/:lessonId/exercises", h.lessonExercises)
	router.Post("/lessons/:lessonId/exercises", h.create)
	router.Get("/exercises/:id", h.detail)
	router.Put("/exercises/:id", h.update)
	router.Delete("/exercises/:id", h.delete)
	router.Get("/exercises/:id/submissions", h.submissions)
	router.Get("/submissions/:id", h.submission)
	router.Patch("/submissions/:id", h.updateScore)
}

func (h *AdminExerciseHandler) lessonExercises(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	lessonID, err := parseUintParam(c, "lessonId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid lesson id")
	}
	exercises, err := h.service.LessonExercises(requestContext(c), sess, lessonID)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load exercises")
	}
	return utils.OK(c, exercises, "exercises retrieved", fiber.Map{"count": len(exercises)})
}

func (h *AdminExerciseHandler) create(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	lessonID, err := parseUintParam(c, "lessonId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid lesson id")
	}

	var payload dto.ExerciseRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	exercise, err := h.service.Create(requestContext(c), sess, lessonID, payload)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to create exercise")
	}
	return utils.Created(c, "exercise created", exercise)
}

func (h *AdminExerciseHandler) detail(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	exerciseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exercise id")
	}
	exercise, err := h.service.Exercise(requestContext(c), sess, exerciseID)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load exercise")
	}
	return utils.SendSuccess(c, "exercise retrieved", dto.ExerciseAdminView{Exercise: exercise})
}

func (h *AdminExerciseHandler) update(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	exerciseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exercise id")
	}

	var payload dto.ExerciseRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	exercise, err := h.service.Update(requestContext(c), sess, exerciseID, payload)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to update exercise")
	}
	return utils.SendSuccess(c, "exercise updated", exercise)
}

func (h *AdminExerciseHandler) delete(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	exerciseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exercise id")
	}
	if err := h.service.Delete(requestContext(c), sess, exerciseID); err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to delete exercise")
	}
	return utils.SendSuccess(c, "exercise deleted", fiber.Map{"id": exerciseID})
}

func (h *AdminExerciseHandler) submissions(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	exerciseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exercise id")
	}
	resp, err := h.service.Submissions(requestContext(c), sess, exerciseID)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load submissions")
	}
	return utils.OK(c, resp, "submissions retrieved", fiber.Map{"count": len(resp.Submissions)})
}

func (h *AdminExerciseHandler) submission(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}
	resp, err := h.service.Submission(requestContext(c), sess, submissionID)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to load submission")
	}
	return utils.SendSuccess(c, "submission retrieved", resp)
}

func (h *AdminExerciseHandler) updateScore(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if sess == nil {
		return err
	}
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	var payload dto.ScoreUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.UpdateScore(requestContext(c), sess, submissionID, payload)
	if err != nil {
		return handleError(c, requestLogger(h.logger, c), err, "failed to update score")
	}
	return utils.SendSuccess(c, "score updated", resp)
}
