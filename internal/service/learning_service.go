package service

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/session"
)

// LearningService serves the student's read-only views of classes and lessons.
type LearningService interface {
	Profile(ctx context.Context, sess *session.Session) (dto.StudentProfileResponse, error)
	Classes(ctx context.Context, sess *session.Session) ([]models.Class, error)
	ClassLessons(ctx context.Context, sess *session.Session, classID uint) ([]models.Lesson, error)
	LessonContents(ctx context.Context, sess *session.Session, lessonID uint) (dto.LessonDetailResponse, error)
	LessonExercises(ctx context.Context, sess *session.Session, lessonID uint) (dto.LessonExercisesResponse, error)
	ClassScores(ctx context.Context, sess *session.Session, classID uint) (grading.ClassProgressReport, error)
}

type learningService struct {
	gateway Gateway
	logger  zerolog.Logger
}

// NewLearningService constructs the learning service.
func NewLearningService(gateway Gateway, logger zerolog.Logger) LearningService {
	return &learningService{
		gateway: gateway,
		logger:  logger.With().Str("component", "learning_service").Logger(),
	}
}

func (s *learningService) Profile(ctx context.Context, sess *session.Session) (dto.StudentProfileResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.StudentProfileResponse{}, err
	}

	var (
		student models.Student
		classes []models.Class
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		student, err = s.gateway.CurrentStudent(groupCtx, sess)
		return err
	})
	group.Go(func() error {
		var err error
		classes, err = s.gateway.StudentClasses(groupCtx, sess)
		return err
	})
	if err := group.Wait(); err != nil {
		return dto.StudentProfileResponse{}, err
	}

	if classes == nil {
		classes = []models.Class{}
	}
	return dto.StudentProfileResponse{Student: student, Classes: classes}, nil
}

func (s *learningService) Classes(ctx context.Context, sess *session.Session) ([]models.Class, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	classes, err := s.gateway.StudentClasses(ctx, sess)
	if err != nil {
		return nil, err
	}
	if classes == nil {
		classes = []models.Class{}
	}
	return classes, nil
}

func (s *learningService) ClassLessons(ctx context.Context, sess *session.Session, classID uint) ([]models.Lesson, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	lessons, err := s.gateway.ClassLessons(ctx, sess, classID)
	if err != nil {
		return nil, err
	}
	if lessons == nil {
		lessons = []models.Lesson{}
	}
	return lessons, nil
}

func (s *learningService) LessonContents(ctx context.Context, sess *session.Session, lessonID uint) (dto.LessonDetailResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.LessonDetailResponse{}, err
	}
	contents, err := s.gateway.LessonContents(ctx, sess, lessonID)
	if err != nil {
		return dto.LessonDetailResponse{}, err
	}
	return dto.LessonDetailResponse{LessonID: lessonID, Groups: dto.GroupContents(contents)}, nil
}

func (s *learningService) LessonExercises(ctx context.Context, sess *session.Session, lessonID uint) (dto.LessonExercisesResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.LessonExercisesResponse{}, err
	}

	var (
		exercises   []models.Exercise
		submissions []models.Submission
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		exercises, err = s.gateway.LessonExercises(groupCtx, sess, lessonID)
		return err
	})
	group.Go(func() error {
		var err error
		submissions, err = s.gateway.StudentLessonSubmissions(groupCtx, sess, sess.UserID, lessonID)
		return err
	})
	if err := group.Wait(); err != nil {
		return dto.LessonExercisesResponse{}, err
	}

	response := dto.LessonExercisesResponse{LessonID: lessonID, Exercises: make([]dto.ExerciseSummary, 0, len(exercises))}
	for _, item := range grading.LessonStatuses(exercises, submissions) {
		exercise := sanitizeExercise(item.Exercise)
		response.Exercises = append(response.Exercises, dto.ExerciseSummary{
			ID:            exercise.ID,
			LessonID:      exercise.LessonID,
			Title:         exercise.Title,
			TestCaseCount: len(exercise.TestCases),
			Status:        item.Status,
		})
		if item.Status.State == grading.StatusCompleted {
			response.Completed++
		}
	}
	return response, nil
}

func (s *learningService) ClassScores(ctx context.Context, sess *session.Session, classID uint) (grading.ClassProgressReport, error) {
	if err := requireSession(sess); err != nil {
		return grading.ClassProgressReport{}, err
	}

	var (
		exercises   []models.Exercise
		submissions []models.Submission
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		exercises, err = s.gateway.ClassExercises(groupCtx, sess, classID)
		return err
	})
	group.Go(func() error {
		var err error
		submissions, err = s.gateway.StudentClassSubmissions(groupCtx, sess, sess.UserID, classID)
		return err
	})
	if err := group.Wait(); err != nil {
		return grading.ClassProgressReport{}, err
	}

	return grading.ClassProgress(exercises, submissions), nil
}
