package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/session"
)

var (
	// ErrEmptyUpload indicates an upload without file content.
	ErrEmptyUpload = errors.New("uploaded file is empty")
	// ErrUnsupportedContent indicates an upload that is neither a PDF nor a video.
	ErrUnsupportedContent = errors.New("only PDF documents and videos can be attached to lessons")
)

// AdminClassService serves the teacher's classes, rosters and lesson resources.
type AdminClassService interface {
	Classes(ctx context.Context, sess *session.Session) ([]models.Class, error)
	ClassDetail(ctx context.Context, sess *session.Session, classID uint) (dto.ClassDetailResponse, error)
	ClassLessons(ctx context.Context, sess *session.Session, classID uint) ([]models.Lesson, error)
	CreateLesson(ctx context.Context, sess *session.Session, classID uint, req dto.LessonCreateRequest) (models.Lesson, error)
	ClassStudents(ctx context.Context, sess *session.Session, classID uint) (dto.ClassStudentsResponse, error)
	LessonContents(ctx context.Context, sess *session.Session, lessonID uint) (dto.LessonDetailResponse, error)
	UploadContent(ctx context.Context, sess *session.Session, lessonID uint, req dto.ContentUploadRequest, fileName string, data []byte) (models.LessonContent, error)
	DeleteContent(ctx context.Context, sess *session.Session, contentID uint) error
}

type adminClassService struct {
	gateway     Gateway
	validator   *validator.Validate
	concurrency int
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	audit       recorder
}

// NewAdminClassService constructs the admin class service.
func NewAdminClassService(gateway Gateway, validate *validator.Validate, activity ActivityRecorder, concurrency int, logger zerolog.Logger) AdminClassService {
	if concurrency <= 0 {
		concurrency = 8
	}
	log := logger.With().Str("component", "admin_class_service").Logger()
	return &adminClassService{
		gateway:     gateway,
		validator:   validate,
		concurrency: concurrency,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      log,
		audit:       recorder{activity: activity, logger: log},
	}
}

func (s *adminClassService) Classes(ctx context.Context, sess *session.Session) ([]models.Class, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	classes, err := s.gateway.TeacherClasses(ctx, sess, sess.UserID)
	if err != nil {
		return nil, err
	}
	if classes == nil {
		classes = []models.Class{}
	}
	return classes, nil
}

func (s *adminClassService) ClassDetail(ctx context.Context, sess *session.Session, classID uint) (dto.ClassDetailResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.ClassDetailResponse{}, err
	}

	var response dto.ClassDetailResponse
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		response.Class, err = s.gateway.Class(groupCtx, sess, classID)
		return err
	})
	group.Go(func() error {
		var err error
		response.Lessons, err = s.gateway.ClassLessons(groupCtx, sess, classID)
		return err
	})
	if err := group.Wait(); err != nil {
		return dto.ClassDetailResponse{}, err
	}
	if response.Lessons == nil {
		response.Lessons = []models.Lesson{}
	}
	return response, nil
}

func (s *adminClassService) ClassLessons(ctx context.Context, sess *session.Session, classID uint) ([]models.Lesson, error) {
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

func (s *adminClassService) CreateLesson(ctx context.Context, sess *session.Session, classID uint, req dto.LessonCreateRequest) (models.Lesson, error) {
	if err := requireSession(sess); err != nil {
		return models.Lesson{}, err
	}
	req.Title = strings.TrimSpace(s.sanitizer.Sanitize(req.Title))
	req.Label = strings.TrimSpace(s.sanitizer.Sanitize(req.Label))
	if err := s.validator.Struct(req); err != nil {
		return models.Lesson{}, err
	}

	lesson, err := s.gateway.CreateLesson(ctx, sess, classID, backend.LessonInput{Title: req.Title, Label: req.Label})
	if err != nil {
		return models.Lesson{}, err
	}

	s.audit.record(ctx, sess, models.ActivityLessonCreated, "lesson", lesson.ID, map[string]interface{}{
		"class_id": classID,
		"title":    req.Title,
	})
	return lesson, nil
}

// ClassStudents lists the roster with completed exercise counts. A student whose
// submissions cannot be loaded is reported with zero completed exercises.
func (s *adminClassService) ClassStudents(ctx context.Context, sess *session.Session, classID uint) (dto.ClassStudentsResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.ClassStudentsResponse{}, err
	}

	var (
		students  []models.Student
		exercises []models.Exercise
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		students, err = s.gateway.ClassStudents(groupCtx, sess, classID)
		return err
	})
	group.Go(func() error {
		var err error
		exercises, err = s.gateway.ClassExercises(groupCtx, sess, classID)
		return err
	})
	if err := group.Wait(); err != nil {
		return dto.ClassStudentsResponse{}, err
	}

	rows := make([]dto.StudentProgress, len(students))
	var (
		authMu  sync.Mutex
		authErr error
	)
	group, groupCtx = errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i, student := range students {
		i, student := i, student
		rows[i] = dto.StudentProgress{Student: student, TotalExercises: len(exercises)}
		group.Go(func() error {
			submissions, err := s.gateway.StudentClassSubmissions(groupCtx, sess, student.ID, classID)
			if err != nil {
				if backend.IsAuthFailure(err) {
					authMu.Lock()
					authErr = err
					authMu.Unlock()
					return err
				}
				s.logger.Warn().Err(err).Uint("student_id", student.ID).Uint("class_id", classID).Msg("failed to load student progress")
				rows[i].ProgressError = true
				return nil
			}
			rows[i].CompletedExercises = grading.CompletedCount(submissions)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if authErr != nil {
			return dto.ClassStudentsResponse{}, authErr
		}
		return dto.ClassStudentsResponse{}, err
	}

	return dto.ClassStudentsResponse{ClassID: classID, TotalExercises: len(exercises), Students: rows}, nil
}

func (s *adminClassService) LessonContents(ctx context.Context, sess *session.Session, lessonID uint) (dto.LessonDetailResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.LessonDetailResponse{}, err
	}
	contents, err := s.gateway.LessonContents(ctx, sess, lessonID)
	if err != nil {
		return dto.LessonDetailResponse{}, err
	}
	return dto.LessonDetailResponse{LessonID: lessonID, Groups: dto.GroupContents(contents)}, nil
}

func (s *adminClassService) UploadContent(ctx context.Context, sess *session.Session, lessonID uint, req dto.ContentUploadRequest, fileName string, data []byte) (models.LessonContent, error) {
	if err := requireSession(sess); err != nil {
		return models.LessonContent{}, err
	}
	req.Title = strings.TrimSpace(s.sanitizer.Sanitize(req.Title))
	if err := s.validator.Struct(req); err != nil {
		return models.LessonContent{}, err
	}
	if len(data) == 0 {
		return models.LessonContent{}, ErrEmptyUpload
	}

	detected := mimetype.Detect(data)
	contentType, ok := classifyContent(detected)
	if !ok {
		return models.LessonContent{}, fmt.Errorf("%w: detected %s", ErrUnsupportedContent, detected.String())
	}
	if req.ContentType != "" && req.ContentType != contentType {
		return models.LessonContent{}, fmt.Errorf("%w: file is %s, not %s", ErrUnsupportedContent, contentType, req.ContentType)
	}

	content, err := s.gateway.UploadLessonContent(ctx, sess, lessonID, backend.ContentUpload{
		Title:       req.Title,
		ContentType: contentType,
		Category:    req.Category,
		FileName:    fileName,
		MIMEType:    detected.String(),
		Data:        data,
	})
	if err != nil {
		return models.LessonContent{}, err
	}

	s.audit.record(ctx, sess, models.ActivityContentUploaded, "lesson_content", content.ID, map[string]interface{}{
		"lesson_id":    lessonID,
		"content_type": contentType,
		"category":     req.Category,
		"size_bytes":   len(data),
	})
	return content, nil
}

func (s *adminClassService) DeleteContent(ctx context.Context, sess *session.Session, contentID uint) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if err := s.gateway.DeleteLessonContent(ctx, sess, contentID); err != nil {
		return err
	}
	s.audit.record(ctx, sess, models.ActivityContentDeleted, "lesson_content", contentID, nil)
	return nil
}

// classifyContent maps a detected MIME type onto a lesson content type.
func classifyContent(detected *mimetype.MIME) (string, bool) {
	switch {
	case detected.Is("application/pdf"):
		return models.ContentTypePDF, true
	case strings.HasPrefix(detected.String(), "video/"):
		return models.ContentTypeVideo, true
	default:
		return "", false
	}
}
