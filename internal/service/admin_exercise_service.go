package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/events"
	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/session"
)

// AdminExerciseService manages coding exercises and reviews their submissions.
type AdminExerciseService interface {
	LessonExercises(ctx context.Context, sess *session.Session, lessonID uint) ([]models.Exercise, error)
	Exercise(ctx context.Context, sess *session.Session, exerciseID uint) (models.Exercise, error)
	Create(ctx context.Context, sess *session.Session, lessonID uint, req dto.ExerciseRequest) (models.Exercise, error)
	Update(ctx context.Context, sess *session.Session, exerciseID uint, req dto.ExerciseRequest) (models.Exercise, error)
	Delete(ctx context.Context, sess *session.Session, exerciseID uint) error
	Submissions(ctx context.Context, sess *session.Session, exerciseID uint) (dto.SubmissionListResponse, error)
	Submission(ctx context.Context, sess *session.Session, submissionID uint) (dto.SubmissionDetailResponse, error)
	UpdateScore(ctx context.Context, sess *session.Session, submissionID uint, req dto.ScoreUpdateRequest) (dto.SubmissionDetailResponse, error)
}

type adminExerciseService struct {
	gateway   Gateway
	validator *validator.Validate
	logger    zerolog.Logger
	audit     recorder
}

// NewAdminExerciseService constructs the admin exercise service.
func NewAdminExerciseService(gateway Gateway, validate *validator.Validate, activity ActivityRecorder, publisher events.Publisher, logger zerolog.Logger) AdminExerciseService {
	log := logger.With().Str("component", "admin_exercise_service").Logger()
	return &adminExerciseService{
		gateway:   gateway,
		validator: validate,
		logger:    log,
		audit:     recorder{activity: activity, events: publisher, logger: log},
	}
}

func (s *adminExerciseService) LessonExercises(ctx context.Context, sess *session.Session, lessonID uint) ([]models.Exercise, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	exercises, err := s.gateway.LessonExercises(ctx, sess, lessonID)
	if err != nil {
		return nil, err
	}
	result := make([]models.Exercise, 0, len(exercises))
	for _, exercise := range exercises {
		result = append(result, sanitizeExercise(exercise))
	}
	return result, nil
}

func (s *adminExerciseService) Exercise(ctx context.Context, sess *session.Session, exerciseID uint) (models.Exercise, error) {
	if err := requireSession(sess); err != nil {
		return models.Exercise{}, err
	}
	exercise, err := s.gateway.Exercise(ctx, sess, exerciseID)
	if err != nil {
		return models.Exercise{}, err
	}
	return sanitizeExercise(exercise), nil
}

func (s *adminExerciseService) Create(ctx context.Context, sess *session.Session, lessonID uint, req dto.ExerciseRequest) (models.Exercise, error) {
	if err := requireSession(sess); err != nil {
		return models.Exercise{}, err
	}
	input, err := s.exerciseInput(lessonID, req)
	if err != nil {
		return models.Exercise{}, err
	}

	exercise, err := s.gateway.CreateExercise(ctx, sess, input)
	if err != nil {
		return models.Exercise{}, err
	}

	s.audit.record(ctx, sess, models.ActivityExerciseCreated, "exercise", exercise.ID, map[string]interface{}{
		"lesson_id":  lessonID,
		"title":      input.Title,
		"test_cases": len(input.TestCases),
	})
	s.audit.publish(ctx, sess, events.Event{Type: events.TypeExerciseChanged, ExerciseID: exercise.ID, Status: "created"})
	return sanitizeExercise(exercise), nil
}

func (s *adminExerciseService) Update(ctx context.Context, sess *session.Session, exerciseID uint, req dto.ExerciseRequest) (models.Exercise, error) {
	if err := requireSession(sess); err != nil {
		return models.Exercise{}, err
	}

	existing, err := s.gateway.Exercise(ctx, sess, exerciseID)
	if err != nil {
		return models.Exercise{}, err
	}
	input, err := s.exerciseInput(existing.LessonID, req)
	if err != nil {
		return models.Exercise{}, err
	}

	if err := s.gateway.UpdateExercise(ctx, sess, exerciseID, input); err != nil {
		return models.Exercise{}, err
	}

	s.audit.record(ctx, sess, models.ActivityExerciseUpdated, "exercise", exerciseID, map[string]interface{}{
		"lesson_id":  existing.LessonID,
		"title":      input.Title,
		"test_cases": len(input.TestCases),
	})
	s.audit.publish(ctx, sess, events.Event{Type: events.TypeExerciseChanged, ExerciseID: exerciseID, Status: "updated"})

	updated := existing
	updated.Title = input.Title
	updated.Description = input.Description
	updated.ExampleInput = input.ExampleInput
	updated.ExampleOutput = input.ExampleOutput
	updated.InitialCode = input.InitialCode
	updated.TestCases = make([]models.TestCase, 0, len(input.TestCases))
	for _, tc := range input.TestCases {
		updated.TestCases = append(updated.TestCases, models.TestCase{
			InputData:      tc.InputData,
			ExpectedOutput: tc.ExpectedOutput,
			IsHidden:       tc.IsHidden,
		})
	}
	return updated, nil
}

func (s *adminExerciseService) Delete(ctx context.Context, sess *session.Session, exerciseID uint) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if err := s.gateway.DeleteExercise(ctx, sess, exerciseID); err != nil {
		return err
	}
	s.audit.record(ctx, sess, models.ActivityExerciseDeleted, "exercise", exerciseID, nil)
	s.audit.publish(ctx, sess, events.Event{Type: events.TypeExerciseChanged, ExerciseID: exerciseID, Status: "deleted"})
	return nil
}

// Submissions lists an exercise's submissions newest first, along with each
// student's latest submission id.
func (s *adminExerciseService) Submissions(ctx context.Context, sess *session.Session, exerciseID uint) (dto.SubmissionListResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.SubmissionListResponse{}, err
	}
	submissions, err := s.gateway.ExerciseSubmissions(ctx, sess, exerciseID)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	sorted := append([]models.Submission(nil), submissions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.SubmittedAt.Equal(b.SubmittedAt.Time) {
			return a.ID > b.ID
		}
		return a.SubmittedAt.After(b.SubmittedAt.Time)
	})

	byStudent := map[uint][]models.Submission{}
	for _, submission := range sorted {
		byStudent[submission.StudentID] = append(byStudent[submission.StudentID], submission)
	}
	latest := make(map[uint]uint, len(byStudent))
	for studentID, items := range byStudent {
		if last, ok := grading.LatestSubmission(exerciseID, items); ok {
			latest[studentID] = last.ID
		}
	}

	if sorted == nil {
		sorted = []models.Submission{}
	}
	return dto.SubmissionListResponse{ExerciseID: exerciseID, Submissions: sorted, Latest: latest}, nil
}

func (s *adminExerciseService) Submission(ctx context.Context, sess *session.Session, submissionID uint) (dto.SubmissionDetailResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.SubmissionDetailResponse{}, err
	}
	submission, err := s.gateway.Submission(ctx, sess, submissionID)
	if err != nil {
		return dto.SubmissionDetailResponse{}, err
	}
	return submissionDetail(submission), nil
}

func (s *adminExerciseService) UpdateScore(ctx context.Context, sess *session.Session, submissionID uint, req dto.ScoreUpdateRequest) (dto.SubmissionDetailResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.SubmissionDetailResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionDetailResponse{}, err
	}

	score := *req.Score
	if err := s.gateway.UpdateSubmissionScore(ctx, sess, submissionID, score); err != nil {
		return dto.SubmissionDetailResponse{}, err
	}

	submission, err := s.gateway.Submission(ctx, sess, submissionID)
	if err != nil {
		return dto.SubmissionDetailResponse{}, err
	}
	if submission.Score == nil || *submission.Score != score {
		submission.Score = &score
	}

	s.audit.record(ctx, sess, models.ActivitySubmissionRescored, "submission", submissionID, map[string]interface{}{
		"exercise_id": submission.ExerciseID,
		"student_id":  submission.StudentID,
		"score":       score,
	})
	s.audit.publish(ctx, sess, events.Event{
		Type:         events.TypeSubmissionRescored,
		ExerciseID:   submission.ExerciseID,
		SubmissionID: submissionID,
		Status:       submission.Status,
		Score:        &score,
	})

	return submissionDetail(submission), nil
}

func (s *adminExerciseService) exerciseInput(lessonID uint, req dto.ExerciseRequest) (backend.ExerciseInput, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return backend.ExerciseInput{}, err
	}

	clean := sanitizeExercise(models.Exercise{Title: req.Title, Description: req.Description})
	input := backend.ExerciseInput{
		LessonID:      lessonID,
		Title:         clean.Title,
		Description:   clean.Description,
		ExampleInput:  req.ExampleInput,
		ExampleOutput: req.ExampleOutput,
		InitialCode:   req.InitialCode,
		TestCases:     make([]backend.TestCaseInput, 0, len(req.TestCases)),
	}
	for _, tc := range req.TestCases {
		input.TestCases = append(input.TestCases, backend.TestCaseInput{
			InputData:      tc.InputData,
			ExpectedOutput: tc.ExpectedOutput,
			IsHidden:       tc.Hidden(),
		})
	}
	return input, nil
}

func submissionDetail(submission models.Submission) dto.SubmissionDetailResponse {
	outcomes := submission.Outcomes()
	passed := 0
	for _, outcome := range outcomes {
		if outcome.Passed() {
			passed++
		}
	}
	return dto.SubmissionDetailResponse{
		Submission: submission,
		Outcome:    submission.Outcome(),
		TestCases:  outcomes,
		Passed:     passed,
		Total:      len(outcomes),
	}
}
