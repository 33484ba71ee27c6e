package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/events"
	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/observability"
	"github.com/noah-isme/codelab-portal/internal/session"
)

// ErrWorkspaceNotOpen indicates the session has not opened the requested exercise.
var ErrWorkspaceNotOpen = errors.New("exercise is not open in this workspace")

// WorkspaceService drives the run/submit workflow of a student's open exercise.
type WorkspaceService interface {
	Open(ctx context.Context, sess *session.Session, exerciseID uint) (dto.WorkspaceResponse, error)
	Attempt(sess *session.Session, exerciseID uint) (dto.AttemptView, error)
	Run(ctx context.Context, sess *session.Session, exerciseID uint, req dto.SolutionRequest) (dto.AttemptResponse, error)
	Submit(ctx context.Context, sess *session.Session, exerciseID uint, req dto.SolutionRequest) (dto.AttemptResponse, error)
	Dismiss(sess *session.Session, exerciseID uint) (dto.AttemptView, error)
	Drop(sessionID string)
	Start(ctx context.Context)
}

type workspace struct {
	gate *grading.Gate

	mu       sync.Mutex
	exercise models.Exercise
	lastUsed time.Time
}

func (w *workspace) current() models.Exercise {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exercise
}

func (w *workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastUsed = now
	w.mu.Unlock()
}

func (w *workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

type workspaceService struct {
	gateway Gateway
	idleTTL time.Duration
	logger  zerolog.Logger
	audit   recorder
	now     func() time.Time

	mu         sync.Mutex
	workspaces map[string]*workspace
}

// NewWorkspaceService constructs the workspace service. Workspaces idle for longer
// than idleTTL are evicted once Start has been called.
func NewWorkspaceService(gateway Gateway, activity ActivityRecorder, publisher events.Publisher, idleTTL time.Duration, logger zerolog.Logger) WorkspaceService {
	log := logger.With().Str("component", "workspace_service").Logger()
	return &workspaceService{
		gateway:    gateway,
		idleTTL:    idleTTL,
		logger:     log,
		audit:      recorder{activity: activity, events: publisher, logger: log},
		now:        time.Now,
		workspaces: make(map[string]*workspace),
	}
}

func (s *workspaceService) Open(ctx context.Context, sess *session.Session, exerciseID uint) (dto.WorkspaceResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.WorkspaceResponse{}, err
	}

	exercise, err := s.gateway.Exercise(ctx, sess, exerciseID)
	if err != nil {
		return dto.WorkspaceResponse{}, s.backendFailure(sess, err)
	}
	exercise = sanitizeExercise(exercise)

	ws := s.enter(sess.ID, exercise)

	status := grading.DeriveStatus(exercise.ID, nil)
	submissions, err := s.gateway.StudentLessonSubmissions(ctx, sess, sess.UserID, exercise.LessonID)
	switch {
	case err == nil:
		status = grading.DeriveStatus(exercise.ID, submissions)
	case backend.IsAuthFailure(err):
		return dto.WorkspaceResponse{}, s.backendFailure(sess, err)
	default:
		s.logger.Warn().Err(err).Uint("exercise_id", exercise.ID).Msg("failed to load submissions for status")
	}

	return dto.WorkspaceResponse{
		Exercise: dto.NewExerciseView(exercise),
		Status:   status,
		Attempt:  dto.NewAttemptView(ws.gate.Snapshot()),
	}, nil
}

func (s *workspaceService) Attempt(sess *session.Session, exerciseID uint) (dto.AttemptView, error) {
	ws, err := s.lookup(sess, exerciseID)
	if err != nil {
		return dto.AttemptView{}, err
	}
	return dto.NewAttemptView(ws.gate.Snapshot()), nil
}

func (s *workspaceService) Run(ctx context.Context, sess *session.Session, exerciseID uint, req dto.SolutionRequest) (dto.AttemptResponse, error) {
	ws, err := s.ensure(ctx, sess, exerciseID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	ticket, err := ws.gate.BeginRun(grading.SolutionOf(req.Code, req.Language))
	if err != nil {
		return dto.AttemptResponse{}, err
	}
	s.transition(ws)
	exercise := ws.current()

	result, err := s.gateway.RunSolution(ctx, sess, backend.SolutionInput{
		StudentID:  sess.UserID,
		ExerciseID: exercise.ID,
		Code:       req.Code,
		Language:   req.Language,
	})
	if err != nil {
		if ws.gate.FailRun(ticket, runFailureMessage(err)) {
			s.transition(ws)
		} else {
			observability.StaleRunResults().Inc()
		}
		return dto.AttemptResponse{}, s.backendFailure(sess, err)
	}

	verdicts := grading.Aggregate(exercise.TestCases, result.Details)
	applied := ws.gate.CompleteRun(ticket, verdicts)
	if !applied {
		observability.StaleRunResults().Inc()
		s.logger.Debug().Uint("exercise_id", ticket.ExerciseID).Uint64("token", ticket.Token).Msg("discarded stale run result")
	} else {
		s.transition(ws)
	}

	summary := grading.Summary(verdicts, len(exercise.TestCases))
	s.audit.record(ctx, sess, models.ActivityExerciseRun, "exercise", exercise.ID, map[string]interface{}{
		"language": req.Language,
		"passed":   summary.Passed,
		"total":    summary.Total,
		"applied":  applied,
	})

	return dto.AttemptResponse{Attempt: dto.NewAttemptView(ws.gate.Snapshot()), Stale: !applied}, nil
}

func (s *workspaceService) Submit(ctx context.Context, sess *session.Session, exerciseID uint, req dto.SolutionRequest) (dto.AttemptResponse, error) {
	ws, err := s.lookup(sess, exerciseID)
	if err != nil {
		return dto.AttemptResponse{}, err
	}

	ticket, err := ws.gate.BeginFinal(grading.SolutionOf(req.Code, req.Language))
	if err != nil {
		return dto.AttemptResponse{}, err
	}
	s.transition(ws)

	snapshot := ws.gate.Snapshot()
	resultText, err := backend.EncodeOutcomes(outcomesFromVerdicts(snapshot.Verdicts))
	if err != nil {
		ws.gate.RejectFinal(ticket, grading.DefaultRejectionMessage)
		s.transition(ws)
		return dto.AttemptResponse{}, fmt.Errorf("encode outcomes: %w", err)
	}

	submittedAt := s.now().UTC()
	submission, err := s.gateway.SubmitSolution(ctx, sess, backend.FinalSolutionInput{
		SolutionInput: backend.SolutionInput{
			StudentID:  sess.UserID,
			ExerciseID: ticket.ExerciseID,
			Code:       req.Code,
			Language:   req.Language,
		},
		SubmittedAt:     submittedAt,
		Status:          models.SubmissionMarkerAccepted,
		Result:          resultText,
		TestCasesPassed: snapshot.Passed,
		TotalTestCases:  snapshot.Total,
	})
	if err != nil {
		message := backend.RejectionMessage(err)
		applied := ws.gate.RejectFinal(ticket, message)
		if applied {
			s.transition(ws)
		}
		s.audit.record(ctx, sess, models.ActivitySubmissionRejected, "exercise", ticket.ExerciseID, map[string]interface{}{
			"message": message,
		})
		if backend.IsAuthFailure(err) {
			return dto.AttemptResponse{}, s.backendFailure(sess, err)
		}
		return dto.AttemptResponse{Attempt: dto.NewAttemptView(ws.gate.Snapshot()), Stale: !applied}, nil
	}

	if !submission.SubmittedAt.IsZero() {
		submittedAt = submission.SubmittedAt.UTC()
	}
	applied := ws.gate.CompleteFinal(ticket, grading.FinalOutcome{
		Accepted:     true,
		SubmissionID: submission.ID,
		Status:       submission.Status,
		Score:        submission.Score,
		SubmittedAt:  submittedAt,
	})
	if applied {
		s.transition(ws)
	}

	s.audit.record(ctx, sess, models.ActivitySubmissionFinal, "submission", submission.ID, map[string]interface{}{
		"exercise_id": ticket.ExerciseID,
		"language":    req.Language,
		"passed":      snapshot.Passed,
		"total":       snapshot.Total,
	})
	s.audit.publish(ctx, sess, events.Event{
		Type:         events.TypeSubmissionFinalized,
		ExerciseID:   ticket.ExerciseID,
		SubmissionID: submission.ID,
		Status:       submission.Status,
		Score:        submission.Score,
	})

	return dto.AttemptResponse{Attempt: dto.NewAttemptView(ws.gate.Snapshot()), Stale: !applied}, nil
}

func (s *workspaceService) Dismiss(sess *session.Session, exerciseID uint) (dto.AttemptView, error) {
	ws, err := s.lookup(sess, exerciseID)
	if err != nil {
		return dto.AttemptView{}, err
	}
	if ws.gate.Dismiss() {
		s.transition(ws)
	}
	return dto.NewAttemptView(ws.gate.Snapshot()), nil
}

// Drop forgets the workspace of a session, e.g. after logout.
func (s *workspaceService) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[sessionID]; ok {
		delete(s.workspaces, sessionID)
		observability.WorkspacesActive().Dec()
	}
}

// Start runs the idle sweeper until ctx is cancelled.
func (s *workspaceService) Start(ctx context.Context) {
	if s.idleTTL <= 0 {
		return
	}
	interval := s.idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := s.sweep(); evicted > 0 {
					s.logger.Debug().Int("evicted", evicted).Msg("evicted idle workspaces")
				}
			}
		}
	}()
}

func (s *workspaceService) sweep() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, ws := range s.workspaces {
		if ws.idleSince().Before(cutoff) {
			delete(s.workspaces, id)
			observability.WorkspacesActive().Dec()
			evicted++
		}
	}
	return evicted
}

// enter points the session's workspace at exercise, creating it when missing.
func (s *workspaceService) enter(sessionID string, exercise models.Exercise) *workspace {
	now := s.now()

	s.mu.Lock()
	ws, ok := s.workspaces[sessionID]
	if !ok {
		ws = &workspace{gate: grading.NewGate()}
		s.workspaces[sessionID] = ws
		observability.WorkspacesActive().Inc()
	}
	s.mu.Unlock()

	ws.mu.Lock()
	ws.exercise = exercise
	ws.lastUsed = now
	ws.mu.Unlock()

	if ws.gate.Enter(exercise.ID, len(exercise.TestCases)) {
		s.transition(ws)
	}
	return ws
}

// ensure returns the workspace for exerciseID, opening the exercise when the
// session is on another one.
func (s *workspaceService) ensure(ctx context.Context, sess *session.Session, exerciseID uint) (*workspace, error) {
	ws, err := s.lookup(sess, exerciseID)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, ErrWorkspaceNotOpen) {
		return nil, err
	}

	exercise, err := s.gateway.Exercise(ctx, sess, exerciseID)
	if err != nil {
		return nil, s.backendFailure(sess, err)
	}
	return s.enter(sess.ID, sanitizeExercise(exercise)), nil
}

func (s *workspaceService) lookup(sess *session.Session, exerciseID uint) (*workspace, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	ws, ok := s.workspaces[sess.ID]
	s.mu.Unlock()

	if !ok || ws.gate.ExerciseID() != exerciseID {
		return nil, ErrWorkspaceNotOpen
	}
	ws.touch(s.now())
	return ws, nil
}

func (s *workspaceService) transition(ws *workspace) {
	observability.GateTransitions().WithLabelValues(string(ws.gate.Snapshot().State)).Inc()
}

// backendFailure drops the workspace when the backend ended the session.
func (s *workspaceService) backendFailure(sess *session.Session, err error) error {
	if backend.IsAuthFailure(err) && sess != nil {
		s.Drop(sess.ID)
	}
	return err
}

func outcomesFromVerdicts(verdicts []models.TrialVerdict) []models.TestCaseOutcome {
	outcomes := make([]models.TestCaseOutcome, 0, len(verdicts))
	for _, verdict := range verdicts {
		status := "❌ Fail"
		if verdict.IsCorrect {
			status = models.VerdictPassMarker
		}
		outcomes = append(outcomes, models.TestCaseOutcome{
			Input:    verdict.Input,
			Expected: verdict.Expected,
			Output:   verdict.Actual,
			Status:   status,
		})
	}
	return outcomes
}

func runFailureMessage(err error) string {
	if message := backend.RejectionMessage(err); message != "" {
		return message
	}
	switch {
	case errors.Is(err, backend.ErrNetwork):
		return "learning backend unreachable"
	case errors.Is(err, backend.ErrMalformedResponse):
		return "learning backend returned an unreadable result"
	case backend.IsAuthFailure(err):
		return "session expired"
	default:
		return "run failed"
	}
}
