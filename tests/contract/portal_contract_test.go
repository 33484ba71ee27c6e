package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/handler"
	"github.com/noah-isme/codelab-portal/internal/middleware"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/service"
	"github.com/noah-isme/codelab-portal/internal/session"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func validateBody(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload), string(body))
}

// stubWorkspaceService answers from a real gate driven through a run.
type stubWorkspaceService struct {
	gate *grading.Gate
	err  error
}

func (s stubWorkspaceService) Open(context.Context, *session.Session, uint) (dto.WorkspaceResponse, error) {
	return dto.WorkspaceResponse{}, s.err
}

func (s stubWorkspaceService) Attempt(*session.Session, uint) (dto.AttemptView, error) {
	return dto.NewAttemptView(s.gate.Snapshot()), s.err
}

func (s stubWorkspaceService) Run(context.Context, *session.Session, uint, dto.SolutionRequest) (dto.AttemptResponse, error) {
	if s.err != nil {
		return dto.AttemptResponse{}, s.err
	}
	return dto.AttemptResponse{Attempt: dto.NewAttemptView(s.gate.Snapshot())}, nil
}

func (s stubWorkspaceService) Submit(context.Context, *session.Session, uint, dto.SolutionRequest) (dto.AttemptResponse, error) {
	return s.Run(context.Background(), nil, 0, dto.SolutionRequest{})
}

func (s stubWorkspaceService) Dismiss(*session.Session, uint) (dto.AttemptView, error) {
	return dto.NewAttemptView(s.gate.Snapshot()), s.err
}

func (stubWorkspaceService) Drop(string) {}

func (stubWorkspaceService) Start(context.Context) {}

func completedGate(t *testing.T) *grading.Gate {
	t.Helper()
	testCases := []models.TestCase{
		{ID: 1, InputData: "1 2", ExpectedOutput: "3"},
		{ID: 2, InputData: "5 5", ExpectedOutput: "10", IsHidden: true},
	}
	gate := grading.NewGate()
	gate.Enter(5, len(testCases))
	solution := grading.SolutionOf("print(3)", "python")

	ticket, err := gate.BeginRun(solution)
	require.NoError(t, err)
	gate.CompleteRun(ticket, grading.Aggregate(testCases, []models.BackendVerdict{
		{Status: models.VerdictPassMarker, Output: "3"},
		{Status: models.VerdictPassMarker, Output: "10"},
	}))

	final, err := gate.BeginFinal(solution)
	require.NoError(t, err)
	score := 100.0
	gate.CompleteFinal(final, grading.FinalOutcome{
		Accepted:     true,
		SubmissionID: 101,
		Status:       models.SubmissionMarkerAccepted,
		Score:        &score,
		SubmittedAt:  time.Now().UTC(),
	})
	return gate
}

func workspaceApp(svc service.WorkspaceService, sess *session.Session) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v2/student", func(c *fiber.Ctx) error {
		if sess != nil {
			middleware.SetSession(c, sess)
		}
		return c.Next()
	})
	handler.NewWorkspaceHandler(svc, validator.New(), zerolog.Nop()).Register(group)
	return app
}

func TestWorkspaceAttemptContract(t *testing.T) {
	schema := compileSchema(t, "attempt.schema.json")
	sess := &session.Session{ID: "contract", Role: session.RoleStudent, UserID: 7}
	app := workspaceApp(stubWorkspaceService{gate: completedGate(t)}, sess)

	body := strings.NewReader(`{"code":"print(3)","language":"python"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v2/student/exercises/5/submit", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	validateBody(t, schema, resp)
}

func TestAuthFailureContract(t *testing.T) {
	schema := compileSchema(t, "auth_failure.schema.json")

	t.Run("missing session", func(t *testing.T) {
		app := workspaceApp(stubWorkspaceService{gate: grading.NewGate()}, nil)
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/student/exercises/5/attempt", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		validateBody(t, schema, resp)
	})

	t.Run("backend rejected token", func(t *testing.T) {
		sess := &session.Session{ID: "contract", Role: session.RoleStudent, UserID: 7}
		app := workspaceApp(stubWorkspaceService{gate: grading.NewGate(), err: backend.ErrUnauthorized}, sess)
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/student/exercises/5/attempt", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		validateBody(t, schema, resp)
	})
}

type stubDashboardService struct {
	response dto.DashboardResponse
}

func (s stubDashboardService) Dashboard(context.Context, *session.Session) (dto.DashboardResponse, error) {
	return s.response, nil
}

func (stubDashboardService) Invalidate(context.Context) error { return nil }

func (stubDashboardService) Start(context.Context, service.EventSubscriber) {}

func TestTeacherDashboardContract(t *testing.T) {
	schema := compileSchema(t, "teacher_dashboard.schema.json")

	score := func(v float64) *float64 { return &v }
	classes := []models.Class{{ID: 1, StudentCount: 30}, {ID: 2, StudentCount: 25}}
	exercises := []models.Exercise{{ID: 5}, {ID: 6}}
	submissions := []models.Submission{
		{ID: 1, ExerciseID: 5, Language: "python", Status: models.SubmissionMarkerAccepted, Score: score(100), ExecutionTime: 0.4},
		{ID: 2, ExerciseID: 5, Language: "java", Status: models.SubmissionMarkerFailed, Score: score(40), ExecutionTime: 1.2},
		{ID: 3, ExerciseID: 6, Language: "python", Status: models.SubmissionMarkerAccepted},
		{ID: 4, ExerciseID: 6, Language: "cpp", Status: models.SubmissionMarkerPending},
		{ID: 5, ExerciseID: 6, Language: "csharp", Status: models.SubmissionMarkerAccepted, Score: score(90)},
	}

	svc := stubDashboardService{response: dto.DashboardResponse{
		TeacherID:   3,
		Summary:     grading.Summarize(classes, exercises, submissions),
		GeneratedAt: time.Now().UTC(),
	}}

	app := fiber.New()
	group := app.Group("/api/admin", func(c *fiber.Ctx) error {
		middleware.SetSession(c, &session.Session{ID: "contract-teacher", Role: session.RoleTeacher, UserID: 3})
		return c.Next()
	})
	handler.NewAdminDashboardHandler(svc, zerolog.Nop()).Register(group)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	validateBody(t, schema, resp)
}
