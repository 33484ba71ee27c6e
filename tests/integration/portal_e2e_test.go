package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/config"
	"github.com/noah-isme/codelab-portal/internal/database"
	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/events"
	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/handler"
	"github.com/noah-isme/codelab-portal/internal/middleware"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/repository"
	"github.com/noah-isme/codelab-portal/internal/router"
	"github.com/noah-isme/codelab-portal/internal/service"
	"github.com/noah-isme/codelab-portal/internal/session"
)

// learningBackend emulates the upstream learning backend for one student, one
// teacher and a single exercise with one visible and one hidden test case.
type learningBackend struct {
	mu          sync.Mutex
	passing     bool
	expireRuns  bool
	submissions []map[string]interface{}
	finalBodies []map[string]interface{}
}

func (b *learningBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON := func(status int, payload interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}
	authorized := strings.HasPrefix(r.Header.Get("Authorization"), "Bearer backend-")

	switch {
	case r.URL.Path == "/StudentAuth/login":
		writeJSON(http.StatusOK, map[string]string{"token": "backend-student"})
	case r.URL.Path == "/TeacherAuth/login":
		writeJSON(http.StatusOK, map[string]string{"token": "backend-teacher"})
	case !authorized:
		writeJSON(http.StatusUnauthorized, map[string]string{"message": "token required"})
	case r.URL.Path == "/student/me":
		writeJSON(http.StatusOK, map[string]interface{}{"studentID": 7, "fullName": "An Nguyen"})
	case r.URL.Path == "/teacher/me":
		writeJSON(http.StatusOK, map[string]interface{}{"teacherID": 3, "fullName": "Ms. Lan"})
	case r.URL.Path == "/CodingExercise/coding-exercise-detail/5":
		writeJSON(http.StatusOK, map[string]interface{}{
			"exerciseID":  5,
			"lessonID":    2,
			"title":       "Sum <b>two</b> numbers",
			"description": "<p>Read two numbers</p><script>alert(1)</script>",
			"testCases": []map[string]interface{}{
				{"testCaseID": 1, "inputData": "1 2", "expectedOutput": "3", "isHidden": false},
				{"testCaseID": 2, "inputData": "5 5", "expectedOutput": "10", "isHidden": true},
			},
		})
	case r.URL.Path == "/Submission/students/7/lessons/2":
		writeJSON(http.StatusOK, b.submissions)
	case r.URL.Path == "/Submission/submissions" && r.Method == http.MethodPost:
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["isTrial"] == true {
			if b.expireRuns {
				writeJSON(http.StatusUnauthorized, map[string]string{"message": "token expired"})
				return
			}
			second := map[string]interface{}{"status": "❌ Fail", "output": "9"}
			passed := 1
			if b.passing {
				second = map[string]interface{}{"status": models.VerdictPassMarker, "output": "10"}
				passed = 2
			}
			writeJSON(http.StatusOK, map[string]interface{}{
				"passedTestCases": passed,
				"totalTestCases":  2,
				"details": []map[string]interface{}{
					{"status": models.VerdictPassMarker, "output": "3"},
					second,
				},
			})
			return
		}
		b.finalBodies = append(b.finalBodies, body)
		submission := map[string]interface{}{
			"submissionID":        100 + len(b.finalBodies),
			"studentID":           7,
			"exerciseID":          5,
			"programmingLanguage": body["programmingLanguage"],
			"submittedAt":         body["submittedAt"],
			"status":              models.SubmissionMarkerAccepted,
			"score":               100,
			"testCasesPassed":     2,
			"totalTestCases":      2,
		}
		b.submissions = append(b.submissions, submission)
		writeJSON(http.StatusOK, submission)
	case r.URL.Path == "/class/getClassByTeacherId":
		writeJSON(http.StatusOK, []map[string]interface{}{{"classID": 1, "className": "10A", "studentCount": 30}})
	case r.URL.Path == "/CodingExercise/class-exercises":
		writeJSON(http.StatusOK, []map[string]interface{}{{"exerciseID": 5, "lessonID": 2, "title": "Sum"}})
	case r.URL.Path == "/CodingExercise/5/submissions":
		writeJSON(http.StatusOK, b.submissions)
	default:
		writeJSON(http.StatusNotFound, map[string]string{"message": "not found: " + r.URL.Path})
	}
}

func (b *learningBackend) setPassing(passing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passing = passing
}

func (b *learningBackend) setExpireRuns(expire bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expireRuns = expire
}

func (b *learningBackend) finals() []map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]interface{}(nil), b.finalBodies...)
}

type portal struct {
	app      *fiber.App
	db       *gorm.DB
	redis    *miniredis.Miniredis
	upstream *learningBackend
}

func setupPortal(t *testing.T) *portal {
	t.Helper()

	upstream := &learningBackend{}
	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	cfg := config.Config{AppName: "CodeLab Portal", BackendURL: server.URL}
	bus := events.NewBus(redisClient, "codelab:test", nil, logger)
	store := session.NewStore(redisClient, time.Hour)
	issuer := session.NewIssuer("integration-secret", time.Hour, cfg.AppName)
	gateway := backend.NewClient(server.URL, backend.WithTimeout(5*time.Second), backend.WithLogger(logger))

	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	workspaceService := service.NewWorkspaceService(gateway, activityService, bus, time.Hour, logger)
	dashboardService := service.NewDashboardService(gateway, redisClient, time.Minute, 4, logger)
	store.OnDelete(workspaceService.Drop)
	dashboardService.Start(ctx, bus)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:           handler.NewAuthHandler(service.NewAuthService(gateway, store, issuer, validate, activityService, 1, logger), logger),
		LearningHandler:       handler.NewLearningHandler(service.NewLearningService(gateway, logger), logger),
		WorkspaceHandler:      handler.NewWorkspaceHandler(workspaceService, validate, logger),
		AdminDashboardHandler: handler.NewAdminDashboardHandler(dashboardService, logger),
		AdminActivityHandler:  handler.NewAdminActivityHandler(activityService, logger),
		SessionMiddleware:     middleware.SessionProtected(issuer, store),
		RunLimiter:            middleware.RateLimit("run", 100, time.Minute),
	})

	return &portal{app: app, db: db, redis: mr, upstream: upstream}
}

type envelope[T any] struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func call[T any](t *testing.T, p *portal, method, path, token string, payload interface{}) (int, envelope[T]) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := p.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded envelope[T]
	require.NoError(t, json.Unmarshal(data, &decoded), string(data))
	return resp.StatusCode, decoded
}

func loginStudent(t *testing.T, p *portal) string {
	t.Helper()
	status, resp := call[dto.LoginResponse](t, p, http.MethodPost, "/api/v1/auth/student/login", "", map[string]string{"studentID": "S-7", "password": "pw"})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "/home", resp.Data.HomeRoute)
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func TestStudentRunAndSubmitFlow(t *testing.T) {
	p := setupPortal(t)
	token := loginStudent(t, p)
	solution := dto.SolutionRequest{Code: "a, b = map(int, input().split())\nprint(a + b)", Language: "python"}

	// Step 1: opening the exercise hides hidden cases and strips markup.
	status, opened := call[dto.WorkspaceResponse](t, p, http.MethodGet, "/api/v2/student/exercises/5", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "Sum two numbers", opened.Data.Exercise.Title)
	require.NotContains(t, opened.Data.Exercise.Description, "<script>")
	require.Len(t, opened.Data.Exercise.TestCases, 1)
	require.Equal(t, 2, opened.Data.Exercise.TestCaseCount)
	require.Equal(t, grading.StatusNotAttempted, opened.Data.Status.State)
	require.False(t, opened.Data.Attempt.FinalSubmitEnabled)

	// Step 2: a partial run keeps the final submission closed.
	status, partial := call[dto.AttemptResponse](t, p, http.MethodPost, "/api/v2/student/exercises/5/run", token, solution)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, grading.StateRunPartial, partial.Data.Attempt.State)
	require.Equal(t, 1, partial.Data.Attempt.Passed)
	require.Equal(t, 2, partial.Data.Attempt.Total)
	require.False(t, partial.Data.Attempt.FinalSubmitEnabled)

	status, _ = call[json.RawMessage](t, p, http.MethodPost, "/api/v2/student/exercises/5/submit", token, solution)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.Empty(t, p.upstream.finals())

	// Step 3: an all-pass run opens the gate and the final submission is recorded.
	p.upstream.setPassing(true)
	status, passing := call[dto.AttemptResponse](t, p, http.MethodPost, "/api/v2/student/exercises/5/run", token, solution)
	require.Equal(t, fiber.StatusOK, status)
	require.True(t, passing.Data.Attempt.AllPass)
	require.True(t, passing.Data.Attempt.FinalSubmitEnabled)

	status, final := call[dto.AttemptResponse](t, p, http.MethodPost, "/api/v2/student/exercises/5/submit", token, solution)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "submission accepted", final.Message)
	require.Equal(t, grading.StateFinalAccepted, final.Data.Attempt.State)
	require.NotNil(t, final.Data.Attempt.Final)
	require.Equal(t, uint(101), final.Data.Attempt.Final.SubmissionID)

	finals := p.upstream.finals()
	require.Len(t, finals, 1)
	require.Equal(t, false, finals[0]["isTrial"])
	require.EqualValues(t, 2, finals[0]["testCasesPassed"])
	require.EqualValues(t, 2, finals[0]["totalTestCases"])
	require.Equal(t, models.SubmissionMarkerAccepted, finals[0]["status"])

	// Step 4: controls stay locked until the result is dismissed.
	status, _ = call[json.RawMessage](t, p, http.MethodPost, "/api/v2/student/exercises/5/run", token, solution)
	require.Equal(t, fiber.StatusConflict, status)

	status, dismissed := call[dto.AttemptView](t, p, http.MethodPost, "/api/v2/student/exercises/5/attempt/dismiss", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.True(t, dismissed.Data.RunEnabled)

	// Step 5: the derived status reflects the accepted submission.
	status, reopened := call[dto.WorkspaceResponse](t, p, http.MethodGet, "/api/v2/student/exercises/5", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, grading.StatusCompleted, reopened.Data.Status.State)

	// Step 6: the portal kept an audit trail.
	var actions []string
	require.NoError(t, p.db.Model(&models.ActivityLog{}).Order("id").Pluck("action", &actions).Error)
	require.Contains(t, actions, models.ActivitySessionStarted)
	require.Contains(t, actions, models.ActivityExerciseRun)
	require.Contains(t, actions, models.ActivitySubmissionFinal)
}

func TestBackendExpiryEndsSession(t *testing.T) {
	p := setupPortal(t)
	token := loginStudent(t, p)
	p.upstream.setExpireRuns(true)

	status, resp := call[json.RawMessage](t, p, http.MethodPost, "/api/v2/student/exercises/5/run", token, dto.SolutionRequest{Code: "print(3)", Language: "python"})
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.Contains(t, string(resp.Details), `"redirect":"/login"`)

	status, _ = call[json.RawMessage](t, p, http.MethodGet, "/api/v2/student/classes", token, nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestLogoutRevokesToken(t *testing.T) {
	p := setupPortal(t)
	token := loginStudent(t, p)

	status, resp := call[map[string]string](t, p, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "/login", resp.Data["redirect"])

	status, _ = call[json.RawMessage](t, p, http.MethodGet, "/api/v2/student/exercises/5", token, nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestStudentCannotReachTeacherArea(t *testing.T) {
	p := setupPortal(t)
	token := loginStudent(t, p)

	status, _ := call[json.RawMessage](t, p, http.MethodGet, "/api/admin/dashboard", token, nil)
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestTeacherDashboardCachesAndInvalidates(t *testing.T) {
	p := setupPortal(t)

	status, login := call[dto.LoginResponse](t, p, http.MethodPost, "/api/v1/auth/teacher/login", "", map[string]string{"email": "Lan@Example.com", "password": "pw"})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "/admin/classes", login.Data.HomeRoute)
	teacherToken := login.Data.Token

	status, first := call[dto.DashboardResponse](t, p, http.MethodGet, "/api/admin/dashboard", teacherToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.False(t, first.Data.CacheHit)
	require.Equal(t, 1, first.Data.Summary.TotalClasses)
	require.Equal(t, 30, first.Data.Summary.TotalStudents)
	require.Zero(t, first.Data.Summary.TotalSubmissions)

	status, second := call[dto.DashboardResponse](t, p, http.MethodGet, "/api/admin/dashboard", teacherToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.True(t, second.Data.CacheHit)
	require.True(t, p.redis.Exists("dashboard:teacher:3"))

	// A student's final submission invalidates the cached dashboard.
	studentToken := loginStudent(t, p)
	p.upstream.setPassing(true)
	solution := dto.SolutionRequest{Code: "print(3)", Language: "python"}
	status, _ = call[json.RawMessage](t, p, http.MethodGet, "/api/v2/student/exercises/5", studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = call[json.RawMessage](t, p, http.MethodPost, "/api/v2/student/exercises/5/run", studentToken, solution)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = call[json.RawMessage](t, p, http.MethodPost, "/api/v2/student/exercises/5/submit", studentToken, solution)
	require.Equal(t, fiber.StatusOK, status)

	require.Eventually(t, func() bool {
		return !p.redis.Exists("dashboard:teacher:3")
	}, 2*time.Second, 20*time.Millisecond)

	status, third := call[dto.DashboardResponse](t, p, http.MethodGet, "/api/admin/dashboard", teacherToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.False(t, third.Data.CacheHit)
	require.Equal(t, 1, third.Data.Summary.TotalSubmissions)

	status, activities := call[[]dto.ActivityResponse](t, p, http.MethodGet, "/api/admin/activities?action="+models.ActivitySubmissionFinal, teacherToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, activities.Data, 1)
	require.Equal(t, uint(7), activities.Data[0].ActorID)
}
