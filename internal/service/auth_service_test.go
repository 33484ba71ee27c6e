package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/session"
)

func newAuthFixture(t *testing.T, gateway *fakeGateway) (AuthService, *session.Store, *session.Issuer, *memoryRecorder) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := session.NewStore(client, time.Hour)
	issuer := session.NewIssuer("test-secret", time.Hour, "codelab-portal")
	activity := &memoryRecorder{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewAuthService(gateway, store, issuer, validate, activity, 42, testLogger()), store, issuer, activity
}

func TestAuthServiceLoginStudentCreatesSession(t *testing.T) {
	gateway := newFakeGateway()
	gateway.student = models.Student{ID: 7, FirstName: "Lan", LastName: "Nguyen"}
	svc, store, issuer, activity := newAuthFixture(t, gateway)

	resp, err := svc.LoginStudent(context.Background(), dto.StudentLoginRequest{StudentID: " S001 ", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, session.RoleStudent, resp.Role)
	require.Equal(t, uint(7), resp.UserID)
	require.Equal(t, StudentHomeRoute, resp.HomeRoute)
	require.NotEmpty(t, resp.DisplayName)

	claims, err := issuer.Parse(resp.Token)
	require.NoError(t, err)
	sess, err := store.Get(context.Background(), claims.Subject)
	require.NoError(t, err)
	require.Equal(t, "student-token", sess.Token())
	require.Equal(t, []string{models.ActivitySessionStarted}, activity.actions())
}

func TestAuthServiceLoginStudentRejectsBadCredentials(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t, newFakeGateway())

	_, err := svc.LoginStudent(context.Background(), dto.StudentLoginRequest{StudentID: "S001", Password: "wrong"})
	require.ErrorIs(t, err, backend.ErrUnauthorized)

	_, err = svc.LoginStudent(context.Background(), dto.StudentLoginRequest{StudentID: "", Password: "secret"})
	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))
}

func TestAuthServiceLoginTeacherFallsBackToConfiguredID(t *testing.T) {
	gateway := newFakeGateway()
	gateway.teacherErr = backend.ErrNotFound
	svc, _, _, _ := newAuthFixture(t, gateway)

	resp, err := svc.LoginTeacher(context.Background(), dto.TeacherLoginRequest{Email: "Teacher@Example.com", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, session.RoleTeacher, resp.Role)
	require.Equal(t, uint(42), resp.UserID)
	require.Equal(t, "teacher@example.com", resp.DisplayName)
	require.Equal(t, TeacherHomeRoute, resp.HomeRoute)
}

func TestAuthServiceLogoutDeletesSession(t *testing.T) {
	gateway := newFakeGateway()
	gateway.teacher = models.Teacher{ID: 3, FullName: "Ms. Hoa"}
	svc, store, issuer, activity := newAuthFixture(t, gateway)

	dropped := ""
	store.OnDelete(func(id string) { dropped = id })

	resp, err := svc.LoginTeacher(context.Background(), dto.TeacherLoginRequest{Email: "hoa@example.com", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, "Ms. Hoa", resp.DisplayName)

	claims, err := issuer.Parse(resp.Token)
	require.NoError(t, err)
	sess, err := store.Get(context.Background(), claims.Subject)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), sess))
	_, err = store.Get(context.Background(), claims.Subject)
	require.ErrorIs(t, err, session.ErrSessionNotFound)
	require.Equal(t, sess.ID, dropped)
	require.Contains(t, activity.actions(), models.ActivitySessionEnded)
}
