package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/session"
)

// Landing routes after a successful sign-in.
const (
	StudentHomeRoute = "/home"
	TeacherHomeRoute = "/admin/classes"
)

// AuthService signs users in through the backend and manages portal sessions.
type AuthService interface {
	LoginStudent(ctx context.Context, req dto.StudentLoginRequest) (dto.LoginResponse, error)
	LoginTeacher(ctx context.Context, req dto.TeacherLoginRequest) (dto.LoginResponse, error)
	Logout(ctx context.Context, sess *session.Session) error
}

type authService struct {
	gateway          AuthGateway
	store            *session.Store
	issuer           *session.Issuer
	validator        *validator.Validate
	defaultTeacherID uint
	logger           zerolog.Logger
	audit            recorder
}

// NewAuthService constructs the authentication service.
func NewAuthService(gateway AuthGateway, store *session.Store, issuer *session.Issuer, validate *validator.Validate, activity ActivityRecorder, defaultTeacherID uint, logger zerolog.Logger) AuthService {
	log := logger.With().Str("component", "auth_service").Logger()
	return &authService{
		gateway:          gateway,
		store:            store,
		issuer:           issuer,
		validator:        validate,
		defaultTeacherID: defaultTeacherID,
		logger:           log,
		audit:            recorder{activity: activity, logger: log},
	}
}

// bearer carries a freshly issued backend token before a session exists.
type bearer string

func (b bearer) Token() string                    { return string(b) }
func (b bearer) Invalidate(context.Context) error { return nil }

func (s *authService) LoginStudent(ctx context.Context, req dto.StudentLoginRequest) (dto.LoginResponse, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	token, err := s.gateway.StudentLogin(ctx, req.StudentID, req.Password)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	student, err := s.gateway.CurrentStudent(ctx, bearer(token))
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return s.start(ctx, session.RoleStudent, student.ID, student.DisplayName(), token)
}

func (s *authService) LoginTeacher(ctx context.Context, req dto.TeacherLoginRequest) (dto.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	token, err := s.gateway.TeacherLogin(ctx, req.Email, req.Password)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	teacher, err := s.gateway.CurrentTeacher(ctx, bearer(token))
	if err != nil {
		if backend.IsAuthFailure(err) {
			return dto.LoginResponse{}, err
		}
		s.logger.Warn().Err(err).Uint("teacher_id", s.defaultTeacherID).Msg("teacher profile unavailable, using configured teacher id")
		teacher = models.Teacher{ID: s.defaultTeacherID, Email: req.Email}
	}

	name := teacher.FullName
	if name == "" {
		name = teacher.Email
	}
	return s.start(ctx, session.RoleTeacher, teacher.ID, name, token)
}

func (s *authService) Logout(ctx context.Context, sess *session.Session) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sess.ID); err != nil {
		return err
	}
	s.audit.record(ctx, sess, models.ActivitySessionEnded, "session", 0, nil)
	return nil
}

func (s *authService) start(ctx context.Context, role string, userID uint, displayName, token string) (dto.LoginResponse, error) {
	sess, err := s.store.Create(ctx, role, userID, displayName, token)
	if err != nil {
		s.logger.Error().Err(err).Str("role", role).Msg("failed to create session")
		return dto.LoginResponse{}, err
	}

	signed, expiresAt, err := s.issuer.Issue(sess)
	if err != nil {
		_ = s.store.Delete(ctx, sess.ID)
		return dto.LoginResponse{}, err
	}

	s.audit.record(ctx, sess, models.ActivitySessionStarted, "session", 0, nil)

	home := StudentHomeRoute
	if role == session.RoleTeacher {
		home = TeacherHomeRoute
	}
	return dto.LoginResponse{
		Token:       signed,
		ExpiresAt:   expiresAt,
		Role:        role,
		UserID:      userID,
		DisplayName: displayName,
		HomeRoute:   home,
	}, nil
}
