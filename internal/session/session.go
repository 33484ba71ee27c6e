// Package session keeps portal sessions in redis and issues the signed tokens the
// browser presents on every request. A session holds the backend bearer token so
// it never leaves the portal.
package session

import (
	"context"
	"sync"
	"time"
)

// Portal roles.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// Login routes the browser is redirected to when a session ends.
const (
	StudentLoginRoute = "/login"
	TeacherLoginRoute = "/admin/login"
)

// LoginRoute returns the login page for role.
func LoginRoute(role string) string {
	if role == RoleTeacher {
		return TeacherLoginRoute
	}
	return StudentLoginRoute
}

// Session is one signed-in portal user.
type Session struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	UserID       uint      `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	BackendToken string    `json:"backend_token"`
	CreatedAt    time.Time `json:"created_at"`

	mu    sync.Mutex
	store *Store
}

// Token returns the backend bearer token, or an empty string once invalidated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.BackendToken
}

// Invalidate clears the backend token and removes the session from the store.
func (s *Session) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.BackendToken = ""
	store := s.store
	s.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Delete(ctx, s.ID)
}

// LoginRoute returns the login page for the session's role.
func (s *Session) LoginRoute() string {
	return LoginRoute(s.Role)
}
