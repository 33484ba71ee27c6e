package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/noah-isme/codelab-portal/internal/models"
)

type studentLoginRequest struct {
	StudentID string `json:"studentID"`
	Password  string `json:"password"`
}

type teacherLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// StudentLogin exchanges student credentials for a backend bearer token.
func (c *Client) StudentLogin(ctx context.Context, studentID, password string) (string, error) {
	return c.login(ctx, "student_login", c.getURL("/StudentAuth/login"), studentLoginRequest{
		StudentID: studentID,
		Password:  password,
	})
}

// TeacherLogin exchanges teacher credentials for a backend bearer token.
func (c *Client) TeacherLogin(ctx context.Context, email, password string) (string, error) {
	return c.login(ctx, "teacher_login", c.getURL("/TeacherAuth/login"), teacherLoginRequest{
		Email:    email,
		Password: password,
	})
}

func (c *Client) login(ctx context.Context, operation, target string, payload any) (string, error) {
	var resp tokenResponse
	if err := c.call(ctx, nil, operation, http.MethodPost, target, payload, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%w: token missing", ErrMalformedResponse)
	}
	return resp.Token, nil
}

// CurrentStudent returns the profile behind the session token.
func (c *Client) CurrentStudent(ctx context.Context, sess Session) (models.Student, error) {
	var student models.Student
	err := c.call(ctx, sess, "current_student", http.MethodGet, c.getURL("/student/me"), nil, &student)
	return student, err
}

// CurrentTeacher returns the profile behind the session token.
func (c *Client) CurrentTeacher(ctx context.Context, sess Session) (models.Teacher, error) {
	var teacher models.Teacher
	err := c.call(ctx, sess, "current_teacher", http.MethodGet, c.getURL("/teacher/me"), nil, &teacher)
	return teacher, err
}
