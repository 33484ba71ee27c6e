package dto

import "time"

// StudentLoginRequest carries student credentials.
type StudentLoginRequest struct {
	StudentID string `json:"studentID" validate:"required,max=64"`
	Password  string `json:"password" validate:"required,max=256"`
}

// TeacherLoginRequest carries teacher credentials.
type TeacherLoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse is returned after a successful sign-in.
type LoginResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Role        string    `json:"role"`
	UserID      uint      `json:"userId"`
	DisplayName string    `json:"displayName"`
	HomeRoute   string    `json:"homeRoute"`
}
