package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNetwork indicates the request never produced a response.
	ErrNetwork = errors.New("learning backend unreachable")
	// ErrUnauthorized indicates the backend rejected the bearer token or credentials.
	ErrUnauthorized = errors.New("learning backend rejected credentials")
	// ErrMalformedResponse indicates a response body missing required fields.
	ErrMalformedResponse = errors.New("malformed learning backend response")
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("learning backend resource not found")
)

const maxMessageLength = 512

// RejectionError is a non-2xx backend response carrying a message.
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("learning backend rejected request with status %d", e.StatusCode)
	}
	return fmt.Sprintf("learning backend rejected request with status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match ErrNotFound for 404 responses.
func (e *RejectionError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// RejectionMessage returns the backend-provided message carried by err, if any.
func RejectionMessage(err error) string {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Message
	}
	return ""
}

type errorResponse struct {
	Message string `json:"message"`
	Title   string `json:"title"`
	Error   string `json:"error"`
}

func newRejection(status int, body []byte) *RejectionError {
	return &RejectionError{StatusCode: status, Message: extractMessage(body)}
}

func extractMessage(body []byte) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, candidate := range []string{payload.Message, payload.Title, payload.Error} {
			if trimmed := strings.TrimSpace(candidate); trimmed != "" {
				return truncate(trimmed)
			}
		}
		return ""
	}

	var text string
	if err := json.Unmarshal(body, &text); err == nil {
		return truncate(strings.TrimSpace(text))
	}
	return truncate(strings.TrimSpace(string(body)))
}

// truncate caps value at maxMessageLength bytes without splitting a rune.
func truncate(value string) string {
	value = strings.ToValidUTF8(value, "")
	if len(value) <= maxMessageLength {
		return value
	}
	cut := maxMessageLength
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
