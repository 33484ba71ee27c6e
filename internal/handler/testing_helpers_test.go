package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codelab-portal/internal/middleware"
	"github.com/noah-isme/codelab-portal/internal/session"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func studentSession() *session.Session {
	return &session.Session{ID: "sess-student", Role: session.RoleStudent, UserID: 7, BackendToken: "backend-student"}
}

func teacherSession() *session.Session {
	return &session.Session{ID: "sess-teacher", Role: session.RoleTeacher, UserID: 3, BackendToken: "backend-teacher"}
}

// newGroup returns an app and a group that binds sess to every request. A nil
// session leaves the request anonymous.
func newGroup(prefix string, sess *session.Session) (*fiber.App, fiber.Router) {
	app := fiber.New()
	group := app.Group(prefix, func(c *fiber.Ctx) error {
		if sess != nil {
			middleware.SetSession(c, sess)
		}
		return c.Next()
	})
	return app, group
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) *http.Response {
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
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	return env
}
