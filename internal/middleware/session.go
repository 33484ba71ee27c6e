package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codelab-portal/internal/session"
	"github.com/noah-isme/codelab-portal/internal/utils"
)

const sessionLocal = "portal_session"

// AuthFailureDetails tells the browser where to send the user after the session ended.
type AuthFailureDetails = utils.RedirectDetails

// SendAuthFailure answers 401 with the login route for the caller's area.
func SendAuthFailure(c *fiber.Ctx, loginRoute, message string) error {
	if message == "" {
		message = "session expired"
	}
	return utils.Redirect(c, fiber.StatusUnauthorized, message, loginRoute)
}

// LoginRouteForPath picks the login page matching the area a request targets.
func LoginRouteForPath(path string) string {
	if strings.HasPrefix(path, "/api/admin") {
		return session.TeacherLoginRoute
	}
	return session.StudentLoginRoute
}

// SessionProtected validates the portal bearer token and loads its session. The
// session is exposed through SessionFromContext and the user_id/user_role locals.
func SessionProtected(issuer *session.Issuer, store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loginRoute := LoginRouteForPath(c.Path())

		authorization := c.Get(fiber.HeaderAuthorization)
		if authorization == "" {
			return SendAuthFailure(c, loginRoute, "authorization header missing")
		}

		const bearer = "Bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return SendAuthFailure(c, loginRoute, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return SendAuthFailure(c, loginRoute, "invalid token")
		}

		claims, err := issuer.Parse(tokenString)
		if err != nil {
			return SendAuthFailure(c, loginRoute, "invalid token")
		}
		loginRoute = session.LoginRoute(claims.Role)

		sess, err := store.Get(c.UserContext(), claims.Subject)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				return SendAuthFailure(c, loginRoute, "session expired")
			}
			return utils.SendError(c, fiber.StatusServiceUnavailable, "session store unavailable")
		}
		if sess.Role != claims.Role || sess.UserID != claims.UserID {
			return SendAuthFailure(c, loginRoute, "invalid token")
		}

		SetSession(c, sess)
		return c.Next()
	}
}

// SetSession binds sess to the request.
func SetSession(c *fiber.Ctx, sess *session.Session) {
	c.Locals(sessionLocal, sess)
	c.Locals("user_id", sess.UserID)
	c.Locals("user_role", sess.Role)
}

// SessionFromContext returns the session loaded by SessionProtected.
func SessionFromContext(c *fiber.Ctx) *session.Session {
	if value, ok := c.Locals(sessionLocal).(*session.Session); ok {
		return value
	}
	return nil
}
