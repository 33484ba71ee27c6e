package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codelab-portal/internal/session"
	"github.com/noah-isme/codelab-portal/internal/utils"
)

// RequireRole admits requests whose session role is one of roles. Everyone
// else gets 403 pointing at the login page of the first role, so a student who
// wanders into the teacher area is sent to the teacher sign-in.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	loginRoute := ""
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized == "" {
			continue
		}
		allowed[normalized] = struct{}{}
		if loginRoute == "" {
			loginRoute = session.LoginRoute(normalized)
		}
	}
	if loginRoute == "" {
		loginRoute = session.StudentLoginRoute
	}

	return func(c *fiber.Ctx) error {
		if _, ok := allowed[requestRole(c)]; !ok {
			return utils.Redirect(c, fiber.StatusForbidden, "insufficient permissions", loginRoute)
		}
		return c.Next()
	}
}

// requestRole prefers the bound session and falls back to the user_role local.
func requestRole(c *fiber.Ctx) string {
	if sess := SessionFromContext(c); sess != nil {
		return strings.ToLower(sess.Role)
	}
	role, _ := c.Locals("user_role").(string)
	return strings.ToLower(strings.TrimSpace(role))
}
