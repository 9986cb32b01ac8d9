package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/admission-go-api/internal/utils"
)

// RequireRole admits requests whose actor holds one of roles. It must run after JWTProtected:
// a request without an actor is unauthenticated, one with the wrong role is forbidden.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := normalizeRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(LocalUserID).(uint); !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		role, _ := c.Locals(LocalUserRole).(string)
		if _, ok := allowed[normalizeRole(role)]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
