package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-evaluation-api/internal/utils"
)

// Roles carried in evaluation API tokens.
const (
	AuthRoleAny      = "any"
	AuthRoleAdmin    = "admin"
	AuthRoleLecturer = "lecturer"
	AuthRoleStudent  = "student"
)

// AuthOptions configures the WithAuth helper. An empty Roles list admits any
// authenticated user, or anyone at all when RequireUser is false.
type AuthOptions struct {
	Roles       []string
	RequireUser bool
}

// WithAuth wraps a single handler with authentication and role guards.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	allowed := make(map[string]struct{}, len(opts.Roles))
	for _, role := range opts.Roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" && normalized != AuthRoleAny {
			allowed[normalized] = struct{}{}
		}
	}
	requireUser := opts.RequireUser || len(allowed) > 0

	return func(c *fiber.Ctx) error {
		if c.Locals(LocalUserID) == nil {
			if requireUser {
				return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
			}
			return handler(c)
		}

		if len(allowed) > 0 {
			if _, ok := allowed[roleString(c.Locals(LocalUserRole))]; !ok {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		}
		return handler(c)
	}
}
