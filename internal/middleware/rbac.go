package middleware

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-evaluation-api/internal/utils"
)

// RequireRole admits only principals whose role is one of roles. It must run
// after JWTProtected: a request without a principal gets 401, a principal with
// another role gets 403 listing the accepted roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	accepted := make([]string, 0, len(roles))
	for _, role := range roles {
		normalized := roleString(role)
		if normalized == "" {
			continue
		}
		if _, seen := allowed[normalized]; !seen {
			allowed[normalized] = struct{}{}
			accepted = append(accepted, normalized)
		}
	}
	sort.Strings(accepted)

	return func(c *fiber.Ctx) error {
		if c.Locals(LocalUserID) == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		role := roleString(c.Locals(LocalUserRole))
		if _, ok := allowed[role]; !ok {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{
				"role":    role,
				"allowed": accepted,
			})
		}
		return c.Next()
	}
}

// roleString lowercases a role from a claim or local, whatever its dynamic type.
func roleString(value interface{}) string {
	var raw string
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		raw = v
	case fmt.Stringer:
		raw = v.String()
	default:
		raw = fmt.Sprint(v)
	}
	return strings.ToLower(strings.TrimSpace(raw))
}
