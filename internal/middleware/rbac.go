package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// RequireRole admits authenticated callers whose role is one of roles. It must run after the
// JWT middleware; a missing user is 401, a role outside the set is 403.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[authz.NormalizeRole(role)] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor := ActorFromContext(c)
		if !actor.Authenticated() {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if _, ok := allowed[actor.Role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// normalizeRoleValue reads the role local, which the JWT middleware stores as a string.
// Unknown and empty values resolve to the student role.
func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return authz.NormalizeRole(v)
	case fmt.Stringer:
		return authz.NormalizeRole(v.String())
	case nil:
		return authz.NormalizeRole("")
	default:
		return authz.NormalizeRole(fmt.Sprintf("%v", v))
	}
}
