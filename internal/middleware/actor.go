package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/campus-portal-api/internal/authz"
)

// ActorFromContext builds the authorization actor from the locals set by the JWT middleware.
// An unauthenticated request yields the zero actor.
func ActorFromContext(c *fiber.Ctx) authz.Actor {
	var id uint
	switch v := c.Locals("user_id").(type) {
	case uint:
		id = v
	case int:
		if v > 0 {
			id = uint(v)
		}
	}
	if id == 0 {
		return authz.Actor{}
	}
	return authz.NewActor(id, normalizeRoleValue(c.Locals("user_role")))
}
