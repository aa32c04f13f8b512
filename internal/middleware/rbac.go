package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// RequireRole ensures the authenticated actor holds one of the allowed roles.
// Ownership checks stay in the lifecycle layer; this only trims obviously
// misdirected calls early.
func RequireRole(roles ...lifecycle.Role) fiber.Handler {
	allowed := make(map[lifecycle.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if _, ok := allowed[actor.Role]; !ok {
			return utils.SendRejection(c, fiber.StatusForbidden, string(lifecycle.CodeInsufficientPermissions), "insufficient permissions", nil)
		}
		return c.Next()
	}
}
