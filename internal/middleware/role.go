package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
)

// RequireRoles must run after AttachJWTLocals.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		actor := ActorFrom(c)
		if !actor.Authenticated() {
			return fiber.NewError(fiber.StatusUnauthorized, "missing credentials")
		}
		if !allowedSet[actor.Role] {
			return fiber.NewError(fiber.StatusForbidden, "forbidden: insufficient role")
		}
		return c.Next()
	}
}
