package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/authz"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/utils"
)

// AttachJWTLocals turns verified claims into the request actor. Without
// claims the actor stays anonymous; JWT decides whether that is allowed.
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*utils.Claims)
		if !ok || claims == nil {
			c.Locals("actor", authz.Anonymous)
			return c.Next()
		}

		uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token subject")
		}
		role := models.Role(strings.ToLower(strings.TrimSpace(claims.Role)))
		if !role.Valid() {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token role")
		}

		c.Locals("userId", uid.String())
		c.Locals("role", string(role))
		c.Locals("actor", authz.Actor{UserID: uid, Role: role})
		return c.Next()
	}
}

// ActorFrom returns the caller attached by AttachJWTLocals.
func ActorFrom(c *fiber.Ctx) authz.Actor {
	if a, ok := c.Locals("actor").(authz.Actor); ok {
		return a
	}
	return authz.Anonymous
}
