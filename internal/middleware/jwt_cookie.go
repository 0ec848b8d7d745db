package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/utils"
)

const TokenCookie = "hm_token"

// tokenFrom prefers the Authorization header and falls back to the session
// cookie set at login.
func tokenFrom(c *fiber.Ctx) string {
	if h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if q := c.Query("token"); q != "" && websocketUpgrade(c) {
		return q
	}
	return c.Cookies(TokenCookie)
}

// browsers cannot set headers on a websocket handshake
func websocketUpgrade(c *fiber.Ctx) bool {
	return strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket")
}

// JWT rejects requests without a valid, unexpired token.
func JWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing credentials")
		}

		claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}

// OptionalJWT attaches claims when a valid token is present and lets
// anonymous requests through.
func OptionalJWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenStr := tokenFrom(c); tokenStr != "" {
			if claims, err := utils.ParseJWT(secret, tokenStr); err == nil {
				c.Locals("claims", claims)
			}
		}
		return c.Next()
	}
}
