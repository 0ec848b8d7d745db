package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
)

// RequestLogger tags a per-request slog logger with the request id set by
// fiber's requestid middleware and logs one line per request.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		rid, _ := c.Locals("requestid").(string)

		log := logger.L.With("request_id", rid)
		c.Locals("logger", log)
		c.SetUserContext(logger.InjectLogger(c.UserContext(), log))

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if uid, ok := c.Locals("userId").(string); ok {
			attrs = append(attrs, "user_id", uid)
		}
		switch {
		case status >= 500:
			log.Error("request", attrs...)
		case status >= 400:
			log.Warn("request", attrs...)
		default:
			log.Info("request", attrs...)
		}
		return err
	}
}
