package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindDuplicateEmail:          fiber.StatusConflict,
	apperr.KindInvalidCredentials:      fiber.StatusUnauthorized,
	apperr.KindForbidden:               fiber.StatusForbidden,
	apperr.KindNotFound:                fiber.StatusNotFound,
	apperr.KindDailyLimitExceeded:      fiber.StatusTooManyRequests,
	apperr.KindDuplicatePendingRequest: fiber.StatusConflict,
	apperr.KindInvalidTransition:       fiber.StatusConflict,
	apperr.KindNotVerified:             fiber.StatusForbidden,
	apperr.KindAlreadyRated:            fiber.StatusConflict,
	apperr.KindNotRateable:             fiber.StatusConflict,
	apperr.KindInvalidRating:           fiber.StatusUnprocessableEntity,
	apperr.KindValidation:              fiber.StatusUnprocessableEntity,
	apperr.KindServiceUnavailable:      fiber.StatusServiceUnavailable,
}

// StatusFor maps an engine error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return fiber.StatusInternalServerError
}

// respondError writes the failure envelope. Unclassified errors are logged
// and hidden behind a generic message.
func respondError(c *fiber.Ctx, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body := fiber.Map{
			"success": false,
			"message": ae.Message,
			"code":    ae.Kind,
		}
		if len(ae.Fields) > 0 {
			body["errors"] = ae.Fields
		}
		return c.Status(StatusFor(ae.Kind)).JSON(body)
	}

	logger.WithCtx(c.UserContext()).Error("unhandled error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "internal server error",
		"code":    "Internal",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return respondError(c, apperr.Validation(map[string][]string{"body": {msg}}))
}

// ErrorHandler renders errors returned from middleware (401, 403, 404 routes)
// in the same envelope as handler errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "Error"
		switch fe.Code {
		case fiber.StatusUnauthorized:
			code = "Unauthorized"
		case fiber.StatusForbidden:
			code = string(apperr.KindForbidden)
		case fiber.StatusNotFound:
			code = string(apperr.KindNotFound)
		}
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"message": fe.Message,
			"code":    code,
		})
	}
	return respondError(c, err)
}
