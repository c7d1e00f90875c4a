package api

import (
	"errors"

	apperrors "weather-notifier/internal/common/errors"
	"weather-notifier/internal/common/logger"

	"github.com/gofiber/fiber/v2"
)

func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperrors.HTTPStatus(err)
}

// ErrorHandler renders every error as {"error": message}. Application errors map through
// their code; store failures are logged and reported generically.
func ErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		status := apperrors.HTTPStatus(err)
		message := "Internal server error"
		if se, ok := apperrors.AsStandard(err); ok && status < fiber.StatusInternalServerError {
			message = se.Message
		}

		if status >= fiber.StatusInternalServerError {
			log.Error("request failed", map[string]interface{}{
				"method": c.Method(),
				"path":   c.Path(),
				"status": status,
				"error":  err,
			})
		}

		return c.Status(status).JSON(fiber.Map{"error": message})
	}
}
