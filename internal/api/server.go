package api

import (
	"time"

	"weather-notifier/internal/common/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

type ServerConfig struct {
	AppName      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp builds the fiber app with middleware, error handling and all routes registered.
func NewApp(cfg ServerConfig, h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          ErrorHandler(h.logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(accessLog(h.logger))

	h.RegisterRoutes(app)
	return app
}

func accessLog(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusFor(err)
		}
		log.Debug("request", map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"request_id":  c.GetRespHeader(fiber.HeaderXRequestID),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return err
	}
}
