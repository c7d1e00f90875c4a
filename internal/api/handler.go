package api

import (
	"context"
	"encoding/json"
	"strings"

	apperrors "weather-notifier/internal/common/errors"
	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/models"
	"weather-notifier/internal/services/dispatch"
	"weather-notifier/internal/services/subscription"

	"github.com/gofiber/fiber/v2"
)

const Component = "http-api"

type SubscriptionService interface {
	Subscribe(ctx context.Context, req subscription.Request) (*subscription.Result, error)
	Users(ctx context.Context) ([]models.Subscriber, error)
	Email(ctx context.Context, userID string) (*subscription.EmailLookup, error)
	LatestWeather(ctx context.Context, userID, location string) (*models.WeatherSnapshot, error)
}

type Dispatcher interface {
	Run(ctx context.Context) (*dispatch.Report, error)
}

type NotificationLister interface {
	List(ctx context.Context) ([]models.NotificationRecord, error)
}

type Handler struct {
	subscriptions SubscriptionService
	dispatcher    Dispatcher
	notifications NotificationLister
	logger        logger.Logger
}

func NewHandler(subs SubscriptionService, dispatcher Dispatcher, notifications NotificationLister, log logger.Logger) *Handler {
	return &Handler{
		subscriptions: subs,
		dispatcher:    dispatcher,
		notifications: notifications,
		logger:        logger.ForComponent(log, Component),
	}
}

// RegisterRoutes wires the public routes into app.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Post("/subscribe", h.subscribe)
	app.Get("/users", h.users)
	app.Get("/get_subscribed_users", h.subscribedUsers)
	app.Get("/get_user_email", h.userEmail)
	app.Get("/weather", h.weather)
	app.Post("/send_notifications", h.sendNotifications)
	app.Get("/notification_logs", h.notificationLogs)
}

func (h *Handler) subscribe(c *fiber.Ctx) error {
	body := c.Body()
	if res := subscribeSchema.ValidateDocument(body); !res.Valid {
		first, _ := res.First()
		field := first.Field
		if field == "(root)" {
			field = "body"
		}
		return apperrors.NewValidationError(field, first.Message)
	}

	var req subscription.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.NewValidationError("body", "request body must be a JSON object")
	}

	result, err := h.subscriptions.Subscribe(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *Handler) users(c *fiber.Ctx) error {
	users, err := h.subscriptions.Users(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

func (h *Handler) subscribedUsers(c *fiber.Ctx) error {
	users, err := h.subscriptions.Users(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users})
}

func (h *Handler) userEmail(c *fiber.Ctx) error {
	lookup, err := h.subscriptions.Email(c.UserContext(), strings.TrimSpace(c.Query("user_id")))
	if err != nil {
		return err
	}
	return c.JSON(lookup)
}

func (h *Handler) weather(c *fiber.Ctx) error {
	snap, err := h.subscriptions.LatestWeather(c.UserContext(),
		strings.TrimSpace(c.Query("user_id")),
		strings.TrimSpace(c.Query("location")),
	)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (h *Handler) sendNotifications(c *fiber.Ctx) error {
	report, err := h.dispatcher.Run(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (h *Handler) notificationLogs(c *fiber.Ctx) error {
	records, err := h.notifications.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(records)
}
