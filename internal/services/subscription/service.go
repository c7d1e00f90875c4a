package subscription

import (
	"context"
	"errors"

	apperrors "weather-notifier/internal/common/errors"
	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/common/metrics"
	"weather-notifier/internal/common/validation"
	"weather-notifier/internal/models"
	subscriberstore "weather-notifier/internal/stores/subscriber-store"

	"github.com/jonboulle/clockwork"
)

const Component = "subscription-service"

const (
	msgContactRequired = "Either email_id or phone number is required."
	msgInvalidMethod   = "Invalid notification method. Choose 'email' or 'SMS'."
	msgInvalidUnits    = "Invalid preferred_units. Choose 'Celsius' or 'Fahrenheit'."
	msgUserIDRequired  = "User ID is required"
	msgUserNotFound    = "User not found or no email provided"
	msgNoWeather       = "No weather recorded for this user and location"
)

type Store interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Insert(ctx context.Context, sub models.Subscriber) error
	ScanAll(ctx context.Context) ([]models.Subscriber, error)
	FindEmail(ctx context.Context, userID string) (string, bool, error)
}

type WeatherFetcher interface {
	Fetch(ctx context.Context, location string) (models.WeatherSnapshot, bool)
}

type WeatherLog interface {
	Append(ctx context.Context, userID string, snap models.WeatherSnapshot) error
	Latest(ctx context.Context, userID, location string) (models.WeatherSnapshot, bool, error)
}

type Service struct {
	store      Store
	weather    WeatherFetcher
	weatherLog WeatherLog
	validator  *validation.Validator
	clock      clockwork.Clock
	logger     logger.Logger
}

func NewService(store Store, weather WeatherFetcher, weatherLog WeatherLog, clock clockwork.Clock, log logger.Logger) *Service {
	v := validation.New().
		WithMessage("email_id", "required_without", msgContactRequired).
		WithMessage("phone_number", "required_without", msgContactRequired).
		WithMessage("notification_method", "min", msgInvalidMethod).
		WithMessage("notification_method", "oneof", msgInvalidMethod).
		WithMessage("preferred_units", "oneof", msgInvalidUnits)

	return &Service{
		store:      store,
		weather:    weather,
		weatherLog: weatherLog,
		validator:  v,
		clock:      clock,
		logger:     logger.ForComponent(log, Component),
	}
}

// Subscribe validates, persists and enriches one subscription. Enrichment never fails the
// request.
func (s *Service) Subscribe(ctx context.Context, req Request) (*Result, error) {
	req = req.normalized()

	if err := s.validate(req); err != nil {
		metrics.SubscriptionsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}

	exists, err := s.store.Exists(ctx, req.UserID)
	if err != nil {
		metrics.SubscriptionsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	if exists {
		metrics.SubscriptionsTotal.WithLabelValues(metrics.ResultConflict).Inc()
		return nil, apperrors.NewConflictError(req.UserID)
	}

	sub := req.toSubscriber()
	sub.CreatedAt = s.clock.Now().UTC()
	if err := s.store.Insert(ctx, sub); err != nil {
		if errors.Is(err, subscriberstore.ErrDuplicateSubscriber) {
			metrics.SubscriptionsTotal.WithLabelValues(metrics.ResultConflict).Inc()
			return nil, apperrors.NewConflictError(req.UserID)
		}
		metrics.SubscriptionsTotal.WithLabelValues(metrics.ResultError).Inc()
		s.logger.Error("subscriber insert failed", map[string]interface{}{
			"user_id": req.UserID,
			"error":   err,
		})
		return nil, err
	}

	metrics.SubscriptionsTotal.WithLabelValues(metrics.ResultAccepted).Inc()
	result := &Result{Message: SuccessMessage}

	snap, ok := s.weather.Fetch(ctx, sub.Location)
	if !ok {
		s.logger.Info("subscribed without weather", map[string]interface{}{
			"user_id":  sub.UserID,
			"location": sub.Location,
		})
		return result, nil
	}

	if err := s.weatherLog.Append(ctx, sub.UserID, snap); err != nil {
		s.logger.Warn("weather log append failed", map[string]interface{}{
			"user_id": sub.UserID,
			"error":   err,
		})
	}
	result.Weather = &snap

	s.logger.Info("subscribed", map[string]interface{}{
		"user_id":  sub.UserID,
		"location": sub.Location,
		"methods":  sub.MethodStrings(),
	})
	return result, nil
}

func (s *Service) validate(req Request) error {
	res := s.validator.Struct(req)
	if res.Valid {
		return nil
	}
	first, _ := res.First()
	return apperrors.NewValidationError(first.Field, first.Message)
}

func (s *Service) Users(ctx context.Context) ([]models.Subscriber, error) {
	return s.store.ScanAll(ctx)
}

func (s *Service) Email(ctx context.Context, userID string) (*EmailLookup, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id", msgUserIDRequired)
	}

	email, found, err := s.store.FindEmail(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NewResourceNotFoundError("subscriber", msgUserNotFound)
	}
	return &EmailLookup{UserID: userID, EmailID: email}, nil
}

// LatestWeather returns the newest recorded snapshot for a subscriber's location.
func (s *Service) LatestWeather(ctx context.Context, userID, location string) (*models.WeatherSnapshot, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id", msgUserIDRequired)
	}
	if location == "" {
		return nil, apperrors.NewValidationError("location", "location is required")
	}

	snap, found, err := s.weatherLog.Latest(ctx, userID, location)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NewResourceNotFoundError("weather", msgNoWeather)
	}
	return &snap, nil
}
