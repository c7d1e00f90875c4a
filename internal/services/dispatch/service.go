package dispatch

import (
	"context"
	"errors"
	"sync"

	"weather-notifier/internal/channels"
	apperrors "weather-notifier/internal/common/errors"
	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/common/metrics"
	"weather-notifier/internal/common/observability"
	"weather-notifier/internal/models"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const Component = "dispatch-service"

// SubscriberSource yields the subscribers of one run. Both the Postgres store and the
// remote subscriber client satisfy it.
type SubscriberSource interface {
	ScanAll(ctx context.Context) ([]models.Subscriber, error)
}

type WeatherFetcher interface {
	Fetch(ctx context.Context, location string) (models.WeatherSnapshot, bool)
}

type WeatherLog interface {
	Append(ctx context.Context, userID string, snap models.WeatherSnapshot) error
}

type NotificationLog interface {
	Append(ctx context.Context, rec models.NotificationRecord) (models.NotificationRecord, error)
}

type ChannelResolver interface {
	Get(m models.Method) (channels.Channel, bool)
}

type Service struct {
	config   *Config
	source   SubscriberSource
	weather  WeatherFetcher
	wlog     WeatherLog
	nlog     NotificationLog
	channels ChannelResolver
	obs      *observability.Observability
	clock    clockwork.Clock
	logger   logger.Logger
}

// NewService wires a dispatch service. obs may be nil.
func NewService(
	config *Config,
	source SubscriberSource,
	weather WeatherFetcher,
	wlog WeatherLog,
	nlog NotificationLog,
	resolver ChannelResolver,
	obs *observability.Observability,
	clock clockwork.Clock,
	log logger.Logger,
) *Service {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MessageTemplate == "" {
		config.MessageTemplate = DefaultMessageTemplate
	}
	return &Service{
		config:   config,
		source:   source,
		weather:  weather,
		wlog:     wlog,
		nlog:     nlog,
		channels: resolver,
		obs:      obs,
		clock:    clock,
		logger:   logger.ForComponent(log, Component),
	}
}

// Run executes one dispatch batch. Only a failure to load subscribers is returned; every
// per-subscriber and per-channel failure is absorbed into the report. The run itself has no
// deadline: each outbound call is bounded by its own client timeout.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	ctx, span := s.obs.StartSpan(ctx, "dispatch.run")
	defer span.End()

	log := s.logger.WithFields(map[string]interface{}{"trace_id": observability.TraceID(ctx)})
	start := s.clock.Now()

	subs, err := s.source.ScanAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscriber scan failed")
		log.WithError(err).Error("subscriber scan failed", nil)
		return nil, err
	}

	report := &Report{NotificationsSent: []Delivery{}}
	if len(subs) == 0 {
		log.Info("no subscribers", nil)
		return report, nil
	}

	slots := make([][]Delivery, len(subs))
	jobs := make(chan int)

	workers := s.config.Workers
	if workers > len(subs) {
		workers = len(subs)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				metrics.DispatchInFlight.Inc()
				slots[i] = s.processSubscriber(ctx, log, subs[i])
				metrics.DispatchInFlight.Dec()
			}
		}()
	}
	for i := range subs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, deliveries := range slots {
		report.NotificationsSent = append(report.NotificationsSent, deliveries...)
	}

	elapsed := s.clock.Since(start)
	metrics.DispatchDuration.Observe(elapsed.Seconds())
	s.obs.RecordDispatchRun(ctx, elapsed, len(subs), len(report.NotificationsSent))

	sent, failed := report.Counts()
	span.SetAttributes(
		attribute.Int("dispatch.subscribers", len(subs)),
		attribute.Int("dispatch.sent", sent),
		attribute.Int("dispatch.failed", failed),
	)
	log.Info("dispatch finished", map[string]interface{}{
		"subscribers": len(subs),
		"sent":        sent,
		"failed":      failed,
		"duration_ms": elapsed.Milliseconds(),
	})

	return report, nil
}

type target struct {
	channel channels.Channel
	contact string
}

func (s *Service) processSubscriber(ctx context.Context, log logger.Logger, sub models.Subscriber) []Delivery {
	log = log.WithFields(map[string]interface{}{"user_id": sub.UserID})

	snap, ok := s.weather.Fetch(ctx, sub.Location)
	if !ok {
		log.Warn("weather unavailable, subscriber skipped", map[string]interface{}{"location": sub.Location})
		return nil
	}

	if err := s.wlog.Append(ctx, sub.UserID, snap); err != nil {
		log.Warn("weather log append failed", map[string]interface{}{"error": err})
	}

	message := renderTemplate(s.config.MessageTemplate, messageData(snap, sub.Location))
	targets := s.targets(log, sub)
	if len(targets) == 0 {
		return nil
	}

	deliveries := make([]Delivery, len(targets))
	var wg sync.WaitGroup
	for i, tg := range targets {
		wg.Add(1)
		go func(i int, tg target) {
			defer wg.Done()
			deliveries[i] = s.deliver(ctx, log, sub, tg, message)
		}(i, tg)
	}
	wg.Wait()

	return deliveries
}

// targets resolves the subscriber's requested channels in request order. A channel with no
// matching contact field is skipped without a record.
func (s *Service) targets(log logger.Logger, sub models.Subscriber) []target {
	var out []target
	seen := make(map[models.Method]bool, len(sub.NotificationMethod))
	for _, m := range sub.NotificationMethod {
		if seen[m] {
			continue
		}
		seen[m] = true

		ch, ok := s.channels.Get(m)
		if !ok {
			log.Warn("unknown notification method", map[string]interface{}{"method": string(m)})
			continue
		}
		contact := ch.Contact(sub)
		if contact == "" {
			continue
		}
		out = append(out, target{channel: ch, contact: contact})
	}
	return out
}

func (s *Service) deliver(ctx context.Context, log logger.Logger, sub models.Subscriber, tg target, message string) Delivery {
	method := tg.channel.Method()
	status := models.StatusSent

	if err := tg.channel.Send(ctx, tg.contact, message); err != nil {
		status = models.StatusFailed
		failLog := log.WithError(apperrors.NewNotificationSendFailedError(string(method), err))
		fields := map[string]interface{}{"method": string(method)}
		if errors.Is(err, channels.ErrChannelDisabled) {
			failLog.Debug("channel disabled", fields)
		} else {
			failLog.Warn("delivery failed", fields)
		}
	}

	_, err := s.nlog.Append(ctx, models.NotificationRecord{
		UserID:   sub.UserID,
		Location: sub.Location,
		Method:   method,
		Status:   status,
		Message:  message,
		LoggedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		log.Error("notification log append failed", map[string]interface{}{
			"method": string(method),
			"error":  err,
		})
		status = models.StatusFailed
	}

	metrics.NotificationsTotal.WithLabelValues(string(method), string(status)).Inc()
	s.obs.RecordDelivery(ctx, string(method), string(status))

	return Delivery{UserID: sub.UserID, Method: method, Status: status}
}
