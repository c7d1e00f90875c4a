package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"weather-notifier/internal/api"
	"weather-notifier/internal/channels"
	commonaws "weather-notifier/internal/common/aws"
	"weather-notifier/internal/common/config"
	"weather-notifier/internal/common/database"
	commonhttp "weather-notifier/internal/common/http"
	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/common/observability"
	subscriberclient "weather-notifier/internal/integrations/subscriber-client"
	weathergateway "weather-notifier/internal/integrations/weather-gateway"
	"weather-notifier/internal/scheduler"
	"weather-notifier/internal/services/dispatch"
	"weather-notifier/internal/services/subscription"
	notificationlog "weather-notifier/internal/stores/notification-log"
	subscriberstore "weather-notifier/internal/stores/subscriber-store"
	weatherlog "weather-notifier/internal/stores/weather-log"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting weather-notifier...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("observability disabled", zap.Error(err))
	}

	ctx := context.Background()
	clock := clockwork.NewRealClock()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Migrations.Enabled {
		version, err := database.RunMigrations(pg.DB, cfg.Migrations.Table)
		if err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("Migrations applied", zap.Uint("version", version))
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) ---
	var indexer *notificationlog.Indexer
	checks := []readinessCheck{
		{name: "postgres", ping: pg.Ping},
		{name: "redis", ping: rdb.Ping},
	}
	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = notificationlog.NewIndexer(es.Client, cfg.Database.Elasticsearch.Index)
		checks = append(checks, readinessCheck{name: "elasticsearch", ping: es.Ping})
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Delivery channels ---
	registry, err := buildChannels(ctx, cfg)
	if err != nil {
		zapLog.Fatal("channel setup failed", zap.Error(err))
	}

	// --- Stores, gateway and services ---
	storeCfg := subscriberstore.DefaultConfig()
	storeTimeout := storeCfg.Timeout
	subscribers := subscriberstore.NewStore(storeCfg, pg.DB, rdb.Client, clock, log)
	weatherLog := weatherlog.NewLog(pg.DB, storeTimeout, log)
	notifications := notificationlog.NewLog(pg.DB, indexer, clock, storeTimeout, log)

	gateway := newGateway(cfg, rdb.Client, clock, log)

	var source dispatch.SubscriberSource = subscribers
	if cfg.Dispatch.SubscriberSource == config.SubscriberSourceHTTP {
		source = subscriberclient.NewClient(
			cfg.Dispatch.SubscriberService,
			config.GetDuration(cfg.Weather.Timeout),
			commonhttp.NewClient(config.GetDuration(cfg.Weather.Timeout)),
			log,
		)
		zapLog.Info("Dispatch reads subscribers over HTTP", zap.String("url", cfg.Dispatch.SubscriberService))
	}

	subscriptionSvc := subscription.NewService(subscribers, gateway, weatherLog, clock, log)
	dispatchSvc := dispatch.NewService(&dispatch.Config{
		Workers:         cfg.Dispatch.Workers,
		MessageTemplate: cfg.Dispatch.MessageTemplate,
	}, source, gateway, weatherLog, notifications, registry, obs, clock, log)

	// --- Optional interval trigger ---
	if cfg.Dispatch.Schedule.Enabled {
		sched := scheduler.New(time.Duration(cfg.Dispatch.Schedule.IntervalMinutes)*time.Minute, dispatchSvc, log)
		if err := sched.Start(); err != nil {
			zapLog.Fatal("scheduler start failed", zap.Error(err))
		}
		defer sched.Stop()
	}

	// --- Operations server ---
	opsServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.OpsPort),
		Handler:           newOpsMux(clock, checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", opsServer.Addr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Public API ---
	handler := api.NewHandler(subscriptionSvc, dispatchSvc, notifications, log)
	app := api.NewApp(api.ServerConfig{
		AppName:      cfg.App.Name,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}, handler)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	zapLog.Info("API listening", zap.String("addr", addr))
	apiErr := serveAPI(app, addr)

	// --- Graceful Shutdown ---
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case <-sigCtx.Done():
	case err := <-apiErr:
		zapLog.Fatal("API server failed", zap.Error(err))
	}

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zapLog.Error("API shutdown failed", zap.Error(err))
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("ops server shutdown failed", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("observability shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}

// serveAPI starts the public listener. A listen failure is delivered on the returned
// channel; a clean shutdown delivers nothing.
func serveAPI(app *fiber.App, addr string) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := app.Listen(addr); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

func newGateway(cfg *config.Config, rdb *redis.Client, clock clockwork.Clock, log logger.Logger) *weathergateway.Gateway {
	gwCfg := &weathergateway.Config{
		BaseURL:             cfg.Weather.BaseURL,
		AccessKey:           cfg.Weather.AccessKey,
		Timeout:             config.GetDuration(cfg.Weather.Timeout),
		CacheTTL:            config.GetSeconds(cfg.Weather.CacheTTL),
		BreakerMaxRequests:  cfg.Weather.Breaker.MaxRequests,
		BreakerInterval:     config.GetSeconds(cfg.Weather.Breaker.Interval),
		BreakerTimeout:      config.GetSeconds(cfg.Weather.Breaker.Timeout),
		BreakerFailureLimit: cfg.Weather.Breaker.FailureLimit,
	}
	return weathergateway.NewGateway(gwCfg, commonhttp.NewClient(gwCfg.Timeout), rdb, clock, log)
}

// buildChannels creates the email and SMS channels. A disabled provider still gets a
// channel so its attempts are recorded as Failed.
func buildChannels(ctx context.Context, cfg *config.Config) (*channels.Registry, error) {
	awsCfg := cfg.Integrations.AWS
	emailCfg := channels.EmailConfig{
		Enabled:   awsCfg.SES.Enabled,
		FromEmail: awsCfg.SES.FromEmail,
		Subject:   awsCfg.SES.Subject,
	}
	smsCfg := channels.SMSConfig{
		Enabled:  awsCfg.SNS.Enabled,
		SenderID: awsCfg.SNS.DefaultSMSSenderID,
	}

	if !awsCfg.SES.Enabled && !awsCfg.SNS.Enabled {
		return channels.NewRegistry(channels.NewEmail(emailCfg, nil), channels.NewSMS(smsCfg, nil)), nil
	}

	sdkCfg, err := commonaws.LoadConfig(ctx, awsCfg.Region)
	if err != nil {
		return nil, err
	}

	var sesClient channels.SESService
	if awsCfg.SES.Enabled {
		sesClient = commonaws.NewSESClient(sdkCfg)
	}
	var snsClient channels.SNSService
	if awsCfg.SNS.Enabled {
		snsClient = commonaws.NewSNSClient(sdkCfg)
	}

	return channels.NewRegistry(
		channels.NewEmail(emailCfg, sesClient),
		channels.NewSMS(smsCfg, snsClient),
	), nil
}
