package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sellerops/fba-fees/internal/api/handlers"
	"github.com/sellerops/fba-fees/internal/application"
	"github.com/sellerops/fba-fees/internal/config"
	"github.com/sellerops/fba-fees/internal/domain"
	"github.com/sellerops/fba-fees/internal/infrastructure/cache"
	mongoRepo "github.com/sellerops/fba-fees/internal/infrastructure/mongodb"
	"github.com/sellerops/fba-fees/pkg/cloudevents"
	"github.com/sellerops/fba-fees/pkg/kafka"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/metrics"
	"github.com/sellerops/fba-fees/pkg/middleware"
	"github.com/sellerops/fba-fees/pkg/mongodb"
	"github.com/sellerops/fba-fees/pkg/outbox"
	"github.com/sellerops/fba-fees/pkg/resilience"
	"github.com/sellerops/fba-fees/pkg/tracing"
)

type mongoClient interface {
	Database() *mongo.Database
	Close(context.Context) error
	HealthCheck(context.Context) error
}

type outboxPublisher interface {
	Start(context.Context) error
	Stop() error
}

type repositories struct {
	profiles domain.SKUFeeProfileRepository
	reports  domain.DiscrepancyReportRepository
	settings domain.TenantSettingsRepository
	outbox   outbox.Repository
}

var loadConfig = config.Load

var newMongoClient = func(ctx context.Context, cfg *mongodb.Config) (mongoClient, error) {
	client, err := mongodb.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

var newKafkaProducer = func(cfg *kafka.Config, m *metrics.Metrics, logger *logging.Logger) kafka.EventPublisher {
	producer := kafka.NewProducer(cfg)
	instrumented := kafka.NewInstrumentedProducer(producer, m, logger)
	return kafka.NewCircuitBreakerProducer(instrumented, kafka.ProducerBreakerConfig(), logger, m)
}

var newOutboxPublisher = func(repo outbox.Repository, producer kafka.EventPublisher, logger *logging.Logger, m *metrics.Metrics, cfg *outbox.PublisherConfig) outboxPublisher {
	return outbox.NewPublisher(repo, producer, logger, m, cfg)
}

var newRepositories = func(db *mongo.Database, eventFactory *cloudevents.EventFactory, observer *mongodb.Observer) *repositories {
	profiles := mongoRepo.NewSKUFeeProfileRepository(db, eventFactory, observer)
	return &repositories{
		profiles: profiles,
		reports:  mongoRepo.NewDiscrepancyReportRepository(db, eventFactory, observer),
		settings: mongoRepo.NewTenantSettingsRepository(db, eventFactory, observer),
		outbox:   profiles.GetOutboxRepository(),
	}
}

var newRedisClient = cache.NewRedisClient

var newFeeService = application.NewFeeService

var newFeeHandler = handlers.NewFeeHandler

var newMetrics = metrics.New

var initTracing = tracing.Initialize

var startHTTPServer = func(srv *http.Server) error {
	return srv.ListenAndServe()
}

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), signalCh); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, signalCh <-chan os.Signal) error {
	logger := logging.New(logging.DefaultConfig(config.ServiceName))

	cfg, err := loadConfig()
	if err != nil {
		logger.WithError(err).Error("Failed to load configuration")
		return err
	}

	logConfig := logging.DefaultConfig(config.ServiceName)
	logConfig.Level = cfg.LogLevel
	logConfig.Environment = cfg.Environment
	logger = logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fee service API", "defaultRegion", cfg.DefaultRegion)

	tracerProvider, err := initTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", cfg.Tracing.OTLPEndpoint, "enabled", cfg.Tracing.Enabled)
	}

	m := newMetrics(metrics.DefaultConfig(config.ServiceName))
	breakers := resilience.NewCircuitBreakerRegistry(logger.Logger, m)

	store, err := newMongoClient(ctx, cfg.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer store.Close(ctx)
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	observer := mongodb.NewObserver(cfg.MongoDB.Database, m, logger, breakers.GetWithConfig(mongodb.StoreBreakerConfig()))

	producer := newKafkaProducer(cfg.Kafka, m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceFeeService)

	repos := newRepositories(store.Database(), eventFactory, observer)

	var settingsRepo domain.TenantSettingsRepository = repos.settings
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = newRedisClient(cfg.Redis)
		defer redisClient.Close()
		settingsRepo = cache.NewTenantSettingsCache(repos.settings, redisClient, cfg.Redis.TTL, logger, m)
		logger.Info("Tenant settings cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	publisher := newOutboxPublisher(repos.outbox, producer, logger, m, cfg.Outbox)
	if err := publisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		return err
	}
	defer func() {
		if err := publisher.Stop(); err != nil {
			logger.WithError(err).Warn("Failed to stop outbox publisher")
		}
	}()
	logger.Info("Outbox publisher started", "pollInterval", cfg.Outbox.PollInterval, "batchSize", cfg.Outbox.BatchSize)

	feeService := newFeeService(repos.profiles, repos.reports, settingsRepo, cfg.DefaultRegion, logger, m)
	feeHandler := newFeeHandler(feeService, logger)

	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(config.ServiceName, logger)
	middlewareConfig.AllowOrigins = cfg.AllowOrigins
	middleware.Setup(router, middlewareConfig)

	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.Tracing(config.ServiceName, middlewareConfig.QuietPaths...))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName, func() error {
		if err := store.HealthCheck(ctx); err != nil {
			return err
		}
		if redisClient != nil {
			return redisClient.Ping(ctx).Err()
		}
		return nil
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	tenantAuth := &middleware.TenantAuthConfig{
		Required:        cfg.RequireTenant,
		DefaultTenantID: middleware.DefaultTenantAuthConfig().DefaultTenantID,
		AllowedRegions:  []string{"US", "USA", "UK", "GB"},
	}
	v1 := router.Group("/api/v1", middleware.TenantAuth(tenantAuth))
	feeHandler.RegisterRoutes(v1)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		if err := startHTTPServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", cfg.ServerAddr)

	<-signalCh
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
	return nil
}
