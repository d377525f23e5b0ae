package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sellerops/fba-fees/internal/application"
	"github.com/sellerops/fba-fees/internal/config"
	"github.com/sellerops/fba-fees/internal/domain"
	"github.com/sellerops/fba-fees/internal/infrastructure/cache"
	"github.com/sellerops/fba-fees/pkg/cloudevents"
	"github.com/sellerops/fba-fees/pkg/kafka"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/metrics"
	"github.com/sellerops/fba-fees/pkg/mongodb"
	"github.com/sellerops/fba-fees/pkg/outbox"
	"github.com/sellerops/fba-fees/pkg/tracing"
)

type fakeMongo struct {
	healthErr error
	closed    bool
}

func (f *fakeMongo) Database() *mongo.Database { return nil }

func (f *fakeMongo) Close(context.Context) error {
	f.closed = true
	return nil
}

func (f *fakeMongo) HealthCheck(context.Context) error { return f.healthErr }

type fakeProducer struct {
	closed bool
}

func (f *fakeProducer) PublishEvent(context.Context, string, *cloudevents.FeeCloudEvent) error {
	return nil
}

func (f *fakeProducer) PublishBatch(context.Context, string, []*cloudevents.FeeCloudEvent) error {
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

type fakeOutboxPublisher struct {
	startErr error
	started  bool
	stopped  bool
}

func (f *fakeOutboxPublisher) Start(context.Context) error {
	f.started = true
	return f.startErr
}

func (f *fakeOutboxPublisher) Stop() error {
	f.stopped = true
	return nil
}

type noopProfileRepo struct{}

func (noopProfileRepo) Save(context.Context, *domain.SKUFeeProfile) error { return nil }
func (noopProfileRepo) FindBySKU(context.Context, string, string) (*domain.SKUFeeProfile, error) {
	return nil, nil
}
func (noopProfileRepo) FindByTenant(context.Context, string, domain.Pagination) ([]*domain.SKUFeeProfile, error) {
	return nil, nil
}

type noopReportRepo struct{}

func (noopReportRepo) Save(context.Context, *domain.DiscrepancyReport) error { return nil }
func (noopReportRepo) FindByID(context.Context, string) (*domain.DiscrepancyReport, error) {
	return nil, nil
}
func (noopReportRepo) FindBySKU(context.Context, string, string, string, domain.Pagination) ([]*domain.DiscrepancyReport, error) {
	return nil, nil
}
func (noopReportRepo) CountBySKU(context.Context, string, string, string) (int64, error) {
	return 0, nil
}

type noopSettingsRepo struct{}

func (noopSettingsRepo) Save(context.Context, *domain.TenantSettings) error { return nil }
func (noopSettingsRepo) FindByTenantID(context.Context, string) (*domain.TenantSettings, error) {
	return nil, nil
}

type noopOutboxRepo struct{}

func (noopOutboxRepo) SaveAll(context.Context, []*outbox.OutboxEvent) error { return nil }
func (noopOutboxRepo) FindUnpublished(context.Context, int) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}
func (noopOutboxRepo) MarkPublished(context.Context, string) error { return nil }
func (noopOutboxRepo) IncrementRetry(context.Context, string, string) error { return nil }
func (noopOutboxRepo) GetByID(context.Context, string) (*outbox.OutboxEvent, error) {
	return nil, nil
}
func (noopOutboxRepo) FindByAggregateID(context.Context, string) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}

type stubs struct {
	cfg       *config.Config
	mongo     *fakeMongo
	producer  *fakeProducer
	publisher *fakeOutboxPublisher
	settings  domain.TenantSettingsRepository
}

// stubDependencies swaps every external dependency of run for a fake and
// restores the originals when the test ends
func stubDependencies(t *testing.T) *stubs {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Redis.Addr = ""

	s := &stubs{
		cfg:       cfg,
		mongo:     &fakeMongo{},
		producer:  &fakeProducer{},
		publisher: &fakeOutboxPublisher{},
	}

	oldLoadConfig := loadConfig
	oldMongo := newMongoClient
	oldProducer := newKafkaProducer
	oldOutbox := newOutboxPublisher
	oldRepos := newRepositories
	oldService := newFeeService
	oldInitTracing := initTracing
	oldStartHTTP := startHTTPServer
	t.Cleanup(func() {
		loadConfig = oldLoadConfig
		newMongoClient = oldMongo
		newKafkaProducer = oldProducer
		newOutboxPublisher = oldOutbox
		newRepositories = oldRepos
		newFeeService = oldService
		initTracing = oldInitTracing
		startHTTPServer = oldStartHTTP
	})

	loadConfig = func() (*config.Config, error) { return s.cfg, nil }
	newMongoClient = func(context.Context, *mongodb.Config) (mongoClient, error) {
		return s.mongo, nil
	}
	newKafkaProducer = func(*kafka.Config, *metrics.Metrics, *logging.Logger) kafka.EventPublisher {
		return s.producer
	}
	newOutboxPublisher = func(outbox.Repository, kafka.EventPublisher, *logging.Logger, *metrics.Metrics, *outbox.PublisherConfig) outboxPublisher {
		return s.publisher
	}
	newRepositories = func(*mongo.Database, *cloudevents.EventFactory, *mongodb.Observer) *repositories {
		return &repositories{
			profiles: noopProfileRepo{},
			reports:  noopReportRepo{},
			settings: noopSettingsRepo{},
			outbox:   noopOutboxRepo{},
		}
	}
	newFeeService = func(profiles domain.SKUFeeProfileRepository, reports domain.DiscrepancyReportRepository, settings domain.TenantSettingsRepository, region domain.Region, logger *logging.Logger, m *metrics.Metrics) *application.FeeService {
		s.settings = settings
		return application.NewFeeService(profiles, reports, settings, region, logger, m)
	}
	initTracing = func(context.Context, *tracing.Config) (*tracing.TracerProvider, error) {
		return &tracing.TracerProvider{}, nil
	}
	startHTTPServer = func(*http.Server) error { return http.ErrServerClosed }

	return s
}

func interrupted() chan os.Signal {
	signalCh := make(chan os.Signal, 1)
	signalCh <- os.Interrupt
	return signalCh
}

func TestRunSuccess(t *testing.T) {
	s := stubDependencies(t)

	err := run(context.Background(), interrupted())
	require.NoError(t, err)

	assert.True(t, s.publisher.started)
	assert.True(t, s.publisher.stopped)
	assert.True(t, s.producer.closed)
	assert.True(t, s.mongo.closed)
	assert.IsType(t, noopSettingsRepo{}, s.settings)
}

func TestRunConfigError(t *testing.T) {
	stubDependencies(t)
	loadConfig = func() (*config.Config, error) { return nil, errors.New("bad config") }

	err := run(context.Background(), interrupted())
	assert.EqualError(t, err, "bad config")
}

func TestRunTracingErrorIsNotFatal(t *testing.T) {
	stubDependencies(t)
	initTracing = func(context.Context, *tracing.Config) (*tracing.TracerProvider, error) {
		return nil, errors.New("trace init failed")
	}

	assert.NoError(t, run(context.Background(), interrupted()))
}

func TestRunMongoError(t *testing.T) {
	s := stubDependencies(t)
	newMongoClient = func(context.Context, *mongodb.Config) (mongoClient, error) {
		return nil, errors.New("mongo error")
	}

	err := run(context.Background(), interrupted())
	assert.Error(t, err)
	assert.False(t, s.publisher.started)
}

func TestRunOutboxStartError(t *testing.T) {
	s := stubDependencies(t)
	s.publisher.startErr = errors.New("start failed")

	err := run(context.Background(), interrupted())
	assert.Error(t, err)
	assert.True(t, s.producer.closed)
}

func TestRunWithRedisCache(t *testing.T) {
	s := stubDependencies(t)
	s.cfg.Redis.Addr = "127.0.0.1:1"

	require.NoError(t, run(context.Background(), interrupted()))
	assert.IsType(t, &cache.TenantSettingsCache{}, s.settings)
}

func TestRunServesRoutes(t *testing.T) {
	s := stubDependencies(t)
	s.cfg.RequireTenant = true

	handlerCh := make(chan http.Handler, 1)
	startHTTPServer = func(srv *http.Server) error {
		handlerCh <- srv.Handler
		return http.ErrServerClosed
	}

	signalCh := make(chan os.Signal, 1)
	errCh := make(chan error, 1)
	go func() { errCh <- run(context.Background(), signalCh) }()

	handler := <-handlerCh
	get := func(path string, headers map[string]string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/health", nil))
	assert.Equal(t, http.StatusOK, get("/ready", nil))
	assert.Equal(t, http.StatusOK, get("/metrics", nil))
	assert.Equal(t, http.StatusNotFound, get("/nope", nil))
	assert.Equal(t, http.StatusUnauthorized, get("/api/v1/tenant/settings", nil))
	assert.Equal(t, http.StatusOK, get("/api/v1/tenant/settings", map[string]string{"X-Tenant-ID": "TNT-001"}))
	assert.Equal(t, http.StatusBadRequest, get("/api/v1/tenant/settings", map[string]string{"X-Tenant-ID": "TNT-001", "X-Marketplace-Region": "DE"}))

	s.mongo.healthErr = errors.New("no primary")
	assert.Equal(t, http.StatusServiceUnavailable, get("/ready", nil))

	signalCh <- os.Interrupt
	require.NoError(t, <-errCh)
}
