package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sellerops/fba-fees/internal/domain"
	"github.com/sellerops/fba-fees/internal/infrastructure/cache"
	"github.com/sellerops/fba-fees/pkg/kafka"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/mongodb"
	"github.com/sellerops/fba-fees/pkg/outbox"
	"github.com/sellerops/fba-fees/pkg/tracing"
)

// ServiceName identifies the service in logs, metrics, traces and events
const ServiceName = "fba-fee-service"

// Config holds application configuration
type Config struct {
	ServerAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowOrigins    []string

	LogLevel      logging.LogLevel
	Environment   string
	DefaultRegion domain.Region

	// RequireTenant rejects requests without X-Tenant-ID
	RequireTenant bool

	MongoDB *mongodb.Config
	Kafka   *kafka.Config
	// Redis backs the tenant settings cache. An empty Addr disables it.
	Redis   *cache.Config
	Tracing *tracing.Config
	Outbox  *outbox.PublisherConfig
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	region, ok := domain.ParseRegion(GetEnv("DEFAULT_REGION", string(domain.RegionUS)))
	if !ok {
		return nil, errors.New("DEFAULT_REGION must be one of US, UK")
	}

	tracingConfig := tracing.DefaultConfig(ServiceName)
	tracingConfig.OTLPEndpoint = GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", tracingConfig.OTLPEndpoint)
	tracingConfig.Environment = GetEnv("ENVIRONMENT", "development")
	tracingConfig.ServiceVersion = GetEnv("VERSION", tracingConfig.ServiceVersion)
	tracingConfig.Enabled = GetBoolEnv("TRACING_ENABLED", false)
	tracingConfig.SampleRate = GetFloatEnv("TRACING_SAMPLE_RATE", tracingConfig.SampleRate)

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = GetEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = GetEnv("MONGODB_DATABASE", mongoConfig.Database)
	mongoConfig.ConnectTimeout = GetDurationEnv("MONGODB_CONNECT_TIMEOUT", mongoConfig.ConnectTimeout)

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = GetListEnv("KAFKA_BROKERS", kafkaConfig.Brokers)
	kafkaConfig.ClientID = ServiceName

	return &Config{
		ServerAddr:      GetEnv("SERVER_ADDR", ":8080"),
		ReadTimeout:     GetDurationEnv("HTTP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    GetDurationEnv("HTTP_WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: GetDurationEnv("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		AllowOrigins:    GetListEnv("CORS_ALLOW_ORIGINS", []string{"*"}),
		LogLevel:        logging.LogLevel(GetEnv("LOG_LEVEL", "info")),
		Environment:     tracingConfig.Environment,
		DefaultRegion:   region,
		RequireTenant:   GetBoolEnv("REQUIRE_TENANT", false),
		MongoDB:         mongoConfig,
		Kafka:           kafkaConfig,
		Redis: &cache.Config{
			Addr:     GetEnv("REDIS_ADDR", ""),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
			TTL:      GetDurationEnv("TENANT_SETTINGS_CACHE_TTL", 5*time.Minute),
		},
		Tracing: tracingConfig,
		Outbox: &outbox.PublisherConfig{
			PollInterval: GetDurationEnv("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    GetIntEnv("OUTBOX_BATCH_SIZE", 100),
		},
	}, nil
}

// GetEnv returns an environment variable or a default value
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetFloatEnv returns a float environment variable or a default value
func GetFloatEnv(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration such as "5s" or a default value
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetListEnv splits a comma separated variable, dropping blanks
func GetListEnv(key string, defaultVal []string) []string {
	val := GetEnv(key, "")
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
