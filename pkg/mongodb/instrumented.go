package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/metrics"
	"github.com/sellerops/fba-fees/pkg/resilience"
	"github.com/sellerops/fba-fees/pkg/tracing"
)

// Observer wraps repository operations with a span, metrics, a debug log line
// and circuit breaker protection. A nil *Observer runs operations unobserved.
type Observer struct {
	database string
	metrics  *metrics.Metrics
	logger   *logging.Logger
	breaker  *resilience.CircuitBreaker
	tracer   trace.Tracer
}

// StoreBreakerConfig returns the breaker settings for MongoDB
func StoreBreakerConfig() *resilience.CircuitBreakerConfig {
	return &resilience.CircuitBreakerConfig{
		Name:                  "mongodb",
		MaxRequests:           5,
		Interval:              time.Minute,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	}
}

// NewObserver creates an observer for database. Any dependency may be nil.
func NewObserver(database string, m *metrics.Metrics, logger *logging.Logger, breaker *resilience.CircuitBreaker) *Observer {
	return &Observer{
		database: database,
		metrics:  m,
		logger:   logger,
		breaker:  breaker,
		tracer:   otel.Tracer("mongodb"),
	}
}

// Observe runs fn as operation on collection. mongo.ErrNoDocuments is a
// successful lookup and is returned without counting against the breaker.
func (o *Observer) Observe(ctx context.Context, collection, operation string, fn func(ctx context.Context) error) error {
	if o == nil {
		return fn(ctx)
	}

	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.DatabaseSpanAttributes(o.database, operation, collection)...),
	)
	defer span.End()

	var notFound bool
	run := func() error {
		err := fn(ctx)
		if errors.Is(err, mongo.ErrNoDocuments) {
			notFound = true
			return nil
		}
		return err
	}

	var err error
	if o.breaker != nil {
		err = o.breaker.Run(ctx, run)
	} else {
		err = run()
	}
	duration := time.Since(start)

	success := err == nil
	if o.metrics != nil {
		o.metrics.RecordMongoDBOperation(collection, operation, success, duration)
	}
	if o.logger != nil {
		o.logger.DatabaseQuery(ctx, collection, operation, duration, success)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	if notFound {
		return mongo.ErrNoDocuments
	}
	return nil
}
