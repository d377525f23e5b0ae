// Package tracing wires OpenTelemetry export over OTLP/gRPC and the span
// helpers shared by the HTTP, Mongo and Kafka layers.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
	Enabled        bool
}

// DefaultConfig exports nothing until Enabled is set.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
	}
}

// TracerProvider owns the SDK provider when export is on. The zero value
// is a valid disabled provider.
type TracerProvider struct {
	sdk *sdktrace.TracerProvider
}

// Initialize installs the global provider and W3C propagators. When
// tracing is disabled the global no-op provider stays in place.
func Initialize(ctx context.Context, cfg *Config) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{}, nil
	}

	conn, err := grpc.NewClient(cfg.OTLPEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial otlp collector: %w", err)
	}
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
		semconv.ServiceNamespace("fba"),
	))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(cfg.SampleRate))),
	)
	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return &TracerProvider{sdk: sdk}, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	if rate <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.sdk == nil {
		return nil
	}
	return tp.sdk.Shutdown(ctx)
}

func DatabaseSpanAttributes(dbName, operation, collection string) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.DBSystemMongoDB,
		semconv.DBName(dbName),
		semconv.DBOperation(operation),
		semconv.DBMongoDBCollection(collection),
	}
}

func MessagingSpanAttributes(topic, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.MessagingSystem("kafka"),
		semconv.MessagingDestinationName(topic),
		semconv.MessagingOperationKey.String(operation),
	}
}

// FeeSpanAttributes describes one fee engine run. sku is omitted for ad hoc estimates.
func FeeSpanAttributes(operation, region, sku string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("fba.operation", operation),
		attribute.String("fba.region", region),
	}
	if sku != "" {
		attrs = append(attrs, attribute.String("fba.sku", sku))
	}
	return attrs
}

// TracedOperation runs fn inside a span and marks the span failed when fn errors.
func TracedOperation[T any](ctx context.Context, tracer trace.Tracer, name string, fn func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	result, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// HeadersFromContext renders the active trace context as propagation
// headers, ready to attach to an outgoing message.
func HeadersFromContext(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}
