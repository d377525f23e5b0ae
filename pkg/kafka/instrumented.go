package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sellerops/fba-fees/pkg/cloudevents"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/metrics"
	"github.com/sellerops/fba-fees/pkg/tracing"
)

// InstrumentedProducer wraps a publisher with metrics, tracing and logging
type InstrumentedProducer struct {
	producer EventPublisher
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentedProducer creates a new instrumented producer. m and logger may be nil.
func NewInstrumentedProducer(producer EventPublisher, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer: producer,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kafka-producer"),
	}
}

func (p *InstrumentedProducer) startSpan(ctx context.Context, name, topic string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(tracing.MessagingSpanAttributes(topic, "publish"), attrs...)
	return p.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attrs...),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// PublishEvent publishes a CloudEvent with metrics and tracing
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.FeeCloudEvent) error {
	start := time.Now()
	ctx, span := p.startSpan(ctx, "kafka.publish", topic,
		attribute.String("messaging.kafka.event_type", event.Type),
		attribute.String("messaging.message_id", event.ID),
	)
	if event.TenantID != "" {
		span.SetAttributes(attribute.String("fba.tenant_id", event.TenantID))
	}

	err := p.producer.PublishEvent(ctx, topic, event)
	p.record(ctx, topic, event.Type, err, time.Since(start))
	endSpan(span, err)
	return err
}

// PublishBatch publishes events with one span and one metric per event
func (p *InstrumentedProducer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.FeeCloudEvent) error {
	start := time.Now()
	ctx, span := p.startSpan(ctx, "kafka.publish.batch", topic,
		attribute.Int("messaging.batch.message_count", len(events)),
	)

	err := p.producer.PublishBatch(ctx, topic, events)
	duration := time.Since(start)
	for _, event := range events {
		p.record(ctx, topic, event.Type, err, duration)
	}
	endSpan(span, err)
	return err
}

func (p *InstrumentedProducer) record(ctx context.Context, topic, eventType string, err error, duration time.Duration) {
	success := err == nil
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, eventType, success, duration)
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, eventType, success, duration)
	}
}

// Close closes the underlying producer
func (p *InstrumentedProducer) Close() error {
	return p.producer.Close()
}
