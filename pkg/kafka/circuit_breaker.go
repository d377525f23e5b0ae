package kafka

import (
	"context"
	"time"

	"github.com/sellerops/fba-fees/pkg/cloudevents"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/metrics"
	"github.com/sellerops/fba-fees/pkg/resilience"
)

// CircuitBreakerProducer fails fast while the brokers are unreachable
type CircuitBreakerProducer struct {
	producer       EventPublisher
	circuitBreaker *resilience.CircuitBreaker
}

// ProducerBreakerConfig returns the breaker settings for the Kafka producer
func ProducerBreakerConfig() *resilience.CircuitBreakerConfig {
	return &resilience.CircuitBreakerConfig{
		Name:                  "kafka-producer",
		MaxRequests:           5,
		Interval:              time.Minute,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	}
}

// NewCircuitBreakerProducer wraps producer with a breaker. m and logger may be nil.
func NewCircuitBreakerProducer(producer EventPublisher, config *resilience.CircuitBreakerConfig, logger *logging.Logger, m *metrics.Metrics) *CircuitBreakerProducer {
	if config == nil {
		config = ProducerBreakerConfig()
	}
	var cb *resilience.CircuitBreaker
	if logger != nil {
		cb = resilience.NewCircuitBreaker(config, logger.Logger, m)
	} else {
		cb = resilience.NewCircuitBreaker(config, nil, m)
	}

	return &CircuitBreakerProducer{
		producer:       producer,
		circuitBreaker: cb,
	}
}

// PublishEvent publishes a CloudEvent with circuit breaker protection
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.FeeCloudEvent) error {
	return p.circuitBreaker.Run(ctx, func() error {
		return p.producer.PublishEvent(ctx, topic, event)
	})
}

// PublishBatch publishes multiple events with circuit breaker protection
func (p *CircuitBreakerProducer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.FeeCloudEvent) error {
	return p.circuitBreaker.Run(ctx, func() error {
		return p.producer.PublishBatch(ctx, topic, events)
	})
}

// Breaker returns the breaker guarding the producer
func (p *CircuitBreakerProducer) Breaker() *resilience.CircuitBreaker {
	return p.circuitBreaker
}

// Close closes the underlying producer
func (p *CircuitBreakerProducer) Close() error {
	return p.producer.Close()
}
