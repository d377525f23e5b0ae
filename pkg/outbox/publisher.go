package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sellerops/fba-fees/pkg/kafka"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/metrics"
)

var (
	ErrPublisherRunning    = errors.New("publisher already running")
	ErrPublisherNotRunning = errors.New("publisher not running")
)

// Publisher relays outbox events to Kafka on a ticker
type Publisher struct {
	repo      Repository
	producer  kafka.EventPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int

	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	stoppedCh    chan struct{}
	publishedCnt int
	failedCnt    int
}

// PublisherConfig holds configuration for the outbox publisher
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: time.Second,
		BatchSize:    100,
	}
}

// NewPublisher creates a new outbox publisher. m may be nil.
func NewPublisher(repo Repository, producer kafka.EventPublisher, logger *logging.Logger, m *metrics.Metrics, config *PublisherConfig) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}

	return &Publisher{
		repo:      repo,
		producer:  producer,
		logger:    logger.WithComponent("outbox-publisher"),
		metrics:   m,
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
	}
}

// Start runs the relay loop until Stop is called or ctx is cancelled
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPublisherRunning
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.stoppedCh = make(chan struct{})

	p.logger.Info("Starting outbox publisher", "interval", p.interval.String(), "batchSize", p.batchSize)
	go p.run(ctx, p.stopCh, p.stoppedCh)
	return nil
}

// Stop signals the loop and waits for the in-flight batch to finish
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPublisherNotRunning
	}
	stopCh, stoppedCh := p.stopCh, p.stoppedCh
	p.mu.Unlock()

	close(stopCh)
	<-stoppedCh

	p.mu.Lock()
	p.running = false
	published, failed := p.publishedCnt, p.failedCnt
	p.mu.Unlock()

	p.logger.Info("Outbox publisher stopped", "published", published, "failed", failed)
	return nil
}

func (p *Publisher) run(ctx context.Context, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.ProcessOnce(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			p.logger.Info("Outbox publisher context cancelled")
			return
		}
	}
}

// ProcessOnce relays one batch of unpublished events and returns how many were delivered
func (p *Publisher) ProcessOnce(ctx context.Context) int {
	events, err := p.repo.FindUnpublished(ctx, p.batchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to find unpublished events")
		return 0
	}
	if p.metrics != nil {
		p.metrics.RecordOutboxBatch(len(events))
	}
	if len(events) == 0 {
		return 0
	}

	delivered := 0
	for _, event := range events {
		if err := p.publishEvent(ctx, event); err != nil {
			p.logger.WithError(err).Error("Failed to publish event",
				"eventId", event.ID,
				"eventType", event.EventType,
				"aggregateId", event.AggregateID,
			)
			p.count(false)
			if p.metrics != nil {
				p.metrics.RecordOutboxEvent(event.EventType, false)
			}
			if err := p.repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("Failed to increment retry count", "eventId", event.ID)
			}
			continue
		}

		delivered++
		p.count(true)
		if p.metrics != nil {
			p.metrics.RecordOutboxEvent(event.EventType, true)
		}
		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			p.logger.WithError(err).Error("Failed to mark event as published", "eventId", event.ID)
		}
	}
	return delivered
}

func (p *Publisher) publishEvent(ctx context.Context, event *OutboxEvent) error {
	cloudEvent, err := event.ToCloudEvent()
	if err != nil {
		return fmt.Errorf("failed to decode cloud event: %w", err)
	}
	if err := p.producer.PublishEvent(ctx, event.Topic, cloudEvent); err != nil {
		return fmt.Errorf("failed to publish to Kafka: %w", err)
	}

	p.logger.Debug("Published event from outbox",
		"eventId", event.ID,
		"eventType", event.EventType,
		"topic", event.Topic,
		"aggregateId", event.AggregateID,
	)
	return nil
}

func (p *Publisher) count(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if success {
		p.publishedCnt++
	} else {
		p.failedCnt++
	}
}

// IsRunning returns whether the publisher is running
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns publisher statistics
func (p *Publisher) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]int{
		"published": p.publishedCnt,
		"failed":    p.failedCnt,
	}
}
