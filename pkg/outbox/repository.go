package outbox

import "context"

// Repository persists outbox events
type Repository interface {
	// SaveAll saves events in one operation; ctx may carry a transaction session
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	// FindUnpublished returns the oldest unpublished events that still have retries left
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry counts a failed delivery and records its error
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error

	GetByID(ctx context.Context, eventID string) (*OutboxEvent, error)

	FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error)
}
