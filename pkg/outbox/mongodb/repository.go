package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgmongo "github.com/sellerops/fba-fees/pkg/mongodb"
	"github.com/sellerops/fba-fees/pkg/outbox"
)

// DefaultCollectionName is the default name for the outbox collection
const DefaultCollectionName = "outbox_events"

// publishedTTL is how long delivered events are kept for inspection
const publishedTTL = 7 * 24 * time.Hour

// OutboxRepository implements outbox.Repository for MongoDB
type OutboxRepository struct {
	collection *mongo.Collection
	observer   *pkgmongo.Observer
}

// NewOutboxRepository creates a new MongoDB outbox repository. observer may be nil.
func NewOutboxRepository(db *mongo.Database, observer *pkgmongo.Observer) *OutboxRepository {
	return &OutboxRepository{
		collection: db.Collection(DefaultCollectionName),
		observer:   observer,
	}
}

func (r *OutboxRepository) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return r.observer.Observe(ctx, DefaultCollectionName, operation, fn)
}

// SaveAll saves multiple outbox events in a single operation
func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	docs := make([]interface{}, len(events))
	for i, event := range events {
		docs[i] = event
	}

	err := r.observe(ctx, "insertMany", func(ctx context.Context) error {
		_, err := r.collection.InsertMany(ctx, docs)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

// FindUnpublished retrieves the oldest unpublished events whose retries are not exhausted
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	filter := bson.M{
		"publishedAt": bson.M{"$exists": false},
		"$expr":       bson.M{"$lt": bson.A{"$retryCount", "$maxRetries"}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	var events []*outbox.OutboxEvent
	err := r.observe(ctx, "find", func(ctx context.Context) error {
		cursor, err := r.collection.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &events)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find unpublished events: %w", err)
	}
	return events, nil
}

// MarkPublished marks an event as published
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	update := bson.M{"$set": bson.M{"publishedAt": time.Now().UTC()}}
	return r.updateOne(ctx, "markPublished", eventID, update)
}

// IncrementRetry increments the retry count and updates last error
func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	update := bson.M{
		"$inc": bson.M{"retryCount": 1},
		"$set": bson.M{"lastError": errorMsg},
	}
	return r.updateOne(ctx, "incrementRetry", eventID, update)
}

func (r *OutboxRepository) updateOne(ctx context.Context, operation, eventID string, update bson.M) error {
	var matched int64
	err := r.observe(ctx, operation, func(ctx context.Context) error {
		result, err := r.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update)
		if err != nil {
			return err
		}
		matched = result.MatchedCount
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to %s: %w", operation, err)
	}
	if matched == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return nil
}

// GetByID retrieves an outbox event by ID, or nil when it does not exist
func (r *OutboxRepository) GetByID(ctx context.Context, eventID string) (*outbox.OutboxEvent, error) {
	var event outbox.OutboxEvent
	err := r.observe(ctx, "findOne", func(ctx context.Context) error {
		return r.collection.FindOne(ctx, bson.M{"_id": eventID}).Decode(&event)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get outbox event: %w", err)
	}
	return &event, nil
}

// FindByAggregateID retrieves all events for a specific aggregate, oldest first
func (r *OutboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	var events []*outbox.OutboxEvent
	err := r.observe(ctx, "find", func(ctx context.Context) error {
		cursor, err := r.collection.Find(ctx, bson.M{"aggregateId": aggregateID}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &events)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find events by aggregate ID: %w", err)
	}
	return events, nil
}

// EnsureIndexes creates the polling, lookup and TTL indexes
func (r *OutboxRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		pkgmongo.Index("idx_publishedAt_createdAt", "publishedAt", "createdAt"),
		pkgmongo.Index("idx_aggregateId_createdAt", "aggregateId", "createdAt"),
		{
			// only documents with publishedAt expire, so pending events are never removed
			Keys: bson.D{{Key: "publishedAt", Value: 1}},
			Options: options.Index().
				SetName("idx_publishedAt_ttl").
				SetExpireAfterSeconds(int32(publishedTTL.Seconds())),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
