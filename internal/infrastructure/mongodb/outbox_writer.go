package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sellerops/fba-fees/internal/domain"
	"github.com/sellerops/fba-fees/pkg/cloudevents"
	"github.com/sellerops/fba-fees/pkg/kafka"
	pkgmongo "github.com/sellerops/fba-fees/pkg/mongodb"
	"github.com/sellerops/fba-fees/pkg/outbox"
	outboxMongo "github.com/sellerops/fba-fees/pkg/outbox/mongodb"
)

const indexTimeout = 10 * time.Second

// aggregate is a persisted entity that raises domain events
type aggregate interface {
	DomainEvents() []domain.DomainEvent
	ClearDomainEvents()
}

// outboxWriter stores an aggregate and its pending events in one transaction
type outboxWriter struct {
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	observer     *pkgmongo.Observer
}

func newOutboxWriter(db *mongo.Database, eventFactory *cloudevents.EventFactory, observer *pkgmongo.Observer) *outboxWriter {
	return &outboxWriter{
		db:           db,
		outboxRepo:   outboxMongo.NewOutboxRepository(db, observer),
		eventFactory: eventFactory,
		observer:     observer,
	}
}

// save runs upsert and the outbox insert in a transaction, then clears the
// aggregate's events. Events are kept when the transaction fails.
func (w *outboxWriter) save(ctx context.Context, collection, aggregateID, aggregateType string, agg aggregate, upsert func(mongo.SessionContext) error) error {
	return w.observer.Observe(ctx, collection, "save", func(ctx context.Context) error {
		session, err := w.db.Client().StartSession()
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			if err := upsert(sessCtx); err != nil {
				return nil, err
			}

			outboxEvents, err := w.toOutboxEvents(sessCtx, aggregateID, aggregateType, agg.DomainEvents())
			if err != nil {
				return nil, err
			}
			if len(outboxEvents) > 0 {
				if err := w.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
					return nil, fmt.Errorf("failed to save outbox events: %w", err)
				}
			}
			return nil, nil
		})
		if err != nil {
			return err
		}

		agg.ClearDomainEvents()
		return nil
	})
}

func (w *outboxWriter) toOutboxEvents(ctx context.Context, aggregateID, aggregateType string, events []domain.DomainEvent) ([]*outbox.OutboxEvent, error) {
	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))

	for _, event := range events {
		var cloudEvent *cloudevents.FeeCloudEvent
		switch e := event.(type) {
		case *domain.SKUFeesCalculatedEvent:
			cloudEvent = w.eventFactory.CreateSKUEvent(ctx, e.EventType(), e.SKU, e).WithTenant(e.TenantID, e.SellerID)
		case *domain.FeeDiscrepancyDetectedEvent:
			cloudEvent = w.eventFactory.CreateSKUEvent(ctx, e.EventType(), e.SKU, e).WithTenant(e.TenantID, e.SellerID)
		case *domain.TenantRegionChangedEvent:
			cloudEvent = w.eventFactory.CreateTenantEvent(ctx, e.EventType(), e.TenantID, e)
			cloudEvent.WithTenant(e.TenantID, cloudEvent.SellerID)
		default:
			continue
		}
		cloudEvent.Time = event.OccurredAt()

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(aggregateID, aggregateType, kafka.Topics.FeeEvents, cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}
	return outboxEvents, nil
}
