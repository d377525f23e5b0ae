package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/tenant"
)

// EventFactory creates CloudEvents for fee domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// Source returns the source attribute stamped on every event
func (f *EventFactory) Source() string {
	return f.source
}

// CreateEvent wraps data in a new event. Tenant, seller and correlation ID
// are taken from ctx when present.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *FeeCloudEvent {
	event := &FeeCloudEvent{
		SpecVersion:     SpecVersion,
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
		CorrelationID:   logging.CorrelationIDFromContext(ctx),
	}
	event.SetTenantContext(tenant.FromContextOptional(ctx))
	return event
}

// CreateSKUEvent creates an event about one SKU, with subject "sku/{sku}"
func (f *EventFactory) CreateSKUEvent(ctx context.Context, eventType, sku string, data interface{}) *FeeCloudEvent {
	return f.CreateEvent(ctx, eventType, "sku/"+sku, data)
}

// CreateTenantEvent creates an event about a tenant, with subject "tenant/{id}"
func (f *EventFactory) CreateTenantEvent(ctx context.Context, eventType, tenantID string, data interface{}) *FeeCloudEvent {
	event := f.CreateEvent(ctx, eventType, "tenant/"+tenantID, data)
	if event.TenantID == "" {
		event.TenantID = tenantID
	}
	return event
}
