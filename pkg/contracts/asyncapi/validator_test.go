package asyncapi_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/fba-fees/docs"
	"github.com/sellerops/fba-fees/internal/domain"
	"github.com/sellerops/fba-fees/pkg/cloudevents"
	"github.com/sellerops/fba-fees/pkg/contracts/asyncapi"
	"github.com/sellerops/fba-fees/pkg/tenant"
)

func newValidator(t *testing.T) *asyncapi.EventValidator {
	t.Helper()
	v, err := asyncapi.NewEventValidatorFromBytes(docs.AsyncAPI)
	require.NoError(t, err)
	return v
}

func ptr(v float64) *float64 { return &v }

func referenceInput() domain.FeeEstimateInput {
	return domain.FeeEstimateInput{
		Package: domain.PackageInput{
			Length: ptr(15), Width: ptr(12), Height: ptr(0.75), LengthUnit: domain.UnitInches,
			Weight: ptr(16), WeightUnit: domain.UnitOunces,
		},
		Price:    ptr(8),
		Category: "Baby Products",
	}
}

func TestEventTypesAreDocumented(t *testing.T) {
	v := newValidator(t)

	assert.Equal(t, []string{
		cloudevents.FeeDiscrepancyDetected,
		cloudevents.SKUFeesCalculated,
		cloudevents.TenantRegionChanged,
	}, v.GetSupportedEventTypes())
	assert.Equal(t, []string{"fba.fee.events"}, v.ChannelAddresses())
}

// domainEvents raises one event of every type the service publishes
func domainEvents(t *testing.T) []domain.DomainEvent {
	t.Helper()
	calc, err := domain.NewFeeCalculatorForRegion(domain.RegionUS)
	require.NoError(t, err)

	input := referenceInput()
	fees := calc.Estimate(input)

	profile, err := domain.NewSKUFeeProfile("TNT-001", "SLR-001", "SKU-1")
	require.NoError(t, err)
	profile.ApplyEstimate(input, fees)

	reported := referenceInput()
	reported.Package.Weight = ptr(20)
	report, err := domain.NewDiscrepancyReport("TNT-001", "SLR-001", "SKU-1", input, reported, fees, calc.Estimate(reported))
	require.NoError(t, err)

	settings, err := domain.NewTenantSettings("TNT-001", domain.RegionUS)
	require.NoError(t, err)
	require.NoError(t, settings.ChangeRegion(domain.RegionUK))

	var events []domain.DomainEvent
	events = append(events, profile.DomainEvents()...)
	events = append(events, report.DomainEvents()...)
	events = append(events, settings.DomainEvents()...)
	require.Len(t, events, 3)
	return events
}

func TestPublishedEventsMatchSchemas(t *testing.T) {
	v := newValidator(t)
	factory := cloudevents.NewEventFactory(cloudevents.SourceFeeService)
	ctx := tenant.ToContext(context.Background(), &tenant.Context{TenantID: "TNT-001", SellerID: "SLR-001"})

	for _, e := range domainEvents(t) {
		t.Run(e.EventType(), func(t *testing.T) {
			event := factory.CreateEvent(ctx, e.EventType(), "test", e)

			raw, err := json.Marshal(event)
			require.NoError(t, err)
			assert.NoError(t, v.ValidateEventJSON(raw))
		})
	}
}

func TestValidateEventRejectsBadPayloads(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name  string
		event asyncapi.CloudEvent
	}{
		{
			name: "unknown type",
			event: asyncapi.CloudEvent{
				SpecVersion: "1.0", ID: "1", Source: cloudevents.SourceFeeService,
				Type: "fba.unknown", Data: map[string]interface{}{},
			},
		},
		{
			name: "wrong specversion",
			event: asyncapi.CloudEvent{
				SpecVersion: "0.3", ID: "1", Source: cloudevents.SourceFeeService,
				Type: cloudevents.TenantRegionChanged, Data: map[string]interface{}{},
			},
		},
		{
			name: "unsupported region",
			event: asyncapi.CloudEvent{
				SpecVersion: "1.0", ID: "1", Source: cloudevents.SourceFeeService,
				Type: cloudevents.TenantRegionChanged,
				Data: map[string]interface{}{
					"tenantId": "TNT-001", "oldRegion": "US", "newRegion": "DE", "changedAt": "2026-01-01T00:00:00Z",
				},
			},
		},
		{
			name: "discrepancy without mismatched fields",
			event: asyncapi.CloudEvent{
				SpecVersion: "1.0", ID: "1", Source: cloudevents.SourceFeeService,
				Type: cloudevents.FeeDiscrepancyDetected,
				Data: map[string]interface{}{
					"reportId": "DSC-1", "tenantId": "TNT-001", "sku": "SKU-1", "region": "US",
					"status": "mismatch", "mismatchedFields": []string{}, "detectedAt": "2026-01-01T00:00:00Z",
				},
			},
		},
		{
			name: "missing data",
			event: asyncapi.CloudEvent{
				SpecVersion: "1.0", ID: "1", Source: cloudevents.SourceFeeService,
				Type: cloudevents.SKUFeesCalculated,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, v.ValidateEvent(tt.event))
		})
	}
}

func TestNewEventValidatorFromBytes_InvalidDocument(t *testing.T) {
	_, err := asyncapi.NewEventValidatorFromBytes([]byte("asyncapi: [unterminated"))
	assert.Error(t, err)
}
