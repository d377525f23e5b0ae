package mongodb

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/sellerops/fba-fees/internal/domain"
	"github.com/sellerops/fba-fees/pkg/cloudevents"
	"github.com/sellerops/fba-fees/pkg/kafka"
	"github.com/sellerops/fba-fees/pkg/tenant"
)

func testFactory() *cloudevents.EventFactory {
	return cloudevents.NewEventFactory(cloudevents.SourceFeeService)
}

func referenceEstimate(t *testing.T) (domain.FeeEstimateInput, domain.FeeEstimate) {
	t.Helper()
	l, w, h, weight, price := 15.0, 12.0, 0.75, 16.0, 8.0
	input := domain.FeeEstimateInput{
		Package: domain.PackageInput{
			Length: &l, Width: &w, Height: &h, LengthUnit: domain.UnitInches,
			Weight: &weight, WeightUnit: domain.UnitOunces,
		},
		Price:    &price,
		Category: "Baby Products",
	}
	calc, err := domain.NewFeeCalculatorForRegion(domain.RegionUS)
	require.NoError(t, err)
	return input, calc.Estimate(input)
}

func TestRepositoryConstructors(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("sku fee profile", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(), // profile indexes
			mtest.CreateSuccessResponse(), // outbox indexes
		)
		repo := NewSKUFeeProfileRepository(mt.DB, testFactory(), nil)
		require.NotNil(t, repo)
		assert.NotNil(t, repo.GetOutboxRepository())
	})

	mt.Run("discrepancy report", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())
		repo := NewDiscrepancyReportRepository(mt.DB, testFactory(), nil)
		require.NotNil(t, repo)
	})

	mt.Run("tenant settings", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())
		repo := NewTenantSettingsRepository(mt.DB, testFactory(), nil)
		require.NotNil(t, repo)
	})
}

func TestSKUFeeProfileRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save with outbox", func(mt *mtest.T) {
		repo := &SKUFeeProfileRepository{
			collection: mt.DB.Collection(skuFeeProfilesCollection),
			writer:     newOutboxWriter(mt.DB, testFactory(), nil),
		}

		profile, err := domain.NewSKUFeeProfile("TNT-001", "SLR-001", "SKU-1")
		require.NoError(t, err)
		profile.ApplyEstimate(referenceEstimate(t))
		require.Len(t, profile.DomainEvents(), 1)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(), // outbox insertMany
			mtest.CreateSuccessResponse(), // commitTransaction
		)

		require.NoError(t, repo.Save(context.Background(), profile))
		assert.Empty(t, profile.DomainEvents())
	})

	mt.Run("failed save keeps events", func(mt *mtest.T) {
		repo := &SKUFeeProfileRepository{
			collection: mt.DB.Collection(skuFeeProfilesCollection),
			writer:     newOutboxWriter(mt.DB, testFactory(), nil),
		}

		profile, err := domain.NewSKUFeeProfile("TNT-001", "SLR-001", "SKU-1")
		require.NoError(t, err)
		profile.ApplyEstimate(referenceEstimate(t))

		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Message: "duplicate key"}),
			mtest.CreateSuccessResponse(), // abortTransaction
		)

		require.Error(t, repo.Save(context.Background(), profile))
		assert.Len(t, profile.DomainEvents(), 1)
	})

	mt.Run("find", func(mt *mtest.T) {
		coll := mt.DB.Collection(skuFeeProfilesCollection)
		repo := &SKUFeeProfileRepository{collection: coll}
		ctx := context.Background()
		ns := coll.Database().Name() + "." + coll.Name()

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "profileId", Value: "SFP-001"},
			{Key: "tenantId", Value: "TNT-001"},
			{Key: "sku", Value: "SKU-1"},
			{Key: "region", Value: "US"},
			{Key: "fees", Value: bson.D{{Key: "sizeTier", Value: "Small Standard-Size"}, {Key: "totalFees", Value: 3.59}}},
		}))
		profile, err := repo.FindBySKU(ctx, "TNT-001", "SKU-1")
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.Equal(t, "SFP-001", profile.ProfileID)
		require.NotNil(t, profile.Fees.SizeTier)
		assert.Equal(t, domain.SizeTierSmallStandard, *profile.Fees.SizeTier)
		require.NotNil(t, profile.Fees.TotalFees)
		assert.Equal(t, 3.59, *profile.Fees.TotalFees)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		profile, err = repo.FindBySKU(ctx, "TNT-001", "SKU-404")
		require.NoError(t, err)
		assert.Nil(t, profile)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "profileId", Value: "SFP-001"}},
			bson.D{{Key: "profileId", Value: "SFP-002"}},
		))
		profiles, err := repo.FindByTenant(ctx, "TNT-001", domain.DefaultPagination())
		require.NoError(t, err)
		assert.Len(t, profiles, 2)
	})
}

func TestDiscrepancyReportRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save and query", func(mt *mtest.T) {
		coll := mt.DB.Collection(discrepancyReportsCollection)
		repo := &DiscrepancyReportRepository{
			collection: coll,
			writer:     newOutboxWriter(mt.DB, testFactory(), nil),
		}
		ctx := context.Background()
		ns := coll.Database().Name() + "." + coll.Name()

		input, est := referenceEstimate(t)
		report, err := domain.NewDiscrepancyReport("TNT-001", "", "SKU-1", input, input, est, est)
		require.NoError(t, err)
		require.Empty(t, report.DomainEvents())

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(), // commitTransaction
		)
		require.NoError(t, repo.Save(ctx, report))

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "reportId", Value: "DSC-001"},
			{Key: "tenantId", Value: "TNT-001"},
			{Key: "result", Value: bson.D{{Key: "status", Value: "mismatch"}}},
		}))
		found, err := repo.FindByID(ctx, "DSC-001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, domain.ComparisonMismatch, found.Result.Status)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "reportId", Value: "DSC-002"}},
		))
		reports, err := repo.FindBySKU(ctx, "TNT-001", "SLR-001", "SKU-1", domain.DefaultPagination())
		require.NoError(t, err)
		require.Len(t, reports, 1)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "n", Value: int64(7)},
		}))
		count, err := repo.CountBySKU(ctx, "TNT-001", "SLR-001", "SKU-1")
		require.NoError(t, err)
		assert.Equal(t, int64(7), count)
	})
}

func TestTenantSettingsRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save and find", func(mt *mtest.T) {
		coll := mt.DB.Collection(tenantSettingsCollection)
		repo := &TenantSettingsRepository{
			collection: coll,
			writer:     newOutboxWriter(mt.DB, testFactory(), nil),
		}
		ctx := context.Background()
		ns := coll.Database().Name() + "." + coll.Name()

		settings, err := domain.NewTenantSettings("TNT-001", domain.RegionUS)
		require.NoError(t, err)
		require.NoError(t, settings.ChangeRegion(domain.RegionUK))

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(), // outbox insertMany
			mtest.CreateSuccessResponse(), // commitTransaction
		)
		require.NoError(t, repo.Save(ctx, settings))
		assert.Empty(t, settings.DomainEvents())

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "tenantId", Value: "TNT-001"},
			{Key: "region", Value: "UK"},
		}))
		found, err := repo.FindByTenantID(ctx, "TNT-001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, domain.RegionUK, found.Region)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		found, err = repo.FindByTenantID(ctx, "TNT-404")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	mt.Run("find error", func(mt *mtest.T) {
		repo := &TenantSettingsRepository{collection: mt.DB.Collection(tenantSettingsCollection)}

		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "unauthorized"}))
		_, err := repo.FindByTenantID(context.Background(), "TNT-001")
		require.Error(t, err)
	})
}

func TestOutboxWriter_ToOutboxEvents(t *testing.T) {
	w := &outboxWriter{eventFactory: testFactory()}
	ctx := tenant.ToContext(context.Background(), &tenant.Context{TenantID: "ctx-tenant"})

	input, est := referenceEstimate(t)
	profile, err := domain.NewSKUFeeProfile("TNT-001", "SLR-001", "SKU-1")
	require.NoError(t, err)
	profile.ApplyEstimate(input, est)

	settings, err := domain.NewTenantSettings("TNT-001", domain.RegionUS)
	require.NoError(t, err)
	require.NoError(t, settings.ChangeRegion(domain.RegionUK))

	events := append(profile.DomainEvents(), settings.DomainEvents()...)
	outboxEvents, err := w.toOutboxEvents(ctx, "AGG-1", "Test", events)
	require.NoError(t, err)
	require.Len(t, outboxEvents, 2)

	for _, e := range outboxEvents {
		assert.Equal(t, kafka.Topics.FeeEvents, e.Topic)
		assert.Equal(t, "TNT-001", e.TenantID)
	}

	var ce map[string]any
	require.NoError(t, json.Unmarshal(outboxEvents[0].Payload, &ce))
	assert.Equal(t, cloudevents.SKUFeesCalculated, ce["type"])
	assert.Equal(t, "sku/SKU-1", ce["subject"])
	assert.Equal(t, "SLR-001", ce["fbasellerid"])

	require.NoError(t, json.Unmarshal(outboxEvents[1].Payload, &ce))
	assert.Equal(t, cloudevents.TenantRegionChanged, ce["type"])
	assert.Equal(t, "tenant/TNT-001", ce["subject"])
}

type unknownEvent struct{}

func (unknownEvent) EventType() string    { return "unknown" }
func (unknownEvent) OccurredAt() time.Time { return time.Time{} }

func TestOutboxWriter_SkipsUnknownEvents(t *testing.T) {
	w := &outboxWriter{eventFactory: testFactory()}

	outboxEvents, err := w.toOutboxEvents(context.Background(), "AGG-1", "Test", []domain.DomainEvent{unknownEvent{}})
	require.NoError(t, err)
	assert.Empty(t, outboxEvents)
}

func TestSKUFilterScopesSeller(t *testing.T) {
	assert.Equal(t, bson.M{"tenantId": "TNT-001", "sku": "SKU-1"}, skuFilter("TNT-001", "", "SKU-1"))
	assert.Equal(t, bson.M{
		"tenantId": "TNT-001",
		"sku":      "SKU-1",
		"sellerId": bson.M{"$in": bson.A{"SLR-001", nil}},
	}, skuFilter("TNT-001", "SLR-001", "SKU-1"))
}
