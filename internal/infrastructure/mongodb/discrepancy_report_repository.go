package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sellerops/fba-fees/internal/domain"
	"github.com/sellerops/fba-fees/pkg/cloudevents"
	pkgmongo "github.com/sellerops/fba-fees/pkg/mongodb"
)

const discrepancyReportsCollection = "discrepancy_reports"

// DiscrepancyReportRepository implements domain.DiscrepancyReportRepository
type DiscrepancyReportRepository struct {
	collection *mongo.Collection
	writer     *outboxWriter
	observer   *pkgmongo.Observer
}

// NewDiscrepancyReportRepository creates a new DiscrepancyReportRepository. observer may be nil.
func NewDiscrepancyReportRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, observer *pkgmongo.Observer) *DiscrepancyReportRepository {
	collection := db.Collection(discrepancyReportsCollection)
	writer := newOutboxWriter(db, eventFactory, observer)

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		pkgmongo.UniqueIndex("report_id", "reportId"),
		pkgmongo.Index("tenant_sku_created", "tenantId", "sku", "-createdAt"),
		pkgmongo.Index("status", "result.status"),
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
	_ = writer.outboxRepo.EnsureIndexes(ctx)

	return &DiscrepancyReportRepository{
		collection: collection,
		writer:     writer,
		observer:   observer,
	}
}

// Save persists a report and stores its pending events. Reports are never
// rewritten, so a second save of the same report is a no-op on the document.
func (r *DiscrepancyReportRepository) Save(ctx context.Context, report *domain.DiscrepancyReport) error {
	return r.writer.save(ctx, discrepancyReportsCollection, report.ReportID, "DiscrepancyReport", report, func(sessCtx mongo.SessionContext) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"reportId": report.ReportID}
		update := bson.M{"$setOnInsert": report}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return fmt.Errorf("failed to save discrepancy report: %w", err)
		}
		return nil
	})
}

// FindByID retrieves a report by ID
func (r *DiscrepancyReportRepository) FindByID(ctx context.Context, reportID string) (*domain.DiscrepancyReport, error) {
	var report domain.DiscrepancyReport

	err := r.observer.Observe(ctx, discrepancyReportsCollection, "findOne", func(ctx context.Context) error {
		return r.collection.FindOne(ctx, bson.M{"reportId": reportID}).Decode(&report)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// FindBySKU retrieves reports for a tenant SKU, newest first
func (r *DiscrepancyReportRepository) FindBySKU(ctx context.Context, tenantID, sellerID, sku string, pagination domain.Pagination) ([]*domain.DiscrepancyReport, error) {
	opts := options.Find().
		SetSort(pkgmongo.SortDescending("createdAt")).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	var reports []*domain.DiscrepancyReport
	err := r.observer.Observe(ctx, discrepancyReportsCollection, "find", func(ctx context.Context) error {
		cursor, err := r.collection.Find(ctx, skuFilter(tenantID, sellerID, sku), opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &reports)
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// CountBySKU returns the number of reports for a tenant SKU
func (r *DiscrepancyReportRepository) CountBySKU(ctx context.Context, tenantID, sellerID, sku string) (int64, error) {
	var count int64
	err := r.observer.Observe(ctx, discrepancyReportsCollection, "countDocuments", func(ctx context.Context) error {
		var err error
		count, err = r.collection.CountDocuments(ctx, skuFilter(tenantID, sellerID, sku))
		return err
	})
	return count, err
}

// skuFilter matches a tenant SKU. With a seller, reports of other sellers are
// excluded; $in with null also matches documents that have no sellerId.
func skuFilter(tenantID, sellerID, sku string) bson.M {
	filter := bson.M{"tenantId": tenantID, "sku": sku}
	if sellerID != "" {
		filter["sellerId"] = bson.M{"$in": bson.A{sellerID, nil}}
	}
	return filter
}
