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

const tenantSettingsCollection = "tenant_settings"

// TenantSettingsRepository implements domain.TenantSettingsRepository
type TenantSettingsRepository struct {
	collection *mongo.Collection
	writer     *outboxWriter
	observer   *pkgmongo.Observer
}

// NewTenantSettingsRepository creates a new TenantSettingsRepository. observer may be nil.
func NewTenantSettingsRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, observer *pkgmongo.Observer) *TenantSettingsRepository {
	collection := db.Collection(tenantSettingsCollection)
	writer := newOutboxWriter(db, eventFactory, observer)

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	_, _ = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		pkgmongo.UniqueIndex("tenant_id", "tenantId"),
	})
	_ = writer.outboxRepo.EnsureIndexes(ctx)

	return &TenantSettingsRepository{
		collection: collection,
		writer:     writer,
		observer:   observer,
	}
}

// Save upserts settings and stores their pending events
func (r *TenantSettingsRepository) Save(ctx context.Context, settings *domain.TenantSettings) error {
	return r.writer.save(ctx, tenantSettingsCollection, settings.TenantID, "TenantSettings", settings, func(sessCtx mongo.SessionContext) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"tenantId": settings.TenantID}
		update := bson.M{"$set": settings}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return fmt.Errorf("failed to save tenant settings: %w", err)
		}
		return nil
	})
}

// FindByTenantID retrieves settings for a tenant
func (r *TenantSettingsRepository) FindByTenantID(ctx context.Context, tenantID string) (*domain.TenantSettings, error) {
	var settings domain.TenantSettings

	err := r.observer.Observe(ctx, tenantSettingsCollection, "findOne", func(ctx context.Context) error {
		return r.collection.FindOne(ctx, bson.M{"tenantId": tenantID}).Decode(&settings)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}
