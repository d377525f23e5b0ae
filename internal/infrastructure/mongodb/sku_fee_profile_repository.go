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
	outboxMongo "github.com/sellerops/fba-fees/pkg/outbox/mongodb"
)

const skuFeeProfilesCollection = "sku_fee_profiles"

// SKUFeeProfileRepository implements domain.SKUFeeProfileRepository
type SKUFeeProfileRepository struct {
	collection *mongo.Collection
	writer     *outboxWriter
	observer   *pkgmongo.Observer
}

// NewSKUFeeProfileRepository creates a new SKUFeeProfileRepository. observer may be nil.
func NewSKUFeeProfileRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, observer *pkgmongo.Observer) *SKUFeeProfileRepository {
	collection := db.Collection(skuFeeProfilesCollection)
	writer := newOutboxWriter(db, eventFactory, observer)

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		pkgmongo.UniqueIndex("tenant_sku", "tenantId", "sku"),
		pkgmongo.UniqueIndex("profile_id", "profileId"),
		pkgmongo.Index("tenant_updated", "tenantId", "-updatedAt"),
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
	_ = writer.outboxRepo.EnsureIndexes(ctx)

	return &SKUFeeProfileRepository{
		collection: collection,
		writer:     writer,
		observer:   observer,
	}
}

// Save upserts a profile and stores its pending events
func (r *SKUFeeProfileRepository) Save(ctx context.Context, profile *domain.SKUFeeProfile) error {
	profile.UpdatedAt = pkgmongo.Now()

	return r.writer.save(ctx, skuFeeProfilesCollection, profile.ProfileID, "SKUFeeProfile", profile, func(sessCtx mongo.SessionContext) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"tenantId": profile.TenantID, "sku": profile.SKU}
		update := bson.M{"$set": profile}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return fmt.Errorf("failed to save fee profile: %w", err)
		}
		return nil
	})
}

// FindBySKU retrieves the profile of a tenant SKU
func (r *SKUFeeProfileRepository) FindBySKU(ctx context.Context, tenantID, sku string) (*domain.SKUFeeProfile, error) {
	var profile domain.SKUFeeProfile
	filter := bson.M{"tenantId": tenantID, "sku": sku}

	err := r.observer.Observe(ctx, skuFeeProfilesCollection, "findOne", func(ctx context.Context) error {
		return r.collection.FindOne(ctx, filter).Decode(&profile)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// FindByTenant retrieves profiles for a tenant, most recently updated first
func (r *SKUFeeProfileRepository) FindByTenant(ctx context.Context, tenantID string, pagination domain.Pagination) ([]*domain.SKUFeeProfile, error) {
	opts := options.Find().
		SetSort(pkgmongo.SortDescending("updatedAt")).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	var profiles []*domain.SKUFeeProfile
	err := r.observer.Observe(ctx, skuFeeProfilesCollection, "find", func(ctx context.Context) error {
		cursor, err := r.collection.Find(ctx, bson.M{"tenantId": tenantID}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &profiles)
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetOutboxRepository returns the outbox repository the profiles are written with
func (r *SKUFeeProfileRepository) GetOutboxRepository() *outboxMongo.OutboxRepository {
	return r.writer.outboxRepo
}
