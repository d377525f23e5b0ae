package mongodb

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sellerops/fba-fees/pkg/metrics"
	"github.com/sellerops/fba-fees/pkg/resilience"
)

func TestNilObserverRunsOperation(t *testing.T) {
	var o *Observer
	called := false
	err := o.Observe(context.Background(), "sku_fee_profiles", "findOne", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestObserverRecordsMetrics(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig("mongo-test"))
	o := NewObserver("fba_fees", m, nil, nil)

	require.NoError(t, o.Observe(context.Background(), "sku_fee_profiles", "upsert", func(context.Context) error { return nil }))
	err := o.Observe(context.Background(), "sku_fee_profiles", "upsert", func(context.Context) error { return errors.New("write conflict") })
	assert.ErrorContains(t, err, "write conflict")

	ok := testutil.ToFloat64(m.MongoDBOperations.WithLabelValues("mongo-test", "sku_fee_profiles", "upsert", "success"))
	failed := testutil.ToFloat64(m.MongoDBOperations.WithLabelValues("mongo-test", "sku_fee_profiles", "upsert", "error"))
	assert.Equal(t, float64(1), ok)
	assert.Equal(t, float64(1), failed)
}

func TestObserverNotFoundDoesNotTripBreaker(t *testing.T) {
	config := StoreBreakerConfig()
	config.FailureThreshold = 1
	breaker := resilience.NewCircuitBreaker(config, nil, nil)
	o := NewObserver("fba_fees", nil, nil, breaker)

	for i := 0; i < 3; i++ {
		err := o.Observe(context.Background(), "discrepancy_reports", "findOne", func(context.Context) error {
			return mongo.ErrNoDocuments
		})
		assert.ErrorIs(t, err, mongo.ErrNoDocuments)
	}
	assert.Equal(t, "closed", breaker.State().String())

	_ = o.Observe(context.Background(), "discrepancy_reports", "findOne", func(context.Context) error {
		return errors.New("connection reset")
	})
	err := o.Observe(context.Background(), "discrepancy_reports", "findOne", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestIndexHelpers(t *testing.T) {
	unique := UniqueIndex("tenant_sku", "tenantId", "sku")
	assert.Equal(t, bson.D{{Key: "tenantId", Value: 1}, {Key: "sku", Value: 1}}, unique.Keys)
	require.NotNil(t, unique.Options.Unique)
	assert.True(t, *unique.Options.Unique)
	assert.Equal(t, "tenant_sku", *unique.Options.Name)

	idx := Index("tenant_sku_created", "tenantId", "sku", "-createdAt")
	assert.Equal(t, bson.D{{Key: "tenantId", Value: 1}, {Key: "sku", Value: 1}, {Key: "createdAt", Value: -1}}, idx.Keys)
	assert.Nil(t, idx.Options.Unique)

	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, SortDescending("createdAt"))
}

func TestConfigClientOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Username = "svc"
	cfg.Password = "secret"
	cfg.AuthDB = "admin"
	cfg.ReplicaSet = "rs0"

	opts := cfg.ClientOptions()
	require.NotNil(t, opts.Auth)
	assert.Equal(t, "svc", opts.Auth.Username)
	assert.Equal(t, "admin", opts.Auth.AuthSource)
	assert.Equal(t, "rs0", *opts.ReplicaSet)
	assert.Equal(t, uint64(100), *opts.MaxPoolSize)
	assert.Equal(t, "fba_fees", cfg.Database)
}
