package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/fba-fees/pkg/metrics"
)

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig("resilience-test"))
	config := DefaultCircuitBreakerConfig("kafka-producer")
	config.FailureThreshold = 2
	config.Timeout = time.Minute

	cb := NewCircuitBreaker(config, nil, m)
	failing := errors.New("broker down")

	for i := 0; i < 2; i++ {
		err := cb.Run(context.Background(), func() error { return failing })
		assert.ErrorIs(t, err, failing)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	called := false
	err := cb.Run(context.Background(), func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("resilience-test", "kafka-producer")))
}

func TestCircuitBreakerHonoursCancelledContext(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("mongodb"), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, func() (interface{}, error) { return "unreachable", nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistryReturnsSameBreaker(t *testing.T) {
	r := NewCircuitBreakerRegistry(nil, nil)
	a := r.Get("mongodb")
	b := r.Get("mongodb")
	assert.Same(t, a, b)

	status := r.Status()
	require.Contains(t, status, "mongodb")
	assert.Equal(t, "closed", status["mongodb"].State)
}

func TestRetry(t *testing.T) {
	config := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		got, err := RetryWithResult(context.Background(), config, func() (int, error) {
			attempts++
			if attempts < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		err := Retry(context.Background(), config, func() error { return errors.New("down") })
		assert.ErrorContains(t, err, "max retries (3) exceeded")
	})

	t.Run("stops on non-retryable errors", func(t *testing.T) {
		fatal := errors.New("bad request")
		cfg := *config
		cfg.RetryableErrors = func(err error) bool { return !errors.Is(err, fatal) }
		attempts := 0
		err := Retry(context.Background(), &cfg, func() error {
			attempts++
			return fatal
		})
		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, attempts)
	})
}
