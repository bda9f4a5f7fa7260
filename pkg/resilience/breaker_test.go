package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/richxcame/claims-fraud/pkg/config"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(err error) Operation {
	return func(ctx context.Context) (interface{}, error) { return nil, err }
}

func tripAfter(name string, failures int) Settings {
	return SettingsFor(name, config.BreakerConfig{IntervalSeconds: 60, TimeoutSeconds: 60, FailureThreshold: failures})
}

func TestCircuitBreaker_OpensAndStopsCalling(t *testing.T) {
	breaker := NewCircuitBreaker(tripAfter("neo4j-open", 2), nil)
	refused := errors.New("bolt connection refused")

	for i := 0; i < 2; i++ {
		_, err := breaker.Execute(context.Background(), failing(refused))
		assert.ErrorIs(t, err, refused)
	}
	require.Equal(t, gobreaker.StateOpen, breaker.State())

	ran := false
	_, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		ran = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ran)
}

func TestCircuitBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	breaker := NewCircuitBreaker(tripAfter("neo4j-cancel", 1), nil)

	_, err := breaker.Execute(context.Background(), failing(context.Canceled))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestCircuitBreaker_GracefulDegradationReportsOpen(t *testing.T) {
	breaker := NewCircuitBreaker(tripAfter("nats-degrade", 1), GracefulDegradation("nats"))

	_, _ = breaker.Execute(context.Background(), failing(errors.New("no servers available")))
	_, err := breaker.Execute(context.Background(), failing(errors.New("unreached")))

	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestRetryWithBreaker_RecoversFromOneFailure(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "nats-retry", Interval: time.Minute, Timeout: time.Second, FailureThreshold: 5}, NoopFallback)
	calls := 0

	result, err := RetryWithBreaker(context.Background(), fastConfig(3), breaker, func(ctx context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errTransient
		}
		return "ack", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ack", result)
	assert.Equal(t, 2, calls)
}

func TestRetryWithBreaker_StopsOnceOpen(t *testing.T) {
	breaker := NewCircuitBreaker(tripAfter("nats-stop", 2), nil)
	calls := 0

	_, err := RetryWithBreaker(context.Background(), fastConfig(5), breaker, func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errTransient
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls, "retries end when the breaker opens")
}

func TestSettingsFor(t *testing.T) {
	defaults := SettingsFor("graph", config.BreakerConfig{})
	assert.Equal(t, "graph", defaults.Name)
	assert.Equal(t, time.Minute, defaults.Interval)
	assert.Equal(t, 30*time.Second, defaults.Timeout)
	assert.Equal(t, uint32(5), defaults.FailureThreshold)
	assert.Equal(t, uint32(1), defaults.SuccessThreshold)

	tuned := SettingsFor("nats", config.BreakerConfig{IntervalSeconds: 10, TimeoutSeconds: 15, FailureThreshold: 3, SuccessThreshold: 2})
	assert.Equal(t, 10*time.Second, tuned.Interval)
	assert.Equal(t, 15*time.Second, tuned.Timeout)
	assert.Equal(t, uint32(3), tuned.FailureThreshold)
	assert.Equal(t, uint32(2), tuned.SuccessThreshold)
}
