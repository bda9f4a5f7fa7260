package resilience

import (
	"context"

	"github.com/richxcame/claims-fraud/pkg/logger"
	"go.uber.org/zap"
)

// FallbackFunc decides the outcome of a call the breaker refused to run.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback surfaces ErrCircuitOpen to the caller.
func NoopFallback(context.Context, error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// GracefulDegradation surfaces ErrCircuitOpen and logs which dependency is
// being skipped, so callers that already degrade on error stay quiet.
func GracefulDegradation(dependency string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("dependency breaker open, skipping call",
			zap.String("dependency", dependency),
			zap.Error(err),
		)
		return nil, ErrCircuitOpen
	}
}
