package fraud

import (
	"context"
	"sync"
	"time"

	"github.com/richxcame/claims-fraud/pkg/logger"
	"github.com/richxcame/claims-fraud/pkg/resilience"
	"go.uber.org/zap"
)

// Notifier publishes alert notifications off the request path with bounded
// retries. Failures are logged and reported to the completion callback; they
// never affect the stored alert.
type Notifier struct {
	publisher  AlertPublisher
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	timeout    time.Duration
	onComplete func(NotifyResult)

	wg sync.WaitGroup
}

// NotifierOption configures a Notifier
type NotifierOption func(*Notifier)

// WithRetryConfig overrides the publish retry policy
func WithRetryConfig(cfg resilience.RetryConfig) NotifierOption {
	return func(n *Notifier) { n.retry = cfg }
}

// WithBreaker routes every publish attempt through breaker, so a bus that
// keeps failing is skipped instead of retried by every notification.
func WithBreaker(b *resilience.CircuitBreaker) NotifierOption {
	return func(n *Notifier) { n.breaker = b }
}

// WithPublishTimeout bounds one notification including retries
func WithPublishTimeout(d time.Duration) NotifierOption {
	return func(n *Notifier) { n.timeout = d }
}

// WithCompletionCallback is invoked once per dispatched notification
func WithCompletionCallback(fn func(NotifyResult)) NotifierOption {
	return func(n *Notifier) { n.onComplete = fn }
}

// NewNotifier creates a notifier on publisher
func NewNotifier(publisher AlertPublisher, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		publisher: publisher,
		retry:     resilience.PublishRetryConfig(3),
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Dispatch publishes alert in the background and returns immediately.
// ctx contributes its values (correlation id) but not its cancellation.
func (n *Notifier) Dispatch(ctx context.Context, alert *FraudAlert) {
	ctx = context.WithoutCancel(ctx)
	signals := append([]string(nil), alert.Signals...)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.publish(ctx, alert.ID, alert.ClaimID, alert.FraudScore, signals)
	}()
}

// Wait blocks until every dispatched notification has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Shutdown waits for in-flight notifications until ctx is done.
func (n *Notifier) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) publish(ctx context.Context, alertID, claimID int64, score float64, signals []string) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	log := logger.WithContext(ctx).With(zap.Int64("alert_id", alertID), zap.Int64("claim_id", claimID))

	attempts := 0
	cfg := n.retry
	userOnRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn("fraud alert publish failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if userOnRetry != nil {
			userOnRetry(attempt, err, wait)
		}
	}

	op := func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, n.publisher.PublishFraudAlert(ctx, claimID, score, signals)
	}
	var err error
	if n.breaker != nil {
		_, err = resilience.RetryWithBreaker(ctx, cfg, n.breaker, op)
	} else {
		_, err = resilience.Retry(ctx, cfg, op)
	}

	result := NotifyResult{
		AlertID:  alertID,
		ClaimID:  claimID,
		Attempts: attempts,
		Duration: time.Since(start),
		Err:      err,
	}
	if err != nil {
		notificationsTotal.WithLabelValues("failed").Inc()
		log.Error("fraud alert notification dropped", zap.Int("attempts", attempts), zap.Error(err))
	} else {
		notificationsTotal.WithLabelValues("sent").Inc()
		log.Info("fraud alert notification sent", zap.Int("attempts", attempts))
	}

	if n.onComplete != nil {
		n.onComplete(result)
	}
}
