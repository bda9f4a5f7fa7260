package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"go.uber.org/zap"
)

// FraudAlertSubject is the well-known subject fraud alerts are published on.
const FraudAlertSubject = "fraud.alert"

// Severity classifies a fraud score.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Thresholds are the score cut-offs for medium and high severity.
type Thresholds struct {
	Medium float64
	High   float64
}

// DefaultThresholds returns the standard cut-offs: 30 for medium, 70 for high.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 30, High: 70}
}

// Classify maps score to a severity.
func (t Thresholds) Classify(score float64) Severity {
	switch {
	case score >= t.High:
		return SeverityHigh
	case score >= t.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ClassifySeverity classifies score with the default thresholds.
func ClassifySeverity(score float64) Severity {
	return DefaultThresholds().Classify(score)
}

// FraudAlertMessage is the wire format of a fraud alert notification.
// EventID is unique per published message.
type FraudAlertMessage struct {
	EventID    string   `json:"event_id"`
	ClaimID    int64    `json:"claim_id"`
	FraudScore float64  `json:"fraud_score"`
	Signals    []string `json:"signals"`
	Timestamp  string   `json:"timestamp"`
	Severity   Severity `json:"severity"`
}

// FraudAlertHandler is invoked once per received fraud alert.
type FraudAlertHandler func(ctx context.Context, alert FraudAlertMessage) error

var escalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fraud_alert_escalations_total",
	Help: "High-severity fraud alerts received by subscribers",
})

// FraudAlertClient publishes and consumes fraud alerts.
type FraudAlertClient struct {
	bus        *Bus
	thresholds Thresholds
	now        func() time.Time
}

// NewFraudAlertClient creates a client on top of bus.
func NewFraudAlertClient(bus *Bus, thresholds Thresholds) *FraudAlertClient {
	return &FraudAlertClient{bus: bus, thresholds: thresholds, now: time.Now}
}

// Connect opens the underlying bus connection.
func (c *FraudAlertClient) Connect(ctx context.Context) error {
	return c.bus.Connect(ctx)
}

// Close closes the underlying bus connection.
func (c *FraudAlertClient) Close() error {
	return c.bus.Close()
}

// BuildMessage assembles the notification for a claim.
func (c *FraudAlertClient) BuildMessage(claimID int64, score float64, signals []string) FraudAlertMessage {
	if signals == nil {
		signals = []string{}
	}
	return FraudAlertMessage{
		EventID:    uuid.NewString(),
		ClaimID:    claimID,
		FraudScore: score,
		Signals:    signals,
		Timestamp:  c.now().UTC().Format(time.RFC3339Nano),
		Severity:   c.thresholds.Classify(score),
	}
}

// PublishFraudAlert publishes an alert for claimID. It connects first if needed and
// returns an error wrapping ErrPublishUnavailable when the bus cannot be reached.
func (c *FraudAlertClient) PublishFraudAlert(ctx context.Context, claimID int64, score float64, signals []string) error {
	msg := c.BuildMessage(claimID, score, signals)
	if err := c.bus.Publish(ctx, FraudAlertSubject, msg); err != nil {
		return err
	}
	logger.Info("fraud alert published",
		zap.String("event_id", msg.EventID),
		zap.Int64("claim_id", claimID),
		zap.Float64("fraud_score", score),
		zap.String("severity", string(msg.Severity)),
	)
	return nil
}

// SubscribeFraudAlerts consumes fraud alerts until ctx is cancelled. High-severity
// alerts are escalated before handler runs.
func (c *FraudAlertClient) SubscribeFraudAlerts(ctx context.Context, queue string, handler FraudAlertHandler) error {
	err := c.bus.Subscribe(ctx, FraudAlertSubject, queue, func(ctx context.Context, msg *Message) error {
		var alert FraudAlertMessage
		if err := json.Unmarshal(msg.Data, &alert); err != nil {
			return fmt.Errorf("decode fraud alert: %w", err)
		}
		logger.Info("fraud alert received",
			zap.String("event_id", alert.EventID),
			zap.Int64("claim_id", alert.ClaimID),
			zap.Float64("fraud_score", alert.FraudScore),
			zap.String("severity", string(alert.Severity)),
		)
		if alert.Severity == SeverityHigh {
			escalate(alert)
		}
		if handler == nil {
			return nil
		}
		return handler(ctx, alert)
	})
	if err != nil {
		return err
	}

	logger.Info("listening for fraud alerts", zap.String("subject", FraudAlertSubject))
	<-ctx.Done()
	return nil
}

func escalate(alert FraudAlertMessage) {
	escalationsTotal.Inc()
	logger.Error("CRITICAL: high-severity fraud alert",
		zap.Bool("critical", true),
		zap.Int64("claim_id", alert.ClaimID),
		zap.Float64("fraud_score", alert.FraudScore),
		zap.Strings("signals", alert.Signals),
	)
}
