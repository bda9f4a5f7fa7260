package fraud

import (
	"context"

	"github.com/richxcame/claims-fraud/pkg/eventbus"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"go.uber.org/zap"
)

// ListenerQueue is the queue group alert listeners share, so each alert is
// handled by one listener instance.
const ListenerQueue = "fraud-alert-listeners"

// EventHandler consumes fraud alert notifications
type EventHandler struct {
	client *eventbus.FraudAlertClient
	alerts AlertRepositoryInterface
}

// NewEventHandler creates a listener. alerts may be nil, in which case
// received alerts are not cross-checked against the database.
func NewEventHandler(client *eventbus.FraudAlertClient, alerts AlertRepositoryInterface) *EventHandler {
	return &EventHandler{client: client, alerts: alerts}
}

// Run subscribes to fraud alerts and blocks until ctx is cancelled.
func (h *EventHandler) Run(ctx context.Context) error {
	logger.Info("fraud listener: waiting for alerts", zap.String("subject", eventbus.FraudAlertSubject))
	return h.client.SubscribeFraudAlerts(ctx, ListenerQueue, h.handleFraudAlert)
}

func (h *EventHandler) handleFraudAlert(ctx context.Context, msg eventbus.FraudAlertMessage) error {
	alertsReceivedTotal.WithLabelValues(string(msg.Severity)).Inc()

	fields := []zap.Field{
		zap.Int64("claim_id", msg.ClaimID),
		zap.Float64("fraud_score", msg.FraudScore),
		zap.String("severity", string(msg.Severity)),
		zap.Strings("signals", msg.Signals),
		zap.String("timestamp", msg.Timestamp),
	}

	if h.alerts != nil {
		alert, err := h.alerts.GetAlertByClaim(ctx, msg.ClaimID)
		if err != nil {
			logger.Warn("fraud listener: no stored alert for notification", append(fields, zap.Error(err))...)
			return nil
		}
		fields = append(fields, zap.Int64("alert_id", alert.ID), zap.Bool("is_resolved", alert.IsResolved))
	}

	logger.Info("fraud listener: alert processed", fields...)
	return nil
}
