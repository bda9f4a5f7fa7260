package fraud

import (
	"context"
	"fmt"

	"github.com/richxcame/claims-fraud/internal/claims"
	"github.com/richxcame/claims-fraud/pkg/eventbus"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"go.uber.org/zap"
)

// AlertPipeline scores claims before they are saved and raises at most one
// alert per claim after. It is registered on claims.Service as a ClaimObserver.
type AlertPipeline struct {
	scorer   *Scorer
	alerts   AlertRepositoryInterface
	notifier *Notifier
}

var _ claims.ClaimObserver = (*AlertPipeline)(nil)

// NewAlertPipeline creates an alerting pipeline. A nil notifier disables notifications.
func NewAlertPipeline(scorer *Scorer, alerts AlertRepositoryInterface, notifier *Notifier) *AlertPipeline {
	return &AlertPipeline{scorer: scorer, alerts: alerts, notifier: notifier}
}

// OnClaimPreSave writes the current fraud score and signals onto claim.
// Claims without an insured party keep their previous score.
func (p *AlertPipeline) OnClaimPreSave(ctx context.Context, claim *claims.Claim) error {
	if claim.InsuredID == 0 {
		return nil
	}

	a := p.scorer.Assess(ctx, claim.InsuredID)
	claim.FraudScore = a.Score
	claim.FraudSignals = a.Signals

	logger.WithContext(ctx).Info("claim scored",
		zap.Int64("insured_id", claim.InsuredID),
		zap.String("claim_number", claim.ClaimNumber),
		zap.Float64("fraud_score", a.Score),
		zap.Bool("degraded", a.Degraded),
	)
	return nil
}

// OnClaimPostSave creates the claim's alert the first time its score reaches
// the alert threshold and dispatches one notification for it.
func (p *AlertPipeline) OnClaimPostSave(ctx context.Context, claim *claims.Claim, created bool) error {
	thresholds := p.scorer.Thresholds()
	if claim.FraudScore < thresholds.Alert {
		return nil
	}

	alert := &FraudAlert{
		ClaimID:    claim.ID,
		FraudScore: claim.FraudScore,
		Signals:    alertSignals(claim),
	}
	inserted, err := p.alerts.CreateAlertIfAbsent(ctx, alert)
	if err != nil {
		return fmt.Errorf("create fraud alert for claim %d: %w", claim.ID, err)
	}
	if !inserted {
		logger.WithContext(ctx).Debug("claim already has a fraud alert", zap.Int64("claim_id", claim.ID))
		return nil
	}

	severity := eventbus.Thresholds{Medium: thresholds.Alert, High: thresholds.High}.Classify(alert.FraudScore)
	alertsCreatedTotal.WithLabelValues(string(severity)).Inc()
	logger.WithContext(ctx).Warn("fraud alert created",
		zap.Int64("alert_id", alert.ID),
		zap.Int64("claim_id", claim.ID),
		zap.String("claim_number", claim.ClaimNumber),
		zap.Float64("fraud_score", alert.FraudScore),
		zap.String("severity", string(severity)),
		zap.Bool("claim_created", created),
	)

	if p.notifier != nil {
		p.notifier.Dispatch(ctx, alert)
	}
	return nil
}

func alertSignals(claim *claims.Claim) []string {
	signals := append([]string(nil), claim.FraudSignals...)
	if len(signals) == 0 {
		signals = append(signals, fmt.Sprintf("Fraud score: %g", claim.FraudScore))
	}
	return signals
}
