package fraud

import (
	"context"

	"github.com/richxcame/claims-fraud/pkg/logger"
	"github.com/richxcame/claims-fraud/pkg/pagination"
	"go.uber.org/zap"
)

// AlertService exposes fraud alerts to reviewers
type AlertService struct {
	repo AlertRepositoryInterface
}

// NewAlertService creates a new alert service
func NewAlertService(repo AlertRepositoryInterface) *AlertService {
	return &AlertService{repo: repo}
}

// ListAlerts returns a page of alerts; resolved filters by review state when non-nil
func (s *AlertService) ListAlerts(ctx context.Context, resolved *bool, limit, offset int) ([]*FraudAlert, int64, error) {
	limit, offset = pagination.Normalize(limit, offset)
	return s.repo.ListAlerts(ctx, resolved, limit, offset)
}

// GetAlertByClaim returns the alert raised for a claim
func (s *AlertService) GetAlertByClaim(ctx context.Context, claimID int64) (*FraudAlert, error) {
	return s.repo.GetAlertByClaim(ctx, claimID)
}

// ResolveAlert marks an alert as reviewed
func (s *AlertService) ResolveAlert(ctx context.Context, id int64) (*FraudAlert, error) {
	alert, err := s.repo.ResolveAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("fraud alert resolved",
		zap.Int64("alert_id", alert.ID),
		zap.Int64("claim_id", alert.ClaimID),
	)
	return alert, nil
}

