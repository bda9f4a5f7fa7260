package fraud

import (
	"context"
	"time"

	"github.com/richxcame/claims-fraud/internal/claims"
)

// AlertRepositoryInterface defines persistence for fraud alerts
type AlertRepositoryInterface interface {
	// CreateAlertIfAbsent inserts alert unless the claim already has one.
	// It reports whether a row was inserted.
	CreateAlertIfAbsent(ctx context.Context, alert *FraudAlert) (bool, error)
	GetAlertByClaim(ctx context.Context, claimID int64) (*FraudAlert, error)
	ListAlerts(ctx context.Context, resolved *bool, limit, offset int) ([]*FraudAlert, int64, error)
	ResolveAlert(ctx context.Context, id int64) (*FraudAlert, error)
}

// InsuredSource reads the authoritative insured party records
type InsuredSource interface {
	GetInsured(ctx context.Context, id int64) (*claims.InsuredParty, error)
	// ListInsuredAfter pages by key: up to limit parties with ID > afterID, ordered by ID.
	ListInsuredAfter(ctx context.Context, afterID int64, limit int) ([]*claims.InsuredParty, error)
}

// AlertPublisher delivers fraud alert notifications
type AlertPublisher interface {
	PublishFraudAlert(ctx context.Context, claimID int64, score float64, signals []string) error
}

// ScoreCache caches live scores. Implementations must treat errors as misses.
type ScoreCache interface {
	Get(ctx context.Context, insuredID int64) (*LiveScore, bool, error)
	Set(ctx context.Context, score *LiveScore, ttl time.Duration) error
	Invalidate(ctx context.Context, insuredIDs ...int64) error
}
