package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/richxcame/claims-fraud/internal/claims"
)

const alertColumns = `id, claim_id, fraud_score, signals, is_resolved, created_at`

// ErrAlertNotFound is returned when an alert does not exist
var ErrAlertNotFound = errors.New("fraud alert not found")

// Repository handles fraud alert persistence
type Repository struct {
	db claims.DB
}

// Ensure the concrete repository satisfies the pipeline's requirements.
var _ AlertRepositoryInterface = (*Repository)(nil)

// NewRepository creates a new fraud alert repository
func NewRepository(db claims.DB) *Repository {
	return &Repository{db: db}
}

// CreateAlertIfAbsent inserts alert unless its claim already has one. The
// unique claim_id constraint makes concurrent saves of one claim insert once.
func (r *Repository) CreateAlertIfAbsent(ctx context.Context, alert *FraudAlert) (bool, error) {
	signals := alert.Signals
	if signals == nil {
		signals = []string{}
	}
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return false, fmt.Errorf("failed to encode alert signals: %w", err)
	}

	query := `
		INSERT INTO fraud_alerts (claim_id, fraud_score, signals)
		VALUES ($1, $2, $3)
		ON CONFLICT (claim_id) DO NOTHING
		RETURNING id, is_resolved, created_at
	`

	err = r.db.QueryRow(ctx, query, alert.ClaimID, alert.FraudScore, signalsJSON).
		Scan(&alert.ID, &alert.IsResolved, &alert.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create fraud alert: %w", err)
	}
	alert.Signals = signals
	return true, nil
}

// GetAlertByClaim retrieves the alert raised for a claim
func (r *Repository) GetAlertByClaim(ctx context.Context, claimID int64) (*FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE claim_id = $1`

	alert, err := scanAlert(r.db.QueryRow(ctx, query, claimID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("claim %d: %w", claimID, ErrAlertNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fraud alert for claim %d: %w", claimID, err)
	}
	return alert, nil
}

// ListAlerts returns alerts newest first, optionally filtered by resolution, plus the total count
func (r *Repository) ListAlerts(ctx context.Context, resolved *bool, limit, offset int) ([]*FraudAlert, int64, error) {
	where := ""
	args := []any{}
	if resolved != nil {
		where = ` WHERE is_resolved = $1`
		args = append(args, *resolved)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fraud_alerts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count fraud alerts: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM fraud_alerts%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		alertColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list fraud alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*FraudAlert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan fraud alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list fraud alerts: %w", err)
	}

	return alerts, total, nil
}

// ResolveAlert marks an alert reviewed. Resolving twice is not an error.
func (r *Repository) ResolveAlert(ctx context.Context, id int64) (*FraudAlert, error) {
	query := `UPDATE fraud_alerts SET is_resolved = TRUE WHERE id = $1 RETURNING ` + alertColumns

	alert, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("alert %d: %w", id, ErrAlertNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fraud alert %d: %w", id, err)
	}
	return alert, nil
}

func scanAlert(row pgx.Row) (*FraudAlert, error) {
	var alert FraudAlert
	var signalsJSON []byte
	err := row.Scan(&alert.ID, &alert.ClaimID, &alert.FraudScore, &signalsJSON, &alert.IsResolved, &alert.CreatedAt)
	if err != nil {
		return nil, err
	}

	alert.Signals = []string{}
	if len(signalsJSON) > 0 {
		if err := json.Unmarshal(signalsJSON, &alert.Signals); err != nil {
			return nil, fmt.Errorf("decode alert signals: %w", err)
		}
	}
	return &alert, nil
}
