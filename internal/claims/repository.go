package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/richxcame/claims-fraud/pkg/database"
)

const (
	insuredColumns = `id, national_code, full_name, phone_number, address, created_at, updated_at`
	claimColumns   = `id, claim_number, insured_id, amount, accident_date, description, status,
		fraud_score, fraud_signals, created_at, updated_at`
)

// Repository handles database operations for insured parties and claims
type Repository struct {
	db DB
}

// NewRepository creates a new claims repository
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

var _ RepositoryInterface = (*Repository)(nil)

// CreateInsured inserts a new insured party
func (r *Repository) CreateInsured(ctx context.Context, party *InsuredParty) error {
	query := `
		INSERT INTO insured_parties (national_code, full_name, phone_number, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		party.NationalCode, party.FullName, party.PhoneNumber, party.Address,
	).Scan(&party.ID, &party.CreatedAt, &party.UpdatedAt)
	if err != nil {
		return mapWriteError("create insured party", err)
	}
	return nil
}

// GetInsured retrieves an insured party by ID
func (r *Repository) GetInsured(ctx context.Context, id int64) (*InsuredParty, error) {
	query := `SELECT ` + insuredColumns + ` FROM insured_parties WHERE id = $1`

	party, err := scanInsured(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapReadError(fmt.Sprintf("get insured party %d", id), err)
	}
	return party, nil
}

// ListInsured returns a page of insured parties ordered by ID, plus the total count
func (r *Repository) ListInsured(ctx context.Context, limit, offset int) ([]*InsuredParty, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM insured_parties`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count insured parties: %w", err)
	}

	query := `SELECT ` + insuredColumns + ` FROM insured_parties ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list insured parties: %w", err)
	}
	defer rows.Close()

	parties := make([]*InsuredParty, 0)
	for rows.Next() {
		party, err := scanInsured(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan insured party: %w", err)
		}
		parties = append(parties, party)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list insured parties: %w", err)
	}

	return parties, total, nil
}

// ListInsuredAfter returns up to limit insured parties with an ID above
// afterID, ordered by ID. Rows deleted between calls never shift later rows,
// so a caller walking the table by the last ID it saw visits every survivor.
func (r *Repository) ListInsuredAfter(ctx context.Context, afterID int64, limit int) ([]*InsuredParty, error) {
	query := `SELECT ` + insuredColumns + ` FROM insured_parties WHERE id > $1 ORDER BY id LIMIT $2`
	rows, err := r.db.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list insured parties after %d: %w", afterID, err)
	}
	defer rows.Close()

	parties := make([]*InsuredParty, 0, limit)
	for rows.Next() {
		party, err := scanInsured(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insured party: %w", err)
		}
		parties = append(parties, party)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list insured parties after %d: %w", afterID, err)
	}
	return parties, nil
}

// UpdateInsured overwrites the mutable fields of an insured party
func (r *Repository) UpdateInsured(ctx context.Context, party *InsuredParty) error {
	query := `
		UPDATE insured_parties
		SET national_code = $2, full_name = $3, phone_number = $4, address = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		party.ID, party.NationalCode, party.FullName, party.PhoneNumber, party.Address,
	).Scan(&party.UpdatedAt)
	if err != nil {
		return mapWriteError(fmt.Sprintf("update insured party %d", party.ID), err)
	}
	return nil
}

// DeleteInsured removes an insured party. It fails with ErrReferentialBlock
// while any claim references the party.
func (r *Repository) DeleteInsured(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the row so a concurrent claim insert waits on the FK check.
	var locked int64
	err = tx.QueryRow(ctx, `SELECT id FROM insured_parties WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		return mapReadError(fmt.Sprintf("delete insured party %d", id), err)
	}

	var claimCount int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM claims WHERE insured_id = $1`, id).Scan(&claimCount); err != nil {
		return fmt.Errorf("failed to count claims for insured party %d: %w", id, err)
	}
	if claimCount > 0 {
		return fmt.Errorf("delete insured party %d with %d claims: %w", id, claimCount, ErrReferentialBlock)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM insured_parties WHERE id = $1`, id); err != nil {
		return mapDeleteError(id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapDeleteError(id, err)
	}
	return nil
}

// CreateClaim inserts a claim, assigning its claim number from claim_number_seq
func (r *Repository) CreateClaim(ctx context.Context, claim *Claim) error {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('claim_number_seq')`).Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate claim number: %w", err)
	}
	claim.ClaimNumber = FormatClaimNumber(seq)
	if claim.Status == "" {
		claim.Status = StatusPending
	}

	signals, err := encodeSignals(claim.FraudSignals)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO claims (claim_number, insured_id, amount, accident_date, description, status,
		                    fraud_score, fraud_signals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		claim.ClaimNumber, claim.InsuredID, claim.Amount, claim.AccidentDate, claim.Description,
		string(claim.Status), claim.FraudScore, signals,
	).Scan(&claim.ID, &claim.CreatedAt, &claim.UpdatedAt)
	if err != nil {
		return mapWriteError("create claim", err)
	}
	return nil
}

// GetClaim retrieves a claim by ID
func (r *Repository) GetClaim(ctx context.Context, id int64) (*Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`

	claim, err := scanClaim(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapReadError(fmt.Sprintf("get claim %d", id), err)
	}
	return claim, nil
}

// ListClaims returns claims matching filter, newest first, plus the total count
func (r *Repository) ListClaims(ctx context.Context, filter ClaimFilter) ([]*Claim, int64, error) {
	where, args := claimFilterClause(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM claims`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count claims: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM claims%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		claimColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	result := make([]*Claim, 0)
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan claim: %w", err)
		}
		result = append(result, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list claims: %w", err)
	}

	return result, total, nil
}

// UpdateClaim overwrites a claim's mutable fields. The claim number and insured party never change.
func (r *Repository) UpdateClaim(ctx context.Context, claim *Claim) error {
	signals, err := encodeSignals(claim.FraudSignals)
	if err != nil {
		return err
	}

	query := `
		UPDATE claims
		SET amount = $2, accident_date = $3, description = $4, status = $5,
		    fraud_score = $6, fraud_signals = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.QueryRow(ctx, query,
		claim.ID, claim.Amount, claim.AccidentDate, claim.Description, string(claim.Status),
		claim.FraudScore, signals,
	).Scan(&claim.UpdatedAt)
	if err != nil {
		return mapWriteError(fmt.Sprintf("update claim %d", claim.ID), err)
	}
	return nil
}

func claimFilterClause(filter ClaimFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.InsuredID != nil {
		args = append(args, *filter.InsuredID)
		conds = append(conds, fmt.Sprintf("insured_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.MinScore != nil {
		args = append(args, *filter.MinScore)
		conds = append(conds, fmt.Sprintf("fraud_score >= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanInsured(row pgx.Row) (*InsuredParty, error) {
	p := &InsuredParty{}
	err := row.Scan(&p.ID, &p.NationalCode, &p.FullName, &p.PhoneNumber, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanClaim(row pgx.Row) (*Claim, error) {
	c := &Claim{}
	var status string
	var signals []byte
	err := row.Scan(
		&c.ID, &c.ClaimNumber, &c.InsuredID, &c.Amount, &c.AccidentDate, &c.Description, &status,
		&c.FraudScore, &signals, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = ClaimStatus(status)
	c.FraudSignals, err = decodeSignals(signals)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func encodeSignals(signals []string) ([]byte, error) {
	if signals == nil {
		signals = []string{}
	}
	data, err := json.Marshal(signals)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fraud signals: %w", err)
	}
	return data, nil
}

func decodeSignals(data []byte) ([]string, error) {
	signals := []string{}
	if len(data) == 0 {
		return signals, nil
	}
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, fmt.Errorf("failed to decode fraud signals: %w", err)
	}
	return signals, nil
}

func mapReadError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func mapDeleteError(id int64, err error) error {
	if database.IsForeignKeyViolation(err) {
		return fmt.Errorf("delete insured party %d: %s: %w", id, database.ConstraintName(err), ErrReferentialBlock)
	}
	return mapWriteError(fmt.Sprintf("delete insured party %d", id), err)
}

func mapWriteError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %s: %w", op, database.ConstraintName(err), ErrDuplicateIdentifier)
	case database.IsForeignKeyViolation(err):
		// On insert/update the referenced insured party is missing.
		return fmt.Errorf("%s: %s: %w", op, database.ConstraintName(err), ErrNotFound)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
