package claims

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RepositoryInterface defines the persistence operations for insured parties and claims
type RepositoryInterface interface {
	CreateInsured(ctx context.Context, party *InsuredParty) error
	GetInsured(ctx context.Context, id int64) (*InsuredParty, error)
	ListInsured(ctx context.Context, limit, offset int) ([]*InsuredParty, int64, error)
	UpdateInsured(ctx context.Context, party *InsuredParty) error
	DeleteInsured(ctx context.Context, id int64) error

	CreateClaim(ctx context.Context, claim *Claim) error
	GetClaim(ctx context.Context, id int64) (*Claim, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]*Claim, int64, error)
	UpdateClaim(ctx context.Context, claim *Claim) error
}

// InsuredObserver is notified after an insured party write has committed.
type InsuredObserver interface {
	OnInsuredCreated(ctx context.Context, party *InsuredParty) error
	OnInsuredUpdated(ctx context.Context, party *InsuredParty) error
	OnInsuredDeleted(ctx context.Context, id int64) error
}

// ClaimObserver brackets a claim save. OnClaimPreSave may mutate the claim
// before it is persisted; an error aborts the save. OnClaimPostSave runs
// after commit.
type ClaimObserver interface {
	OnClaimPreSave(ctx context.Context, claim *Claim) error
	OnClaimPostSave(ctx context.Context, claim *Claim, created bool) error
}
