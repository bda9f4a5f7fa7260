package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richxcame/claims-fraud/pkg/logger"
	"github.com/richxcame/claims-fraud/pkg/pagination"
	"go.uber.org/zap"
)

// Service implements record management for insured parties and claims.
// Registered observers run synchronously inside each write.
type Service struct {
	repo             RepositoryInterface
	insuredObservers []InsuredObserver
	claimObservers   []ClaimObserver
}

// Option configures a Service
type Option func(*Service)

// WithInsuredObserver registers an observer of insured party writes
func WithInsuredObserver(o InsuredObserver) Option {
	return func(s *Service) {
		s.insuredObservers = append(s.insuredObservers, o)
	}
}

// WithClaimObserver registers an observer of claim saves
func WithClaimObserver(o ClaimObserver) Option {
	return func(s *Service) {
		s.claimObservers = append(s.claimObservers, o)
	}
}

// NewService creates a new claims service
func NewService(repo RepositoryInterface, opts ...Option) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInsured persists a new insured party and then notifies observers.
// A *SyncError is returned with the party if an observer fails after commit.
func (s *Service) CreateInsured(ctx context.Context, req *CreateInsuredRequest) (*InsuredParty, error) {
	party := &InsuredParty{
		NationalCode: req.NationalCode,
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		Address:      req.Address,
	}
	if err := s.repo.CreateInsured(ctx, party); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("insured party created",
		zap.Int64("insured_id", party.ID),
		zap.String("national_code", party.NationalCode),
	)

	for _, o := range s.insuredObservers {
		if err := o.OnInsuredCreated(ctx, party); err != nil {
			return party, s.syncFailed(ctx, "insured.create", party.ID, err)
		}
	}
	return party, nil
}

// GetInsured returns an insured party by ID
func (s *Service) GetInsured(ctx context.Context, id int64) (*InsuredParty, error) {
	return s.repo.GetInsured(ctx, id)
}

// ListInsured returns a page of insured parties
func (s *Service) ListInsured(ctx context.Context, limit, offset int) ([]*InsuredParty, int64, error) {
	limit, offset = pagination.Normalize(limit, offset)
	return s.repo.ListInsured(ctx, limit, offset)
}

// UpdateInsured applies the non-nil fields of req and notifies observers after commit.
func (s *Service) UpdateInsured(ctx context.Context, id int64, req *UpdateInsuredRequest) (*InsuredParty, error) {
	party, err := s.repo.GetInsured(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.NationalCode != nil {
		party.NationalCode = *req.NationalCode
	}
	if req.FullName != nil {
		party.FullName = *req.FullName
	}
	if req.PhoneNumber != nil {
		party.PhoneNumber = *req.PhoneNumber
	}
	if req.Address != nil {
		party.Address = *req.Address
	}

	if err := s.repo.UpdateInsured(ctx, party); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("insured party updated", zap.Int64("insured_id", party.ID))

	for _, o := range s.insuredObservers {
		if err := o.OnInsuredUpdated(ctx, party); err != nil {
			return party, s.syncFailed(ctx, "insured.update", party.ID, err)
		}
	}
	return party, nil
}

// DeleteInsured removes an insured party without claims and notifies observers.
func (s *Service) DeleteInsured(ctx context.Context, id int64) error {
	if err := s.repo.DeleteInsured(ctx, id); err != nil {
		if errors.Is(err, ErrReferentialBlock) {
			logger.WithContext(ctx).Warn("insured party deletion blocked by claims", zap.Int64("insured_id", id))
		}
		return err
	}

	logger.WithContext(ctx).Info("insured party deleted", zap.Int64("insured_id", id))

	for _, o := range s.insuredObservers {
		if err := o.OnInsuredDeleted(ctx, id); err != nil {
			return s.syncFailed(ctx, "insured.delete", id, err)
		}
	}
	return nil
}

// CreateClaim files a claim against an existing insured party. Claim
// observers score it before insert and may raise an alert after.
func (s *Service) CreateClaim(ctx context.Context, req *CreateClaimRequest) (*Claim, error) {
	accidentDate, err := parseDate(req.AccidentDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetInsured(ctx, req.InsuredID); err != nil {
		return nil, err
	}

	claim := &Claim{
		InsuredID:    req.InsuredID,
		Amount:       req.Amount,
		AccidentDate: accidentDate,
		Description:  req.Description,
		Status:       StatusPending,
		FraudSignals: []string{},
	}
	return s.saveClaim(ctx, claim, true)
}

// GetClaim returns a claim by ID
func (s *Service) GetClaim(ctx context.Context, id int64) (*Claim, error) {
	return s.repo.GetClaim(ctx, id)
}

// ListClaims returns claims matching filter
func (s *Service) ListClaims(ctx context.Context, filter ClaimFilter) ([]*Claim, int64, error) {
	filter.Limit, filter.Offset = pagination.Normalize(filter.Limit, filter.Offset)
	return s.repo.ListClaims(ctx, filter)
}

// UpdateClaim applies the non-nil fields of req and re-runs the claim observers.
func (s *Service) UpdateClaim(ctx context.Context, id int64, req *UpdateClaimRequest) (*Claim, error) {
	claim, err := s.repo.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Amount != nil {
		claim.Amount = *req.Amount
	}
	if req.AccidentDate != nil {
		d, err := parseDate(*req.AccidentDate)
		if err != nil {
			return nil, err
		}
		claim.AccidentDate = d
	}
	if req.Description != nil {
		claim.Description = *req.Description
	}
	if req.Status != nil {
		claim.Status = ClaimStatus(*req.Status)
	}

	return s.saveClaim(ctx, claim, false)
}

func (s *Service) saveClaim(ctx context.Context, claim *Claim, created bool) (*Claim, error) {
	for _, o := range s.claimObservers {
		if err := o.OnClaimPreSave(ctx, claim); err != nil {
			return nil, fmt.Errorf("prepare claim: %w", err)
		}
	}

	var err error
	if created {
		err = s.repo.CreateClaim(ctx, claim)
	} else {
		err = s.repo.UpdateClaim(ctx, claim)
	}
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("claim saved",
		zap.Int64("claim_id", claim.ID),
		zap.String("claim_number", claim.ClaimNumber),
		zap.Bool("created", created),
		zap.Float64("fraud_score", claim.FraudScore),
	)

	for _, o := range s.claimObservers {
		if err := o.OnClaimPostSave(ctx, claim, created); err != nil {
			return claim, s.syncFailed(ctx, "claim.post_save", claim.ID, err)
		}
	}
	return claim, nil
}

func (s *Service) syncFailed(ctx context.Context, op string, id int64, err error) error {
	logger.WithContext(ctx).Error("post-commit step failed",
		zap.String("op", op),
		zap.Int64("id", id),
		zap.Error(err),
	)
	return &SyncError{Op: op, ID: id, Err: err}
}

func parseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("accident date %q: %w", value, ErrInvalidInput)
	}
	return d, nil
}
