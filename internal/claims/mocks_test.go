package claims

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRepository is an in-package mock for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateInsured(ctx context.Context, party *InsuredParty) error {
	args := m.Called(ctx, party)
	return args.Error(0)
}

func (m *MockRepository) GetInsured(ctx context.Context, id int64) (*InsuredParty, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InsuredParty), args.Error(1)
}

func (m *MockRepository) ListInsured(ctx context.Context, limit, offset int) ([]*InsuredParty, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*InsuredParty), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) UpdateInsured(ctx context.Context, party *InsuredParty) error {
	args := m.Called(ctx, party)
	return args.Error(0)
}

func (m *MockRepository) DeleteInsured(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CreateClaim(ctx context.Context, claim *Claim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockRepository) GetClaim(ctx context.Context, id int64) (*Claim, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Claim), args.Error(1)
}

func (m *MockRepository) ListClaims(ctx context.Context, filter ClaimFilter) ([]*Claim, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Claim), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) UpdateClaim(ctx context.Context, claim *Claim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

// MockInsuredObserver records insured lifecycle callbacks
type MockInsuredObserver struct {
	mock.Mock
}

func (m *MockInsuredObserver) OnInsuredCreated(ctx context.Context, party *InsuredParty) error {
	return m.Called(ctx, party).Error(0)
}

func (m *MockInsuredObserver) OnInsuredUpdated(ctx context.Context, party *InsuredParty) error {
	return m.Called(ctx, party).Error(0)
}

func (m *MockInsuredObserver) OnInsuredDeleted(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockClaimObserver records claim save callbacks
type MockClaimObserver struct {
	mock.Mock
}

func (m *MockClaimObserver) OnClaimPreSave(ctx context.Context, claim *Claim) error {
	return m.Called(ctx, claim).Error(0)
}

func (m *MockClaimObserver) OnClaimPostSave(ctx context.Context, claim *Claim, created bool) error {
	return m.Called(ctx, claim, created).Error(0)
}
