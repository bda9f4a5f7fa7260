package fraud

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/richxcame/claims-fraud/internal/claims"
	"github.com/richxcame/claims-fraud/pkg/eventbus"
	"github.com/stretchr/testify/mock"
)

// memClaimsRepo is an in-memory claims.RepositoryInterface that also serves as InsuredSource.
type memClaimsRepo struct {
	mu      sync.Mutex
	nextID  int64
	seq     int64
	insured map[int64]*claims.InsuredParty
	claims  map[int64]*claims.Claim
	getErr  map[int64]error
}

func newMemClaimsRepo() *memClaimsRepo {
	return &memClaimsRepo{
		insured: make(map[int64]*claims.InsuredParty),
		claims:  make(map[int64]*claims.Claim),
		getErr:  make(map[int64]error),
	}
}

func (r *memClaimsRepo) CreateInsured(ctx context.Context, p *claims.InsuredParty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.insured {
		if existing.NationalCode == p.NationalCode {
			return claims.ErrDuplicateIdentifier
		}
	}
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.insured[p.ID] = &cp
	return nil
}

func (r *memClaimsRepo) GetInsured(ctx context.Context, id int64) (*claims.InsuredParty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.getErr[id]; err != nil {
		return nil, err
	}
	p, ok := r.insured[id]
	if !ok {
		return nil, fmt.Errorf("get insured party %d: %w", id, claims.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *memClaimsRepo) ListInsured(ctx context.Context, limit, offset int) ([]*claims.InsuredParty, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.insured))
	for id := range r.insured {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*claims.InsuredParty, 0)
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		cp := *r.insured[ids[i]]
		out = append(out, &cp)
	}
	return out, int64(len(ids)), nil
}

func (r *memClaimsRepo) ListInsuredAfter(ctx context.Context, afterID int64, limit int) ([]*claims.InsuredParty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.insured))
	for id := range r.insured {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*claims.InsuredParty, 0, limit)
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		cp := *r.insured[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memClaimsRepo) UpdateInsured(ctx context.Context, p *claims.InsuredParty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.insured[p.ID]; !ok {
		return claims.ErrNotFound
	}
	cp := *p
	r.insured[p.ID] = &cp
	return nil
}

func (r *memClaimsRepo) DeleteInsured(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.insured[id]; !ok {
		return claims.ErrNotFound
	}
	for _, c := range r.claims {
		if c.InsuredID == id {
			return fmt.Errorf("delete insured party %d: %w", id, claims.ErrReferentialBlock)
		}
	}
	delete(r.insured, id)
	return nil
}

func (r *memClaimsRepo) CreateClaim(ctx context.Context, c *claims.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = r.seq
	c.ClaimNumber = claims.FormatClaimNumber(r.seq)
	c.CreatedAt = time.Now()
	cp := *c
	r.claims[c.ID] = &cp
	return nil
}

func (r *memClaimsRepo) GetClaim(ctx context.Context, id int64) (*claims.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return nil, claims.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memClaimsRepo) ListClaims(ctx context.Context, f claims.ClaimFilter) ([]*claims.Claim, int64, error) {
	return nil, 0, nil
}

func (r *memClaimsRepo) UpdateClaim(ctx context.Context, c *claims.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.claims[c.ID] = &cp
	return nil
}

// memAlertRepo is an in-memory AlertRepositoryInterface with the one-alert-per-claim rule.
type memAlertRepo struct {
	mu      sync.Mutex
	nextID  int64
	byClaim map[int64]*FraudAlert
}

func newMemAlertRepo() *memAlertRepo {
	return &memAlertRepo{byClaim: make(map[int64]*FraudAlert)}
}

func (r *memAlertRepo) CreateAlertIfAbsent(ctx context.Context, a *FraudAlert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byClaim[a.ClaimID]; ok {
		return false, nil
	}
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	cp := *a
	r.byClaim[a.ClaimID] = &cp
	return true, nil
}

func (r *memAlertRepo) GetAlertByClaim(ctx context.Context, claimID int64) (*FraudAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byClaim[claimID]
	if !ok {
		return nil, ErrAlertNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAlertRepo) ListAlerts(ctx context.Context, resolved *bool, limit, offset int) ([]*FraudAlert, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*FraudAlert, 0)
	for _, a := range r.byClaim {
		if resolved == nil || a.IsResolved == *resolved {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memAlertRepo) ResolveAlert(ctx context.Context, id int64) (*FraudAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byClaim {
		if a.ID == id {
			a.IsResolved = true
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAlertNotFound
}

func (r *memAlertRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byClaim)
}

// recordingPublisher captures the wire messages that would be published.
type recordingPublisher struct {
	mu       sync.Mutex
	client   *eventbus.FraudAlertClient
	messages []eventbus.FraudAlertMessage
	failures int // number of leading calls that fail
	calls    int
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{
		client: eventbus.NewFraudAlertClient(eventbus.New(eventbus.Options{}), eventbus.DefaultThresholds()),
	}
}

func (p *recordingPublisher) PublishFraudAlert(ctx context.Context, claimID int64, score float64, signals []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return fmt.Errorf("publish: %w", eventbus.ErrPublishUnavailable)
	}
	p.messages = append(p.messages, p.client.BuildMessage(claimID, score, signals))
	return nil
}

func (p *recordingPublisher) published() []eventbus.FraudAlertMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]eventbus.FraudAlertMessage(nil), p.messages...)
}

// MockAlertRepository is a testify mock of AlertRepositoryInterface
type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) CreateAlertIfAbsent(ctx context.Context, a *FraudAlert) (bool, error) {
	args := m.Called(ctx, a)
	return args.Bool(0), args.Error(1)
}

func (m *MockAlertRepository) GetAlertByClaim(ctx context.Context, claimID int64) (*FraudAlert, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FraudAlert), args.Error(1)
}

func (m *MockAlertRepository) ListAlerts(ctx context.Context, resolved *bool, limit, offset int) ([]*FraudAlert, int64, error) {
	args := m.Called(ctx, resolved, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*FraudAlert), args.Get(1).(int64), args.Error(2)
}

func (m *MockAlertRepository) ResolveAlert(ctx context.Context, id int64) (*FraudAlert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FraudAlert), args.Error(1)
}

// memScoreCache is a map-backed ScoreCache
type memScoreCache struct {
	mu     sync.Mutex
	scores map[int64]LiveScore
	sets   int
}

func newMemScoreCache() *memScoreCache {
	return &memScoreCache{scores: make(map[int64]LiveScore)}
}

func (c *memScoreCache) Get(ctx context.Context, id int64) (*LiveScore, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.scores[id]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *memScoreCache) Set(ctx context.Context, s *LiveScore, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.scores[s.InsuredID] = *s
	return nil
}

func (c *memScoreCache) Invalidate(ctx context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.scores, id)
	}
	return nil
}
