package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/richxcame/claims-fraud/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id int64, phone, address string) graph.InsuredNode {
	return graph.InsuredNode{ID: id, Name: "party", NationalCode: "0000000000", Phone: phone, Address: address}
}

func seed(t *testing.T, store *graph.MemoryStore, nodes ...graph.InsuredNode) {
	t.Helper()
	for _, n := range nodes {
		require.NoError(t, store.UpsertInsured(context.Background(), n))
	}
}

func TestScorer_Assess(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []graph.InsuredNode
		id      int64
		score   float64
		signals []string
	}{
		{
			name:    "no overlap",
			nodes:   []graph.InsuredNode{node(1, "09121111111", "Tehran"), node(2, "09122222222", "Shiraz")},
			id:      1,
			score:   0,
			signals: []string{},
		},
		{
			name:  "shared phone",
			nodes: []graph.InsuredNode{node(1, "09121111111", "Tehran"), node(2, "09121111111", "Shiraz")},
			id:    1,
			score: 30,
			signals: []string{
				"Shared phone number with 1 other insured party",
				"Fraud score: 30",
			},
		},
		{
			name:  "shared phone and address",
			nodes: []graph.InsuredNode{node(1, "09121111111", "Tehran"), node(2, "09121111111", "Tehran")},
			id:    2,
			score: 50,
			signals: []string{
				"Shared phone number with 1 other insured party",
				"Shared address with 1 other insured party",
				"Fraud score: 50",
			},
		},
		{
			name: "several parties",
			nodes: []graph.InsuredNode{
				node(1, "09121111111", "Tehran"),
				node(2, "09121111111", "Karaj"),
				node(3, "09121111111", "Qom"),
			},
			id:    1,
			score: 60,
			signals: []string{
				"Shared phone number with 2 other insured parties",
				"Fraud score: 60",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := graph.NewMemoryStore()
			seed(t, store, tt.nodes...)

			a := NewScorer(store).Assess(context.Background(), tt.id)

			assert.False(t, a.Degraded)
			assert.Equal(t, tt.score, a.Score)
			assert.Equal(t, tt.signals, a.Signals)
		})
	}
}

func TestScorer_AssessDegradesWhenGraphUnavailable(t *testing.T) {
	store := graph.NewMemoryStore()
	seed(t, store, node(1, "09121111111", "Tehran"), node(2, "09121111111", "Tehran"))
	store.SetUnavailable(true)

	s := NewScorer(store)
	a := s.Assess(context.Background(), 1)

	assert.True(t, a.Degraded)
	assert.Equal(t, 0.0, a.Score)
	assert.Equal(t, []string{SignalGraphUnavailable}, a.Signals)
	assert.Equal(t, 0.0, s.Score(context.Background(), 1))
}

func TestScorer_UnknownInsuredScoresZero(t *testing.T) {
	s := NewScorer(graph.NewMemoryStore())
	a := s.Assess(context.Background(), 42)
	assert.False(t, a.Degraded)
	assert.Zero(t, a.Score)
}

func TestThresholds_Level(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, RiskNormal, th.Level(0))
	assert.Equal(t, RiskNormal, th.Level(29.9))
	assert.Equal(t, RiskSuspicious, th.Level(30))
	assert.Equal(t, RiskSuspicious, th.Level(69))
	assert.Equal(t, RiskDangerous, th.Level(70))
}

func TestScorer_LiveScore(t *testing.T) {
	store := graph.NewMemoryStore()
	seed(t, store,
		node(1, "09121111111", "Tehran"),
		node(2, "09121111111", "Tehran"),
		node(3, "09121111111", "Karaj"),
	)
	fixed := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	s := NewScorer(store)
	s.now = func() time.Time { return fixed }

	live := s.LiveScore(context.Background(), 1)

	assert.Equal(t, LiveScore{
		InsuredID:       1,
		Score:           80,
		Available:       true,
		Level:           RiskDangerous,
		PhoneOverlaps:   2,
		AddressOverlaps: 1,
		ComputedAt:      fixed,
	}, live)
}

func TestScorer_LiveScoreUnavailable(t *testing.T) {
	store := graph.NewMemoryStore()
	store.SetUnavailable(true)
	cache := newMemScoreCache()
	s := NewScorer(store, WithScoreCache(cache, time.Minute))

	live := s.LiveScore(context.Background(), 1)

	assert.False(t, live.Available)
	assert.Equal(t, RiskUnknown, live.Level)
	assert.Zero(t, cache.sets, "unavailable scores are not cached")
}

func TestScorer_LiveScoreUsesCache(t *testing.T) {
	store := graph.NewMemoryStore()
	seed(t, store, node(1, "09121111111", "Tehran"), node(2, "09121111111", "Shiraz"))
	cache := newMemScoreCache()
	s := NewScorer(store, WithScoreCache(cache, time.Minute))
	ctx := context.Background()

	first := s.LiveScore(ctx, 1)
	require.Equal(t, 30.0, first.Score)
	assert.Equal(t, 1, cache.sets)

	// A graph change is invisible until the entry is invalidated.
	seed(t, store, node(3, "09121111111", "Karaj"))
	second := s.LiveScore(ctx, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets)

	require.NoError(t, cache.Invalidate(ctx, 1))
	third := s.LiveScore(ctx, 1)
	assert.Equal(t, 60.0, third.Score, "two phone mates, no address mate")
}

type failingCache struct{ memScoreCache }

func (*failingCache) Get(ctx context.Context, id int64) (*LiveScore, bool, error) {
	return nil, false, errors.New("redis: connection refused")
}

func TestScorer_LiveScoreCacheErrorIsMiss(t *testing.T) {
	store := graph.NewMemoryStore()
	seed(t, store, node(1, "09121111111", "Tehran"), node(2, "09121111111", "Shiraz"))
	s := NewScorer(store, WithScoreCache(&failingCache{memScoreCache{scores: map[int64]LiveScore{}}}, time.Minute))

	live := s.LiveScore(context.Background(), 1)
	assert.True(t, live.Available)
	assert.Equal(t, 30.0, live.Score)
}
