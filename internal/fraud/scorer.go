package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richxcame/claims-fraud/pkg/graph"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SignalGraphUnavailable is recorded on a claim scored while the graph store was down.
const SignalGraphUnavailable = "Graph store unavailable: fraud score not computed"

var tracer = otel.Tracer("github.com/richxcame/claims-fraud/internal/fraud")

// Scorer turns graph overlaps into fraud scores
type Scorer struct {
	store      graph.Store
	thresholds Thresholds
	cache      ScoreCache
	cacheTTL   time.Duration
	now        func() time.Time
}

// ScorerOption configures a Scorer
type ScorerOption func(*Scorer)

// WithThresholds overrides the default thresholds
func WithThresholds(t Thresholds) ScorerOption {
	return func(s *Scorer) { s.thresholds = t }
}

// WithScoreCache caches live scores for ttl
func WithScoreCache(cache ScoreCache, ttl time.Duration) ScorerOption {
	return func(s *Scorer) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// NewScorer creates a scorer over store
func NewScorer(store graph.Store, opts ...ScorerOption) *Scorer {
	s := &Scorer{store: store, thresholds: DefaultThresholds(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Thresholds returns the configured thresholds
func (s *Scorer) Thresholds() Thresholds {
	return s.thresholds
}

// Score returns the fraud score of an insured party, 0 when the graph is unavailable.
func (s *Scorer) Score(ctx context.Context, insuredID int64) float64 {
	return s.Assess(ctx, insuredID).Score
}

// Assess scores an insured party and explains the score. It never fails:
// graph outages yield a degraded zero assessment.
func (s *Scorer) Assess(ctx context.Context, insuredID int64) Assessment {
	ctx, span := tracer.Start(ctx, "fraud.assess")
	defer span.End()
	span.SetAttributes(attribute.Int64("insured.id", insuredID))

	overlap, err := s.store.ComputeOverlapScore(ctx, insuredID)
	if err != nil {
		degradedScoresTotal.Inc()
		span.SetAttributes(attribute.Bool("fraud.degraded", true))
		log := logger.WithContext(ctx).With(zap.Int64("insured_id", insuredID), zap.Error(err))
		if errors.Is(err, graph.ErrUnavailable) {
			log.Warn("graph store unavailable, scoring degraded to 0")
		} else {
			log.Error("overlap query failed, scoring degraded to 0")
		}
		return Assessment{
			InsuredID: insuredID,
			Signals:   []string{SignalGraphUnavailable},
			Degraded:  true,
		}
	}

	score := overlap.Score()
	scoreHistogram.Observe(score)
	span.SetAttributes(attribute.Float64("fraud.score", score))

	return Assessment{
		InsuredID: insuredID,
		Score:     score,
		Signals:   signalsFor(overlap, score),
		Overlap:   overlap,
	}
}

// LiveScore returns the display score of an insured party. Unavailable graph
// data is reported as Available=false rather than a zero score.
func (s *Scorer) LiveScore(ctx context.Context, insuredID int64) LiveScore {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, insuredID)
		if err != nil {
			logger.WithContext(ctx).Debug("live score cache read failed", zap.Int64("insured_id", insuredID), zap.Error(err))
		} else if ok {
			return *cached
		}
	}

	a := s.Assess(ctx, insuredID)
	live := LiveScore{
		InsuredID:  insuredID,
		ComputedAt: s.now().UTC(),
	}
	if a.Degraded {
		live.Level = RiskUnknown
		return live
	}

	live.Score = a.Score
	live.Available = true
	live.Level = s.thresholds.Level(a.Score)
	live.PhoneOverlaps = a.Overlap.PhoneOverlaps
	live.AddressOverlaps = a.Overlap.AddressOverlaps

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, &live, s.cacheTTL); err != nil {
			logger.WithContext(ctx).Debug("live score cache write failed", zap.Int64("insured_id", insuredID), zap.Error(err))
		}
	}
	return live
}

func signalsFor(o graph.Overlap, score float64) []string {
	signals := make([]string, 0, 3)
	if o.PhoneOverlaps > 0 {
		signals = append(signals, fmt.Sprintf("Shared phone number with %s", parties(o.PhoneOverlaps)))
	}
	if o.AddressOverlaps > 0 {
		signals = append(signals, fmt.Sprintf("Shared address with %s", parties(o.AddressOverlaps)))
	}
	if score > 0 {
		signals = append(signals, fmt.Sprintf("Fraud score: %g", score))
	}
	return signals
}

func parties(n int) string {
	if n == 1 {
		return "1 other insured party"
	}
	return fmt.Sprintf("%d other insured parties", n)
}
