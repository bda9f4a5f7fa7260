package fraud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/richxcame/claims-fraud/internal/claims"
	"github.com/richxcame/claims-fraud/pkg/graph"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const resyncPageSize = 200

// SyncPipeline mirrors insured parties into the graph store. It is registered
// on claims.Service as an InsuredObserver and also drives full resyncs.
//
// Every mirror write for an insured party runs under that party's lock and
// re-reads the committed record first, so the graph converges on the latest
// committed values even when callbacks for the same party race.
type SyncPipeline struct {
	store       graph.Store
	source      InsuredSource
	cache       ScoreCache
	locks       *keyedMutex
	concurrency int
}

var _ claims.InsuredObserver = (*SyncPipeline)(nil)

// SyncOption configures a SyncPipeline
type SyncOption func(*SyncPipeline)

// WithResyncConcurrency bounds the number of parallel upserts during Resync
func WithResyncConcurrency(n int) SyncOption {
	return func(p *SyncPipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithCacheInvalidation drops cached live scores of synced parties
func WithCacheInvalidation(cache ScoreCache) SyncOption {
	return func(p *SyncPipeline) { p.cache = cache }
}

// NewSyncPipeline creates a sync pipeline reading records from source
func NewSyncPipeline(store graph.Store, source InsuredSource, opts ...SyncOption) *SyncPipeline {
	p := &SyncPipeline{
		store:       store,
		source:      source,
		locks:       newKeyedMutex(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnInsuredCreated implements claims.InsuredObserver
func (p *SyncPipeline) OnInsuredCreated(ctx context.Context, party *claims.InsuredParty) error {
	return p.record("create", p.SyncInsured(ctx, party.ID))
}

// OnInsuredUpdated implements claims.InsuredObserver
func (p *SyncPipeline) OnInsuredUpdated(ctx context.Context, party *claims.InsuredParty) error {
	return p.record("update", p.SyncInsured(ctx, party.ID))
}

// OnInsuredDeleted implements claims.InsuredObserver
func (p *SyncPipeline) OnInsuredDeleted(ctx context.Context, id int64) error {
	return p.record("delete", p.SyncInsured(ctx, id))
}

// SyncInsured brings the graph node of one insured party in line with the
// relational store: upsert when the record exists, delete when it does not.
func (p *SyncPipeline) SyncInsured(ctx context.Context, id int64) error {
	unlock := p.locks.Lock(id)
	defer unlock()

	party, err := p.source.GetInsured(ctx, id)
	switch {
	case errors.Is(err, claims.ErrNotFound):
		if err := p.store.DeleteInsured(ctx, id); err != nil {
			return fmt.Errorf("delete graph node for insured %d: %w", id, err)
		}
		logger.WithContext(ctx).Debug("graph node removed", zap.Int64("insured_id", id))
	case err != nil:
		return fmt.Errorf("load insured %d: %w", id, err)
	default:
		if err := p.store.UpsertInsured(ctx, toNode(party)); err != nil {
			return fmt.Errorf("upsert graph node for insured %d: %w", id, err)
		}
		logger.WithContext(ctx).Debug("graph node upserted", zap.Int64("insured_id", id))
	}

	p.invalidate(ctx, id)
	return nil
}

// Resync mirrors every insured party into the graph, then prunes attribute
// nodes nothing links to. Nodes for other data are left alone. It is safe to
// run alongside live traffic.
func (p *SyncPipeline) Resync(ctx context.Context) (*ResyncReport, error) {
	start := time.Now()
	report := &ResyncReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	var lastID int64
	for {
		page, err := p.source.ListInsuredAfter(gctx, lastID, resyncPageSize)
		if err != nil {
			_ = g.Wait()
			return report, fmt.Errorf("list insured parties after id %d: %w", lastID, err)
		}

		for _, party := range page {
			id := party.ID
			mu.Lock()
			report.Total++
			mu.Unlock()

			g.Go(func() error {
				err := p.SyncInsured(gctx, id)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Failed++
					report.FailedIDs = append(report.FailedIDs, id)
					syncOperationsTotal.WithLabelValues("resync", "failed").Inc()
					logger.WithContext(ctx).Warn("resync of insured party failed", zap.Int64("insured_id", id), zap.Error(err))
					return nil
				}
				report.Synced++
				syncOperationsTotal.WithLabelValues("resync", "ok").Inc()
				return nil
			})
		}

		if len(page) < resyncPageSize {
			break
		}
		lastID = page[len(page)-1].ID
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	pruned, err := p.store.PruneOrphanAttributes(ctx)
	if err != nil {
		logger.WithContext(ctx).Warn("pruning orphan attribute nodes failed", zap.Error(err))
	}
	report.Pruned = pruned
	report.Duration = time.Since(start)
	resyncLastFailed.Set(float64(report.Failed))

	logger.WithContext(ctx).Info("graph resync finished",
		zap.Int("total", report.Total),
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed),
		zap.Int("pruned", report.Pruned),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (p *SyncPipeline) record(op string, err error) error {
	if err != nil {
		syncOperationsTotal.WithLabelValues(op, "failed").Inc()
		return err
	}
	syncOperationsTotal.WithLabelValues(op, "ok").Inc()
	return nil
}

func (p *SyncPipeline) invalidate(ctx context.Context, id int64) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Invalidate(ctx, id); err != nil {
		logger.WithContext(ctx).Debug("live score invalidation failed", zap.Int64("insured_id", id), zap.Error(err))
	}
}

func toNode(party *claims.InsuredParty) graph.InsuredNode {
	return graph.InsuredNode{
		ID:           party.ID,
		Name:         party.FullName,
		NationalCode: party.NationalCode,
		Phone:        party.PhoneNumber,
		Address:      party.Address,
	}
}
