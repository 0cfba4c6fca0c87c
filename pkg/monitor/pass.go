package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quotawatch/quotawatch/pkg/catalogue"
	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/sampler"
	"github.com/quotawatch/quotawatch/pkg/storage"
)

// ErrRetrievalTimeout indicates the upstream usage retrieval did not answer
// within the configured deadline. The whole pass is aborted and no snapshot
// is published; the prior snapshot remains the latest valid one.
var ErrRetrievalTimeout = errors.New("usage retrieval timed out")

// PassObserver receives pass-level telemetry. Implementations must tolerate
// concurrent calls.
type PassObserver interface {
	PassCompleted(duration time.Duration, result string)
	TransitionRecorded(kind TransitionKind)
	StatusObserved(status model.NormalizedStatus)
	WorstRiskChanged(level model.RiskLevel)
}

// Runner executes evaluation passes: fetch samples, normalize, classify,
// step the alert state machine per key, rank recommendations and publish a
// snapshot.
type Runner struct {
	catalogue     *catalogue.Catalogue
	sampler       sampler.Sampler
	engine        *Engine
	store         storage.Store
	thresholds    Thresholds
	sampleTimeout time.Duration
	observer      PassObserver
	logger        *slog.Logger
}

// NewRunner creates a pass runner. The thresholds must already be validated.
func NewRunner(cat *catalogue.Catalogue, smp sampler.Sampler, engine *Engine, store storage.Store, thresholds Thresholds, sampleTimeout time.Duration, logger *slog.Logger) *Runner {
	if sampleTimeout <= 0 {
		sampleTimeout = time.Minute
	}
	return &Runner{
		catalogue:     cat,
		sampler:       smp,
		engine:        engine,
		store:         store,
		thresholds:    thresholds,
		sampleTimeout: sampleTimeout,
		logger:        logger,
	}
}

// SetObserver attaches pass telemetry. Must be called before Run.
func (r *Runner) SetObserver(obs PassObserver) {
	r.observer = obs
}

// Run executes one evaluation pass and returns the published snapshot.
// Per-sample errors are logged and skipped; per-key storage failures are
// collected and reported as a joined error while the rest of the pass
// proceeds best-effort.
func (r *Runner) Run(ctx context.Context) (*model.UsageSnapshot, error) {
	started := time.Now()
	now := started.UTC()

	samples, err := r.fetchSamples(ctx)
	if err != nil {
		r.observePass(started, "failed")
		return nil, err
	}

	totals, costTotal := r.groupSamples(samples, now)

	// Billed cost flows through the same state machine as free-tier usage,
	// as an account-level dimension.
	if _, err := r.catalogue.Dimension(catalogue.CostResource, catalogue.CostDimension); err == nil {
		totals[catalogue.Key(catalogue.CostResource, catalogue.CostDimension)] = model.UsageSample{
			Resource:   catalogue.CostResource,
			Dimension:  catalogue.CostDimension,
			Value:      costTotal,
			Unit:       "USD",
			ObservedAt: now,
		}
	}

	statuses, evalErrs := r.evaluateAll(ctx, totals, now)

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Resource != statuses[j].Resource {
			return statuses[i].Resource < statuses[j].Resource
		}
		return statuses[i].Dimension < statuses[j].Dimension
	})

	active, err := r.store.ListAlerts(ctx, "")
	if err != nil {
		evalErrs = append(evalErrs, fmt.Errorf("list alerts: %w", err))
		active = nil
	}

	recs := Recommend(statuses, now)
	snap := Aggregate(statuses, active, recs, costTotal, now)

	if err := r.store.SaveSnapshot(ctx, snap); err != nil {
		evalErrs = append(evalErrs, fmt.Errorf("save snapshot: %w", err))
	}

	if r.observer != nil {
		r.observer.WorstRiskChanged(snap.WorstRisk)
	}

	if len(evalErrs) > 0 {
		r.observePass(started, "partial")
		return snap, fmt.Errorf("evaluation pass finished with %d failures: %w",
			len(evalErrs), errors.Join(evalErrs...))
	}

	r.observePass(started, "ok")
	r.logger.Info("evaluation pass complete",
		"dimensions", len(statuses),
		"worst_risk", snap.WorstRisk,
		"active_alerts", len(snap.Alerts),
		"estimated_cost_usd", snap.EstimatedCostUSD,
		"duration", time.Since(started),
	)
	return snap, nil
}

func (r *Runner) fetchSamples(ctx context.Context) ([]model.UsageSample, error) {
	sctx, cancel := context.WithTimeout(ctx, r.sampleTimeout)
	defer cancel()

	samples, err := r.sampler.Fetch(sctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrRetrievalTimeout, r.sampleTimeout)
		}
		return nil, fmt.Errorf("fetch usage samples: %w", err)
	}
	return samples, nil
}

// groupSamples sums samples per (resource, dimension) key and accumulates
// the estimated billed cost. Samples for untracked keys or with malformed
// values are dropped and logged; the pass continues for everything else.
func (r *Runner) groupSamples(samples []model.UsageSample, now time.Time) (map[string]model.UsageSample, float64) {
	totals := make(map[string]model.UsageSample)
	var costTotal float64

	for _, s := range samples {
		costTotal += s.CostUSD

		if _, err := r.catalogue.Dimension(s.Resource, s.Dimension); err != nil {
			r.logger.Warn("dropping sample for untracked key",
				"resource", s.Resource, "dimension", s.Dimension, "error", err)
			continue
		}
		if s.Value < 0 {
			r.logger.Warn("dropping malformed sample",
				"resource", s.Resource, "dimension", s.Dimension, "value", s.Value)
			continue
		}

		key := catalogue.Key(s.Resource, s.Dimension)
		total, ok := totals[key]
		if !ok {
			total = model.UsageSample{
				Resource:   s.Resource,
				Dimension:  s.Dimension,
				Unit:       s.Unit,
				ObservedAt: now,
			}
		}
		total.Value += s.Value
		total.CostUSD += s.CostUSD
		if s.ObservedAt.After(total.ObservedAt) {
			total.ObservedAt = s.ObservedAt
		}
		totals[key] = total
	}

	return totals, costTotal
}

// evaluateAll normalizes, classifies and steps the alert state machine for
// every tracked (resource, dimension) key. Keys are independent and run in
// parallel; the engine serializes the read-modify-write per key. A tracked
// dimension with no sample evaluates as value 0, Safe.
func (r *Runner) evaluateAll(ctx context.Context, totals map[string]model.UsageSample, now time.Time) ([]model.NormalizedStatus, []error) {
	var (
		mu       sync.Mutex
		statuses []model.NormalizedStatus
		errs     []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, res := range r.catalogue.Resources() {
		for _, dim := range res.Dimensions {
			res, dim := res, dim
			g.Go(func() error {
				sample, ok := totals[catalogue.Key(res.ID, dim.ID)]
				if !ok {
					sample = model.UsageSample{
						Resource:   res.ID,
						Dimension:  dim.ID,
						Unit:       dim.Unit,
						ObservedAt: now,
					}
				}

				status, err := Normalize(dim, sample, r.thresholds)
				if err != nil {
					r.logger.Warn("dropping unnormalizable sample",
						"resource", res.ID, "dimension", dim.ID, "error", err)
					return nil
				}
				status.Forecast = Forecast(status, now)
				if r.observer != nil {
					r.observer.StatusObserved(status)
				}

				tr, err := r.engine.Evaluate(gctx, status, now)
				if err == nil && r.observer != nil {
					r.observer.TransitionRecorded(tr.Kind)
				}

				mu.Lock()
				statuses = append(statuses, status)
				if err != nil {
					errs = append(errs, err)
				}
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	return statuses, errs
}

func (r *Runner) observePass(started time.Time, result string) {
	if r.observer != nil {
		r.observer.PassCompleted(time.Since(started), result)
	}
}
