package monitor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/catalogue"
	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/monitor"
	"github.com/quotawatch/quotawatch/pkg/sampler"
	"github.com/quotawatch/quotawatch/pkg/storage"
)

func testCatalogue() *catalogue.Catalogue {
	return catalogue.New([]model.TrackedResource{
		{
			ID:          "ec2",
			DisplayName: "Compute",
			Dimensions: []model.QuotaDimension{
				{ID: "compute-hours", Limit: 750, Unit: "hours", Category: model.CategoryCompute},
			},
		},
		{
			ID:          "s3",
			DisplayName: "Storage",
			Dimensions: []model.QuotaDimension{
				{ID: "storage-gb", Limit: 5, Unit: "GB", Category: model.CategoryStorage},
			},
		},
	})
}

func newTestRunner(t *testing.T, cat *catalogue.Catalogue, smp sampler.Sampler, store *storage.SQLite) *monitor.Runner {
	t.Helper()
	engine := monitor.NewEngine(store, nil, monitor.EngineOptions{}, discardLogger())
	return monitor.NewRunner(cat, smp, engine, store,
		monitor.DefaultThresholds(), time.Minute, discardLogger())
}

func TestRunner_Run_PublishesSnapshot(t *testing.T) {
	store := newTestStore(t)
	smp := sampler.Static{
		{Resource: "ec2", Dimension: "compute-hours", Value: 600, Unit: "hours"},
	}
	runner := newTestRunner(t, testCatalogue(), smp, store)

	snap, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	// Every tracked dimension appears, sorted by resource/dimension, and a
	// dimension with no sample evaluates as zero usage.
	require.Len(t, snap.Statuses, 2)
	assert.Equal(t, "ec2", snap.Statuses[0].Resource)
	assert.InDelta(t, 80.0, snap.Statuses[0].PercentOfQuota, 0.001)
	assert.Equal(t, model.RiskWarning, snap.Statuses[0].RiskLevel)
	assert.Equal(t, "s3", snap.Statuses[1].Resource)
	assert.Equal(t, 0.0, snap.Statuses[1].Value)
	assert.Equal(t, model.RiskSafe, snap.Statuses[1].RiskLevel)

	assert.Equal(t, model.RiskWarning, snap.WorstRisk)
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, model.AlertOpen, snap.Alerts[0].State)
	require.Len(t, snap.Recommendations, 1)
	assert.Equal(t, "ec2", snap.Recommendations[0].Resource)

	// The snapshot was persisted as the new latest.
	latest, err := store.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.ID, latest.ID)
}

func TestRunner_Run_AggregatesSamplesPerKey(t *testing.T) {
	store := newTestStore(t)
	smp := sampler.Static{
		{Resource: "s3", Dimension: "storage-gb", Value: 2, Unit: "GB"},
		{Resource: "s3", Dimension: "storage-gb", Value: 1.5, Unit: "GB"},
	}
	runner := newTestRunner(t, testCatalogue(), smp, store)

	snap, err := runner.Run(context.Background())
	require.NoError(t, err)

	var s3 model.NormalizedStatus
	for _, st := range snap.Statuses {
		if st.Resource == "s3" {
			s3 = st
		}
	}
	assert.InDelta(t, 3.5, s3.Value, 0.001)
	assert.InDelta(t, 70.0, s3.PercentOfQuota, 0.001)
	assert.Equal(t, model.RiskModerate, s3.RiskLevel)
}

func TestRunner_Run_UntrackedSamplesDropped(t *testing.T) {
	store := newTestStore(t)
	smp := sampler.Static{
		{Resource: "redshift", Dimension: "node-hours", Value: 100, CostUSD: 2.0},
		{Resource: "ec2", Dimension: "compute-hours", Value: 10, Unit: "hours"},
	}
	runner := newTestRunner(t, testCatalogue(), smp, store)

	snap, err := runner.Run(context.Background())
	require.NoError(t, err)

	for _, st := range snap.Statuses {
		assert.NotEqual(t, "redshift", st.Resource)
	}
	// Untracked usage still contributes to the billed-cost total.
	assert.InDelta(t, 2.0, snap.EstimatedCostUSD, 0.001)
}

func TestRunner_Run_CostAlerting(t *testing.T) {
	store := newTestStore(t)
	smp := sampler.Static{
		{Resource: "ec2", Dimension: "compute-hours", Value: 10, Unit: "hours", CostUSD: 1.5},
		{Resource: "s3", Dimension: "storage-gb", Value: 1, Unit: "GB", CostUSD: 1.0},
	}
	cat := testCatalogue().WithCostAlert(1.0)
	runner := newTestRunner(t, cat, smp, store)

	snap, err := runner.Run(context.Background())
	require.NoError(t, err)

	var cost *model.NormalizedStatus
	for i, st := range snap.Statuses {
		if st.Resource == catalogue.CostResource {
			cost = &snap.Statuses[i]
		}
	}
	require.NotNil(t, cost, "expected an estimated-cost status")
	assert.InDelta(t, 2.5, cost.Value, 0.001)
	assert.InDelta(t, 250.0, cost.PercentOfQuota, 0.001)
	assert.Equal(t, model.RiskCritical, cost.RiskLevel)
	assert.Equal(t, model.RiskCritical, snap.WorstRisk)
	assert.InDelta(t, 2.5, snap.EstimatedCostUSD, 0.001)
}

func TestRunner_Run_RetrievalTimeout(t *testing.T) {
	store := newTestStore(t)
	engine := monitor.NewEngine(store, nil, monitor.EngineOptions{}, discardLogger())
	runner := monitor.NewRunner(testCatalogue(), blockingSampler{}, engine, store,
		monitor.DefaultThresholds(), 20*time.Millisecond, discardLogger())

	snap, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, monitor.ErrRetrievalTimeout)
	assert.Nil(t, snap)

	// The aborted pass must not publish a snapshot.
	_, err = store.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunner_Run_NotifiesObserver(t *testing.T) {
	store := newTestStore(t)
	smp := sampler.Static{
		{Resource: "ec2", Dimension: "compute-hours", Value: 700, Unit: "hours"},
	}
	runner := newTestRunner(t, testCatalogue(), smp, store)

	obs := &recordingObserver{}
	runner.SetObserver(obs)

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"ok"}, obs.results)
	assert.Equal(t, 2, obs.statuses)
	assert.Contains(t, obs.transitions, monitor.TransitionOpened)
	assert.Equal(t, model.RiskCritical, obs.worst)
}

func TestRunner_Run_ForecastAttachedToStatuses(t *testing.T) {
	store := newTestStore(t)
	smp := sampler.Static{
		{Resource: "s3", Dimension: "storage-gb", Value: 6, Unit: "GB"},
	}
	runner := newTestRunner(t, testCatalogue(), smp, store)

	snap, err := runner.Run(context.Background())
	require.NoError(t, err)

	var s3, ec2 model.NormalizedStatus
	for _, st := range snap.Statuses {
		switch st.Resource {
		case "s3":
			s3 = st
		case "ec2":
			ec2 = st
		}
	}

	// Usage past the limit always projects a breach, already in progress.
	require.NotNil(t, s3.Forecast)
	assert.Equal(t, 0, s3.Forecast.DaysToBreach)
	assert.Greater(t, s3.Forecast.ProjectedPercent, 100.0)
	// A dimension without usage has nothing to project from.
	assert.Nil(t, ec2.Forecast)

	require.NotEmpty(t, snap.Recommendations)
	assert.Contains(t, snap.Recommendations[0].Action, "already exceeded")
}

func TestRunner_Run_FailedTransitionsNotCounted(t *testing.T) {
	store := newTestStore(t)
	smp := sampler.Static{
		{Resource: "ec2", Dimension: "compute-hours", Value: 700, Unit: "hours"},
	}
	engine := monitor.NewEngine(faultyStore{store}, nil, monitor.EngineOptions{}, discardLogger())
	runner := monitor.NewRunner(testCatalogue(), smp, engine, store,
		monitor.DefaultThresholds(), time.Minute, discardLogger())

	obs := &recordingObserver{}
	runner.SetObserver(obs)

	snap, err := runner.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, snap)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"partial"}, obs.results)
	assert.Equal(t, 2, obs.statuses)
	// A key whose evaluation failed produced no transition.
	assert.Empty(t, obs.transitions)
}

type blockingSampler struct{}

func (blockingSampler) Fetch(ctx context.Context) ([]model.UsageSample, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// faultyStore fails every alert read so engine evaluations error out while
// the surrounding pass keeps its own store access intact.
type faultyStore struct {
	storage.Store
}

func (faultyStore) GetOpenAlert(context.Context, string, string) (*model.AlertRecord, error) {
	return nil, errors.New("database is locked")
}

type recordingObserver struct {
	mu          sync.Mutex
	results     []string
	transitions []monitor.TransitionKind
	statuses    int
	worst       model.RiskLevel
}

func (r *recordingObserver) PassCompleted(_ time.Duration, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingObserver) TransitionRecorded(kind monitor.TransitionKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, kind)
}

func (r *recordingObserver) StatusObserved(model.NormalizedStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses++
}

func (r *recordingObserver) WorstRiskChanged(level model.RiskLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.worst = level
}
