package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quotawatch/quotawatch/pkg/alerts"
	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/storage"
)

// TransitionKind identifies an alert state machine step.
type TransitionKind string

const (
	TransitionNone        TransitionKind = "none"
	TransitionOpened      TransitionKind = "opened"
	TransitionEscalated   TransitionKind = "escalated"
	TransitionDeescalated TransitionKind = "deescalated"
	TransitionRenotified  TransitionKind = "renotified"
	TransitionRefreshed   TransitionKind = "refreshed"
	TransitionClosed      TransitionKind = "closed"
)

// Transition is the outcome of evaluating one status against the current
// alert record. Record is the state to persist (nil when nothing changes);
// Alert is the notification to deliver (nil when none is due).
type Transition struct {
	Kind   TransitionKind
	Record *model.AlertRecord
	Alert  *alerts.Alert
}

// EngineOptions controls renotification cadence and close notifications.
type EngineOptions struct {
	// RenotifyInterval re-sends a notification for a sustained condition
	// once this much time has passed since the last one. Zero disables
	// renotification: at most one notification per state.
	RenotifyInterval time.Duration

	// NotifyOnClose emits a notification when a condition clears.
	NotifyOnClose bool
}

// step computes the alert transition for one key. It is a pure function of
// (current record, new status, now) and the options; persistence and
// notification delivery are the Engine's concern.
func step(current *model.AlertRecord, status model.NormalizedStatus, now time.Time, opts EngineOptions) Transition {
	if current == nil || current.State == model.AlertClosed {
		if !status.RiskLevel.Alertable() {
			return Transition{Kind: TransitionNone}
		}
		// First crossing into warning or above: open a fresh record.
		// Closed records are history and are never reopened.
		rec := &model.AlertRecord{
			ID:              uuid.New().String(),
			Resource:        status.Resource,
			Dimension:       status.Dimension,
			State:           model.AlertOpen,
			RiskLevel:       status.RiskLevel,
			Percentage:      status.PercentOfQuota,
			FirstObservedAt: now,
			LastNotifiedAt:  now,
		}
		return Transition{
			Kind:   TransitionOpened,
			Record: rec,
			Alert:  newAlert(TransitionOpened, model.RiskSafe, status, now),
		}
	}

	if !status.RiskLevel.Alertable() {
		rec := *current
		rec.State = model.AlertClosed
		rec.RiskLevel = status.RiskLevel
		rec.Percentage = status.PercentOfQuota
		closedAt := now
		rec.ClosedAt = &closedAt
		tr := Transition{Kind: TransitionClosed, Record: &rec}
		if opts.NotifyOnClose {
			tr.Alert = newAlert(TransitionClosed, current.RiskLevel, status, now)
		}
		return tr
	}

	switch {
	case status.RiskLevel.Rank() > current.RiskLevel.Rank():
		rec := *current
		rec.State = model.AlertEscalated
		rec.RiskLevel = status.RiskLevel
		rec.Percentage = status.PercentOfQuota
		rec.LastNotifiedAt = now
		return Transition{
			Kind:   TransitionEscalated,
			Record: &rec,
			Alert:  newAlert(TransitionEscalated, current.RiskLevel, status, now),
		}

	case status.RiskLevel.Rank() < current.RiskLevel.Rank():
		rec := *current
		rec.State = model.AlertOpen
		rec.RiskLevel = status.RiskLevel
		rec.Percentage = status.PercentOfQuota
		return Transition{Kind: TransitionDeescalated, Record: &rec}

	default:
		// Unchanged level. Repeated cycles must not flood notifications:
		// renotify only when the interval has elapsed, and never on replay
		// of the same evaluation timestamp.
		if opts.RenotifyInterval > 0 && now.Sub(current.LastNotifiedAt) >= opts.RenotifyInterval && now.After(current.LastNotifiedAt) {
			rec := *current
			rec.Percentage = status.PercentOfQuota
			rec.LastNotifiedAt = now
			return Transition{
				Kind:   TransitionRenotified,
				Record: &rec,
				Alert:  newAlert(TransitionRenotified, current.RiskLevel, status, now),
			}
		}
		rec := *current
		rec.Percentage = status.PercentOfQuota
		return Transition{Kind: TransitionRefreshed, Record: &rec}
	}
}

func newAlert(kind TransitionKind, oldLevel model.RiskLevel, status model.NormalizedStatus, now time.Time) *alerts.Alert {
	return &alerts.Alert{
		Event:      string(kind),
		Resource:   status.Resource,
		Dimension:  status.Dimension,
		OldLevel:   oldLevel,
		NewLevel:   status.RiskLevel,
		Percentage: status.PercentOfQuota,
		Value:      status.Value,
		Limit:      status.Limit,
		Unit:       status.Unit,
		Message: fmt.Sprintf("%s: %s/%s at %.1f%% of quota (%.1f/%.1f %s)",
			kind, status.Resource, status.Dimension, status.PercentOfQuota,
			status.Value, status.Limit, status.Unit),
		Timestamp: now,
	}
}

// Engine tracks alert lifecycle per (resource, dimension) key across
// evaluation cycles. Read-modify-write is serialized per key, state is
// persisted with a compare-and-swap on last_notified_at, and a notification
// is only sent after the resulting state was stored successfully.
type Engine struct {
	store     storage.Store
	notifiers []alerts.Notifier
	opts      EngineOptions
	logger    *slog.Logger

	locks sync.Map // key -> *sync.Mutex

	maxAttempts int
	backoff     time.Duration
}

// NewEngine creates an alert state engine.
func NewEngine(store storage.Store, notifiers []alerts.Notifier, opts EngineOptions, logger *slog.Logger) *Engine {
	return &Engine{
		store:       store,
		notifiers:   notifiers,
		opts:        opts,
		logger:      logger,
		maxAttempts: 3,
		backoff:     100 * time.Millisecond,
	}
}

// Evaluate runs one state machine step for a key. It is idempotent under
// retry: replaying the same status with the same timestamp never
// double-notifies. If the storage write fails after retries, the transition
// is reported as failed and prior alert state is left untouched.
func (e *Engine) Evaluate(ctx context.Context, status model.NormalizedStatus, now time.Time) (Transition, error) {
	key := status.Resource + "/" + status.Dimension
	mu := e.keyLock(key)
	mu.Lock()
	defer mu.Unlock()

	current, err := e.store.GetOpenAlert(ctx, status.Resource, status.Dimension)
	if err != nil {
		return Transition{Kind: TransitionNone}, fmt.Errorf("read alert state %s: %w", key, err)
	}

	tr := step(current, status, now, e.opts)
	if tr.Record == nil {
		return tr, nil
	}

	if err := e.persist(ctx, tr, current); err != nil {
		return Transition{Kind: TransitionNone}, fmt.Errorf("persist alert %s: %w", key, err)
	}

	if tr.Alert != nil {
		e.notify(ctx, *tr.Alert)
	}

	return tr, nil
}

func (e *Engine) keyLock(key string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (e *Engine) persist(ctx context.Context, tr Transition, current *model.AlertRecord) error {
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.backoff << (attempt - 1)):
			}
		}

		if current == nil {
			lastErr = e.store.CreateAlert(ctx, tr.Record)
		} else {
			lastErr = e.store.UpdateAlert(ctx, tr.Record, current.LastNotifiedAt)
		}
		if lastErr == nil {
			return nil
		}
		// A CAS conflict means a concurrent pass already applied a
		// transition for this key; retrying the same write cannot succeed.
		if errors.Is(lastErr, storage.ErrConflict) {
			return lastErr
		}
		e.logger.Warn("alert state write failed, retrying",
			"resource", tr.Record.Resource,
			"dimension", tr.Record.Dimension,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}
	return lastErr
}

func (e *Engine) notify(ctx context.Context, alert alerts.Alert) {
	for _, notifier := range e.notifiers {
		if err := notifier.Send(ctx, alert); err != nil {
			e.logger.Error("send alert failed",
				"notifier", notifier.Name(),
				"resource", alert.Resource,
				"dimension", alert.Dimension,
				"error", err,
			)
		}
	}
}
