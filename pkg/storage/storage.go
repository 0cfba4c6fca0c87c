package storage

import (
	"context"
	"errors"
	"time"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// ErrConflict indicates an alert record was modified concurrently and the
// compare-and-swap precondition no longer holds.
var ErrConflict = errors.New("alert record modified concurrently")

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence layer for alert records and snapshots.
type Store interface {
	// GetOpenAlert returns the open or escalated record for a key, or
	// (nil, nil) when no such record exists.
	GetOpenAlert(ctx context.Context, resource, dimension string) (*model.AlertRecord, error)

	// CreateAlert persists a new alert record. Returns ErrConflict if a
	// non-closed record already exists for the same key.
	CreateAlert(ctx context.Context, rec *model.AlertRecord) error

	// UpdateAlert replaces a record only if its stored last_notified_at
	// still equals expectedNotifiedAt; otherwise returns ErrConflict.
	UpdateAlert(ctx context.Context, rec *model.AlertRecord, expectedNotifiedAt time.Time) error

	// ListAlerts returns records in the given state, or all when state is
	// empty, newest first.
	ListAlerts(ctx context.Context, state model.AlertState) ([]model.AlertRecord, error)

	// AcknowledgeAlert marks a record as acknowledged by ID.
	AcknowledgeAlert(ctx context.Context, id string) error

	// SummarizeAlerts rolls up the records raised at or after since: counts
	// and affected resources per risk level plus a per-day trend.
	SummarizeAlerts(ctx context.Context, since time.Time) (*model.AlertSummary, error)

	// SaveSnapshot appends a snapshot to history.
	SaveSnapshot(ctx context.Context, snap *model.UsageSnapshot) error

	// LatestSnapshot returns the most recent snapshot, or ErrNotFound.
	LatestSnapshot(ctx context.Context) (*model.UsageSnapshot, error)

	// ListSnapshots returns up to limit snapshots, newest first.
	ListSnapshots(ctx context.Context, limit int) ([]model.UsageSnapshot, error)

	// Close releases resources.
	Close() error
}
