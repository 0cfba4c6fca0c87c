package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quotawatch/quotawatch/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Store interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

const alertColumns = `id, resource, dimension, state, risk_level, percentage,
	first_observed_at, last_notified_at, closed_at, acknowledged`

func (s *SQLite) GetOpenAlert(ctx context.Context, resource, dimension string) (*model.AlertRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alert_records
		 WHERE resource = ? AND dimension = ? AND state != 'closed'`,
		resource, dimension,
	)
	rec, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open alert: %w", err)
	}
	return rec, nil
}

func (s *SQLite) CreateAlert(ctx context.Context, rec *model.AlertRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_records (id, resource, dimension, state, risk_level, percentage,
		   first_observed_at, last_notified_at, closed_at, acknowledged)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Resource, rec.Dimension, rec.State, rec.RiskLevel, rec.Percentage,
		rec.FirstObservedAt, rec.LastNotifiedAt, nullableTime(rec.ClosedAt), rec.Acknowledged,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("create alert %s/%s: %w", rec.Resource, rec.Dimension, ErrConflict)
		}
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (s *SQLite) UpdateAlert(ctx context.Context, rec *model.AlertRecord, expectedNotifiedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alert_records
		 SET state = ?, risk_level = ?, percentage = ?, last_notified_at = ?, closed_at = ?
		 WHERE id = ? AND last_notified_at = ?`,
		rec.State, rec.RiskLevel, rec.Percentage, rec.LastNotifiedAt, nullableTime(rec.ClosedAt),
		rec.ID, expectedNotifiedAt,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update alert %s: %w", rec.ID, ErrConflict)
	}
	return nil
}

func (s *SQLite) ListAlerts(ctx context.Context, state model.AlertState) ([]model.AlertRecord, error) {
	query := `SELECT ` + alertColumns + ` FROM alert_records`
	var args []any
	if state != "" {
		query += " WHERE state = ?"
		args = append(args, state)
	}
	query += " ORDER BY first_observed_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var records []model.AlertRecord
	for rows.Next() {
		rec, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *SQLite) AcknowledgeAlert(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alert_records SET acknowledged = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	return nil
}

// SummarizeAlerts aggregates in Go rather than SQL so the rollup does not
// depend on how the driver encodes timestamps.
func (s *SQLite) SummarizeAlerts(ctx context.Context, since time.Time) (*model.AlertSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT risk_level, resource, first_observed_at FROM alert_records
		 WHERE first_observed_at >= ?`, since)
	if err != nil {
		return nil, fmt.Errorf("summarize alerts: %w", err)
	}
	defer rows.Close()

	summary := &model.AlertSummary{
		Since:       since,
		GeneratedAt: time.Now().UTC(),
		ByLevel:     make(map[model.RiskLevel]model.AlertLevelSummary),
	}
	seen := make(map[model.RiskLevel]map[string]bool)
	daily := make(map[string]int)

	for rows.Next() {
		var (
			level    model.RiskLevel
			resource string
			observed time.Time
		)
		if err := rows.Scan(&level, &resource, &observed); err != nil {
			return nil, fmt.Errorf("scan alert summary row: %w", err)
		}

		summary.TotalAlerts++
		ls := summary.ByLevel[level]
		ls.Count++
		if seen[level] == nil {
			seen[level] = make(map[string]bool)
		}
		if !seen[level][resource] {
			seen[level][resource] = true
			ls.Resources = append(ls.Resources, resource)
		}
		summary.ByLevel[level] = ls

		daily[observed.UTC().Format("2006-01-02")]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summarize alerts: %w", err)
	}

	for level, ls := range summary.ByLevel {
		sort.Strings(ls.Resources)
		summary.ByLevel[level] = ls
	}

	days := make([]string, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		summary.DailyTrend = append(summary.DailyTrend, model.DailyAlertCount{
			Date:  day,
			Count: daily[day],
		})
	}

	return summary, nil
}

func (s *SQLite) SaveSnapshot(ctx context.Context, snap *model.UsageSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, taken_at, worst_risk, estimated_cost_usd, payload)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.TakenAt, snap.WorstRisk, snap.EstimatedCostUSD, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *SQLite) LatestSnapshot(ctx context.Context) (*model.UsageSnapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots ORDER BY taken_at DESC LIMIT 1`,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("latest snapshot: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return unmarshalSnapshot(payload)
}

func (s *SQLite) ListSnapshots(ctx context.Context, limit int) ([]model.UsageSnapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM snapshots ORDER BY taken_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.UsageSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap, err := unmarshalSnapshot(payload)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*model.AlertRecord, error) {
	var rec model.AlertRecord
	var closedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.Resource, &rec.Dimension, &rec.State, &rec.RiskLevel,
		&rec.Percentage, &rec.FirstObservedAt, &rec.LastNotifiedAt, &closedAt, &rec.Acknowledged)
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		t := closedAt.Time
		rec.ClosedAt = &t
	}
	return &rec, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func unmarshalSnapshot(payload string) (*model.UsageSnapshot, error) {
	var snap model.UsageSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot payload: %w", err)
	}
	return &snap, nil
}
