package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS alert_records (
		id                TEXT PRIMARY KEY,
		resource          TEXT NOT NULL,
		dimension         TEXT NOT NULL,
		state             TEXT NOT NULL CHECK(state IN ('open', 'escalated', 'closed')),
		risk_level        TEXT NOT NULL,
		percentage        REAL NOT NULL DEFAULT 0.0,
		first_observed_at DATETIME NOT NULL,
		last_notified_at  DATETIME NOT NULL,
		closed_at         DATETIME,
		acknowledged      INTEGER NOT NULL DEFAULT 0,
		created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_alert_open_key
		ON alert_records(resource, dimension) WHERE state != 'closed';
	CREATE INDEX IF NOT EXISTS idx_alert_state ON alert_records(state);
	CREATE INDEX IF NOT EXISTS idx_alert_key ON alert_records(resource, dimension);

	CREATE TABLE IF NOT EXISTS snapshots (
		id                 TEXT PRIMARY KEY,
		taken_at           DATETIME NOT NULL,
		worst_risk         TEXT NOT NULL,
		estimated_cost_usd REAL NOT NULL DEFAULT 0.0,
		payload            TEXT NOT NULL,
		created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
