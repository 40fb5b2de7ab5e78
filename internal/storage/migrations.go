package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					model TEXT NOT NULL,
					label TEXT NOT NULL,
					seed INTEGER NOT NULL,
					customers INTEGER NOT NULL,
					duration_ms INTEGER NOT NULL,
					params TEXT NOT NULL,
					filter TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS scored_records (
					run_id TEXT NOT NULL,
					customer_id TEXT NOT NULL,
					segment TEXT NOT NULL,
					sector TEXT NOT NULL,
					category TEXT NOT NULL,
					financial_performance INTEGER NOT NULL,
					digital_openness REAL NOT NULL,
					promotion_sensitivity REAL NOT NULL,
					innovation_openness REAL NOT NULL,
					avg_amount REAL NOT NULL,
					total_amount REAL NOT NULL,
					tx_count INTEGER NOT NULL,
					max_amount REAL NOT NULL,
					std_amount REAL NOT NULL,
					top_category TEXT NOT NULL,
					top_channel TEXT NOT NULL,
					weekday_ratio REAL NOT NULL,
					tx_category_count INTEGER NOT NULL,
					main_spending TEXT NOT NULL,
					past_product_interest INTEGER NOT NULL,
					product_score REAL NOT NULL,
					base_probability REAL NOT NULL,
					product_interest_probability REAL NOT NULL,
					twin_response TEXT NOT NULL,
					PRIMARY KEY (run_id, customer_id),
					FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_scored_records_response ON scored_records(run_id, twin_response)`,
				`CREATE INDEX idx_runs_created_at ON runs(created_at)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add run warnings",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS run_warnings (
					run_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					message TEXT NOT NULL,
					PRIMARY KEY (run_id, position),
					FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
				)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
