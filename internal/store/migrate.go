package store

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is a single versioned schema change. Statements are embedded
// rather than shipped as files so the mobile and desktop builds carry the
// schema with the binary.
type migration struct {
	version     int
	description string
	statements  string
}

var migrations = []migration{
	{
		version:     1,
		description: "meals and sync queue",
		statements: `
		CREATE TABLE IF NOT EXISTS meals (
			id TEXT PRIMARY KEY,
			owner_uid TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			eaten_at INTEGER NOT NULL,
			hidden INTEGER NOT NULL DEFAULT 0,
			tags TEXT NOT NULL DEFAULT '[]',
			updated_at_ms INTEGER NOT NULL,
			pending INTEGER NOT NULL DEFAULT 0,
			sync_state TEXT NOT NULL DEFAULT 'local-only'
		);
		CREATE INDEX IF NOT EXISTS idx_meals_owner ON meals(owner_uid);

		CREATE TABLE IF NOT EXISTS sync_queue (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			entity_id TEXT NOT NULL,
			operation TEXT NOT NULL CHECK(operation IN ('create','update','delete')),
			payload TEXT,
			enqueued_at_ms INTEGER NOT NULL,
			target_uid TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_sync_queue_entity ON sync_queue(entity_id);
		`,
	},
}

// Migrate applies all pending schema migrations.
func Migrate(db *sql.DB) error {
	if err := initMigrationTable(db); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	current, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}
	}

	return nil
}

func initMigrationTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at INTEGER NOT NULL,
		description TEXT NOT NULL
	);`
	_, err := db.Exec(query)
	return err
}

func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.statements); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	query := `INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)`
	if _, err := tx.Exec(query, m.version, time.Now().Unix(), m.description); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
