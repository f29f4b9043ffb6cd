package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rcmate/rcmate/internal/config"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS connections (
		name TEXT PRIMARY KEY,
		base_url TEXT NOT NULL DEFAULT '',
		api_token TEXT NOT NULL DEFAULT '',
		engine_url TEXT NOT NULL DEFAULT '',
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS ui_state (
		connection_name TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (connection_name, key),
		FOREIGN KEY (connection_name) REFERENCES connections(name) ON DELETE CASCADE
	)`,
}

func applyPragmas(ctx context.Context, db *sql.DB, readOnly bool) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", int(defaultBusyTimeout.Milliseconds())),
		"PRAGMA foreign_keys = ON",
	}

	if !readOnly {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA temp_store = MEMORY",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("config: apply pragma %q: %w", pragma, err)
		}
	}

	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("config: begin schema transaction: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("config: apply schema statement %q: %w", abbreviate(stmt), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("config: commit schema transaction: %w", err)
	}

	return nil
}

// seedDefaults guarantees a default connection row exists so first runs
// work against a local rclone rcd without any setup.
func seedDefaults(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO connections (name, base_url, is_default)
		VALUES (?, 'http://localhost:5572', 1)
		ON CONFLICT(name) DO NOTHING
	`, config.DefaultConnection)
	if err != nil {
		return fmt.Errorf("config: seed default connection: %w", err)
	}
	return nil
}

func abbreviate(stmt string) string {
	flat := strings.Join(strings.Fields(stmt), " ")
	if len(flat) > 60 {
		return flat[:60] + "..."
	}
	return flat
}
