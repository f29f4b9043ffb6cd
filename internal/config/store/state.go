package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// LoadState returns cached UI state for the named connection. Optional
// keys limit the selection to specific entries.
func (s *Store) LoadState(ctx context.Context, connectionName string, keys ...string) (map[string]string, error) {
	query := `SELECT key, value FROM ui_state WHERE connection_name = ?`
	args := []any{connectionName}

	if len(keys) > 0 {
		placeholders := strings.TrimRight(strings.Repeat("?,", len(keys)), ",")
		query += fmt.Sprintf(" AND key IN (%s)", placeholders)
		for _, key := range keys {
			args = append(args, key)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("config: load ui state: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("config: scan ui state row: %w", err)
		}
		result[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config: iterate ui state rows: %w", err)
	}

	return result, nil
}

// SaveState upserts the provided key/value pairs for the named connection.
func (s *Store) SaveState(ctx context.Context, connectionName string, values map[string]string) error {
	if s.readOnly {
		return fmt.Errorf("config: save ui state: store opened read-only")
	}
	if len(values) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
            INSERT INTO ui_state (connection_name, key, value, updated_at)
            VALUES (?, ?, ?, CURRENT_TIMESTAMP)
            ON CONFLICT(connection_name, key) DO UPDATE SET
                value = excluded.value,
                updated_at = CURRENT_TIMESTAMP
        `)
		if err != nil {
			return fmt.Errorf("config: prepare save ui state: %w", err)
		}
		defer stmt.Close()

		for key, value := range values {
			if _, err := stmt.ExecContext(ctx, connectionName, key, value); err != nil {
				return fmt.Errorf("config: exec save ui state %q: %w", key, err)
			}
		}
		return nil
	})
}

// DeleteState removes the given keys for the named connection. Missing
// keys are not an error.
func (s *Store) DeleteState(ctx context.Context, connectionName string, keys ...string) error {
	if s.readOnly {
		return fmt.Errorf("config: delete ui state: store opened read-only")
	}
	if len(keys) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
            DELETE FROM ui_state WHERE connection_name = ? AND key = ?
        `)
		if err != nil {
			return fmt.Errorf("config: prepare delete ui state: %w", err)
		}
		defer stmt.Close()

		for _, key := range keys {
			if _, err := stmt.ExecContext(ctx, connectionName, key); err != nil {
				return fmt.Errorf("config: exec delete ui state %q: %w", key, err)
			}
		}
		return nil
	})
}
