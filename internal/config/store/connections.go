package store

import (
	"context"
	"database/sql"
	"fmt"

	storecrypto "github.com/rcmate/rcmate/internal/config/store/crypto"
)

// Connections returns all stored connection profiles. API tokens are
// decrypted before being returned.
func (s *Store) Connections(ctx context.Context) ([]Connection, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT name, base_url, api_token, engine_url, is_default, created_at, updated_at
        FROM connections
        ORDER BY name
    `)
	if err != nil {
		return nil, fmt.Errorf("config: list connections: %w", err)
	}
	defer rows.Close()

	var connections []Connection
	for rows.Next() {
		conn, err := s.scanConnection(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config: iterate connections: %w", err)
	}

	return connections, nil
}

// GetConnection returns the named connection profile.
func (s *Store) GetConnection(ctx context.Context, name string) (Connection, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT name, base_url, api_token, engine_url, is_default, created_at, updated_at
        FROM connections
        WHERE name = ?
    `, name)

	conn, err := s.scanConnection(row)
	if err == sql.ErrNoRows {
		return Connection{}, NotFoundError{Entity: "connection", Key: name}
	}
	return conn, err
}

// DefaultConnection returns the connection marked as default.
func (s *Store) DefaultConnection(ctx context.Context) (Connection, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT name, base_url, api_token, engine_url, is_default, created_at, updated_at
        FROM connections
        WHERE is_default = 1
        LIMIT 1
    `)

	conn, err := s.scanConnection(row)
	if err == sql.ErrNoRows {
		return Connection{}, NotFoundError{Entity: "default connection"}
	}
	return conn, err
}

// SaveConnection upserts a connection profile. The API token is sealed
// before it touches the database.
func (s *Store) SaveConnection(ctx context.Context, conn Connection) error {
	if s.readOnly {
		return fmt.Errorf("config: save connection: store opened read-only")
	}
	if conn.Name == "" {
		return fmt.Errorf("config: save connection: name is required")
	}

	token, err := storecrypto.Encrypt(s.encryptionKey, conn.APIToken)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO connections (name, base_url, api_token, engine_url, is_default, updated_at)
        VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(name) DO UPDATE SET
            base_url = excluded.base_url,
            api_token = excluded.api_token,
            engine_url = excluded.engine_url,
            is_default = excluded.is_default,
            updated_at = CURRENT_TIMESTAMP
    `, conn.Name, conn.BaseURL, token, conn.EngineURL, boolToInt(conn.IsDefault))
	if err != nil {
		return fmt.Errorf("config: save connection %q: %w", conn.Name, err)
	}
	return nil
}

// ActivateConnection marks the named connection as the default one.
func (s *Store) ActivateConnection(ctx context.Context, name string) error {
	if s.readOnly {
		return fmt.Errorf("config: activate connection: store opened read-only")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM connections WHERE name = ?)
		`, name).Scan(&exists); err != nil {
			return fmt.Errorf("config: check connection %q: %w", name, err)
		}
		if !exists {
			return NotFoundError{Entity: "connection", Key: name}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE connections
			SET is_default = 0,
			    updated_at = CURRENT_TIMESTAMP
			WHERE is_default = 1
		`); err != nil {
			return fmt.Errorf("config: clear default connection: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE connections
			SET is_default = 1,
			    updated_at = CURRENT_TIMESTAMP
			WHERE name = ?
		`, name); err != nil {
			return fmt.Errorf("config: update default connection: %w", err)
		}

		return nil
	})
}

// DeleteConnection removes a connection profile and its cached UI state.
func (s *Store) DeleteConnection(ctx context.Context, name string) error {
	if s.readOnly {
		return fmt.Errorf("config: delete connection: store opened read-only")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("config: delete connection %q: %w", name, err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return NotFoundError{Entity: "connection", Key: name}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanConnection(row rowScanner) (Connection, error) {
	var (
		conn      Connection
		token     string
		isDefault int
	)
	if err := row.Scan(&conn.Name, &conn.BaseURL, &token, &conn.EngineURL, &isDefault, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Connection{}, err
		}
		return Connection{}, fmt.Errorf("config: scan connection: %w", err)
	}

	plain, err := storecrypto.Decrypt(s.encryptionKey, token)
	if err != nil {
		return Connection{}, err
	}
	conn.APIToken = plain
	conn.IsDefault = isDefault == 1
	return conn, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
