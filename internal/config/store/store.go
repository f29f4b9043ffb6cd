// Package store persists rcmate's local configuration: backend connection
// profiles and cached UI state. It is a single-writer SQLite database under
// the rcmate home directory.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcmate/rcmate/internal/config"
	storecrypto "github.com/rcmate/rcmate/internal/config/store/crypto"
)

const (
	defaultBusyTimeout        = 5 * time.Second
	defaultConnectionLifetime = 0 // unlimited
)

// Options describes parameters for opening a configuration store.
type Options struct {
	DBPath   string // Optional override for config.db path (primarily for tests)
	ReadOnly bool   // Open database in read-only mode
}

// Store provides access to the configuration database.
type Store struct {
	db            *sql.DB
	dbPath        string
	readOnly      bool
	encryptionKey []byte // AES-256 key for sealing stored API tokens
}

// NotFoundError indicates a requested record does not exist.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// IsNotFound returns true when err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// Open initialises the configuration store.
func Open(opts Options) (*Store, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		paths, err := config.EnsureDirs()
		if err != nil {
			return nil, fmt.Errorf("config: ensure home directories: %w", err)
		}
		dbPath = paths.ConfigDB
	}

	dsn := dbPath
	if opts.ReadOnly {
		dsn = fmt.Sprintf("file:%s?mode=ro", dbPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("config: open sqlite store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(defaultConnectionLifetime)
	db.SetConnMaxIdleTime(defaultConnectionLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := applyPragmas(ctx, db, opts.ReadOnly); err != nil {
		db.Close()
		return nil, err
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if !opts.ReadOnly {
		if err := seedDefaults(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	// Load or create the key used to seal API tokens.
	//
	// Safety invariant: a new key is only created when the DB contains no
	// enc:v1: values. If the key file is missing but encrypted rows already
	// exist, Open fails fast so old tokens don't become undecryptable.
	keyPath := storecrypto.KeyPath(dbPath)
	var encKey []byte
	if !opts.ReadOnly {
		encKey, err = storecrypto.LoadKey(keyPath)
		if err != nil {
			db.Close()
			return nil, err
		}
		if encKey == nil {
			hasEnc, checkErr := hasEncryptedTokens(ctx, db)
			if checkErr != nil {
				db.Close()
				return nil, checkErr
			}
			if hasEnc {
				db.Close()
				return nil, fmt.Errorf("config: encryption key %s is missing but the database already contains encrypted tokens; restore the original key file or clear the stored connections", keyPath)
			}
			encKey, err = storecrypto.CreateKey(keyPath)
			if err != nil {
				db.Close()
				return nil, err
			}
		}
	} else {
		// Read-only mode: only load an existing key, never create one.
		var keyErr error
		encKey, keyErr = storecrypto.LoadKey(keyPath)
		if keyErr != nil {
			log.Printf("[Config] WARNING: failed to load encryption key (read-only): %v; stored tokens will be unreadable", keyErr)
		}
	}

	return &Store{
		db:            db,
		dbPath:        dbPath,
		readOnly:      opts.ReadOnly,
		encryptionKey: encKey,
	}, nil
}

// Close finalises the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying sql.DB handle for internal usage.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the filesystem path of the backing database.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("config: rollback failed after %v: %w", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

func hasEncryptedTokens(ctx context.Context, db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM connections WHERE api_token LIKE ?
	`, storecrypto.EncPrefix+"%").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("config: check encrypted tokens: %w", err)
	}
	return count > 0, nil
}
