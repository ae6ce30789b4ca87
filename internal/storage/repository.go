package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bizdash/internal/log"
)

// SQLiteRepository persists kv entries and the scope ledger in one sqlite file.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// ScopeRecord is one row of the loaded-scope ledger.
type ScopeRecord struct {
	Key       string
	ItemCount int
	LoadedAt  time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Debug("SQLite store ready", "db_path", dbPath)

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements kvstore.Store
func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements kvstore.Store
func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	r.logger.Debug("KV entry written", log.FieldKey, key)
	return nil
}

// Remove implements kvstore.Store
func (r *SQLiteRepository) Remove(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// RecordScopeLoad remembers that a scope list was fetched, so a later watch can
// refresh the scopes the user actually looks at.
func (r *SQLiteRepository) RecordScopeLoad(ctx context.Context, scopeKey string, count int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO loaded_scopes (scope_key, item_count, loaded_at) VALUES (?, ?, ?)
		ON CONFLICT(scope_key) DO UPDATE SET item_count = excluded.item_count, loaded_at = excluded.loaded_at`,
		scopeKey, count, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record scope %s: %w", scopeKey, err)
	}
	return nil
}

// LoadedScopes returns the ledger, most recently loaded first.
func (r *SQLiteRepository) LoadedScopes(ctx context.Context) ([]ScopeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT scope_key, item_count, loaded_at FROM loaded_scopes ORDER BY loaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list loaded scopes: %w", err)
	}
	defer rows.Close()

	var out []ScopeRecord
	for rows.Next() {
		var rec ScopeRecord
		var loadedAt string
		if err := rows.Scan(&rec.Key, &rec.ItemCount, &loadedAt); err != nil {
			return nil, fmt.Errorf("scan loaded scope: %w", err)
		}
		rec.LoadedAt, _ = time.Parse(time.RFC3339Nano, loadedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loaded scopes: %w", err)
	}
	return out, nil
}
