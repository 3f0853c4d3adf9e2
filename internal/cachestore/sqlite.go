package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	purpose TEXT NOT NULL,
	data BLOB NOT NULL,
	stored_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_purpose ON cache_entries(purpose);
`

// SQLiteBackend stores entries as rows in a single table.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the cache database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

// Path returns the database file location.
func (b *SQLiteBackend) Path() string { return b.path }

func (b *SQLiteBackend) Has(ctx context.Context, key EntryKey) (bool, error) {
	var one int
	err := retryOnBusy(ctx, func() error {
		return b.db.QueryRowContext(ctx, `SELECT 1 FROM cache_entries WHERE key = ?`, key.Hash).Scan(&one)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("query entry: %w", err)
	}
}

func (b *SQLiteBackend) Get(ctx context.Context, key EntryKey) ([]byte, bool, error) {
	var data []byte
	err := retryOnBusy(ctx, func() error {
		return b.db.QueryRowContext(ctx, `SELECT data FROM cache_entries WHERE key = ?`, key.Hash).Scan(&data)
	})
	switch {
	case err == nil:
		return data, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("read entry: %w", err)
	}
}

func (b *SQLiteBackend) PutIfAbsent(ctx context.Context, key EntryKey, data []byte) (bool, error) {
	if data == nil {
		data = []byte{}
	}
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = b.db.ExecContext(ctx,
			`INSERT INTO cache_entries (key, purpose, data, stored_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(key) DO NOTHING`,
			key.Hash, key.Purpose.Label(), data, time.Now().UTC().Format(time.RFC3339),
		)
		return execErr
	})
	if err != nil {
		return false, fmt.Errorf("insert entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert entry rows: %w", err)
	}
	return affected == 1, nil
}

func (b *SQLiteBackend) Clear(ctx context.Context) (int, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = b.db.ExecContext(ctx, `DELETE FROM cache_entries`)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete entries rows: %w", err)
	}
	return int(affected), nil
}

func (b *SQLiteBackend) Count(ctx context.Context) (map[Purpose]int, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT purpose, COUNT(*) FROM cache_entries GROUP BY purpose`)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[Purpose]int, len(Purposes()))
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if p, ok := PurposeFromLabel(label); ok {
			counts[p] = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
