package persist

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/mdpad/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore keeps the record in a single kv table.
type SQLiteStore struct {
	conn *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("persist: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persist: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Load implements Store. The record counts as present once the content key
// exists; missing preference keys fall back to defaults. Malformed
// preference values never hide the text.
func (s *SQLiteStore) Load(ctx context.Context) (Record, bool, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE key IN (?, ?, ?)`,
		KeyContent, KeyTheme, KeyFontSize)
	if err != nil {
		return Record{}, false, fmt.Errorf("persist: load: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 3)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Record{}, false, fmt.Errorf("persist: scan: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return Record{}, false, fmt.Errorf("persist: load: %w", err)
	}

	text, ok := values[KeyContent]
	if !ok {
		return Record{}, false, nil
	}

	rec := Record{Text: text, Preferences: models.DefaultPreferences()}
	if theme, ok := values[KeyTheme]; ok && theme != "" {
		rec.Preferences.Theme = theme
	}
	if raw, ok := values[KeyFontSize]; ok {
		// An unparseable size loads as zero, which Preferences.Validate
		// rejects; the text is still returned.
		n, err := strconv.Atoi(raw)
		if err != nil {
			n = 0
		}
		rec.Preferences.FontSize = n
	}
	return rec, true, nil
}

// Save implements Store. All keys are written in one transaction so a
// failed save leaves the previous record intact.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("persist: prepare: %w", err)
	}
	defer stmt.Close()

	pairs := [][2]string{
		{KeyContent, rec.Text},
		{KeyTheme, rec.Preferences.Theme},
		{KeyFontSize, strconv.Itoa(rec.Preferences.FontSize)},
	}
	for _, kv := range pairs {
		if _, err := stmt.ExecContext(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("persist: write %s: %w", kv[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist: commit: %w", err)
	}
	return nil
}

// Clear removes every key, so the next Load reports no record.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("persist: clear: %w", err)
	}
	return nil
}
