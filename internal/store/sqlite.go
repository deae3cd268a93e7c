package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/fyrsmithlabs/planboard/internal/extraction"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_updates (
	id TEXT PRIMARY KEY,
	phase_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	task_name TEXT NOT NULL DEFAULT '',
	details TEXT NOT NULL DEFAULT '',
	colors TEXT,
	source TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	completed INTEGER,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_updates_phase ON task_updates(phase_id, created_at);
`

// SQLiteStore keeps records in a sqlite database.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	// Single connection; sqlite allows one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init store schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.PingContext(ctx)
}

// SaveTaskUpdate implements Store.
func (s *SQLiteStore) SaveTaskUpdate(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rec = withDefaults(rec)

	var colors sql.NullString
	if rec.Colors != nil {
		b, err := json.Marshal(rec.Colors)
		if err != nil {
			return fmt.Errorf("encode colors: %w", err)
		}
		colors = sql.NullString{String: string(b), Valid: true}
	}
	var completed sql.NullBool
	if rec.Completed != nil {
		completed = sql.NullBool{Bool: *rec.Completed, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_updates (id, phase_id, task_id, task_name, details, colors,
			source, status, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PhaseID, rec.TaskID, rec.TaskName, rec.Details, colors,
		rec.Source, rec.Status, completed, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert task update: %w", err)
	}
	return nil
}

// ClearPhase implements Store.
func (s *SQLiteStore) ClearPhase(ctx context.Context, phaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM task_updates WHERE phase_id = ?`, phaseID); err != nil {
		return fmt.Errorf("clear phase %s: %w", phaseID, err)
	}
	return nil
}

// ListTaskUpdates implements Store.
func (s *SQLiteStore) ListTaskUpdates(ctx context.Context, phaseID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	query := `SELECT id, phase_id, task_id, task_name, details, colors, source, status,
		completed, created_at FROM task_updates`
	var args []any
	if phaseID != "" {
		query += ` WHERE phase_id = ?`
		args = append(args, phaseID)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task updates: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			colors    sql.NullString
			completed sql.NullBool
			created   string
		)
		if err := rows.Scan(&rec.ID, &rec.PhaseID, &rec.TaskID, &rec.TaskName, &rec.Details,
			&colors, &rec.Source, &rec.Status, &completed, &created); err != nil {
			return nil, fmt.Errorf("scan task update: %w", err)
		}
		if colors.Valid {
			var c extraction.Colors
			if err := json.Unmarshal([]byte(colors.String), &c); err != nil {
				return nil, fmt.Errorf("decode colors for %s: %w", rec.ID, err)
			}
			rec.Colors = &c
		}
		if completed.Valid {
			v := completed.Bool
			rec.Completed = &v
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close implements Store. Closing twice is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func withDefaults(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec
}
