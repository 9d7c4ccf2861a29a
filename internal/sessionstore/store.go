package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"rawpick/internal/cullstate"
)

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// RecentFolder is one entry of the recently opened list.
type RecentFolder struct {
	Path     string
	OpenedAt time.Time
}

// Decision is one journaled cull decision.
type Decision struct {
	SessionID  string
	Folder     string
	AssetPath  string
	Picked     bool
	Rating     int
	Label      cullstate.Label
	RecordedAt time.Time
}

// Open initializes or connects to the session database under stateDir and
// applies migrations.
func Open(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state dir: %w", err)
	}

	dbPath := filepath.Join(stateDir, "rawpick.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// TouchRecentFolder records that path was opened now, moving it to the head
// of the recent list.
func (s *Store) TouchRecentFolder(ctx context.Context, path string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recent_folders (path, opened_at) VALUES (?, ?)
         ON CONFLICT(path) DO UPDATE SET opened_at = excluded.opened_at`,
		path, now,
	)
	if err != nil {
		return fmt.Errorf("touch recent folder: %w", err)
	}
	return nil
}

// RecentFolders returns the most recently opened folders, newest first.
func (s *Store) RecentFolders(ctx context.Context, limit int) ([]RecentFolder, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, opened_at FROM recent_folders ORDER BY opened_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list recent folders: %w", err)
	}
	defer rows.Close()

	var out []RecentFolder
	for rows.Next() {
		var folder RecentFolder
		var opened string
		if err := rows.Scan(&folder.Path, &opened); err != nil {
			return nil, fmt.Errorf("scan recent folder: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, opened); parseErr == nil {
			folder.OpenedAt = ts
		}
		out = append(out, folder)
	}
	return out, rows.Err()
}

// RecordDecision appends one decision to the journal.
func (s *Store) RecordDecision(ctx context.Context, sessionID, folder, assetPath string, state cullstate.State) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	picked := 0
	if state.Picked {
		picked = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (session_id, folder, asset_path, picked, rating, label, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, folder, assetPath, picked, state.Rating, string(state.Label), now,
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// LatestDecisions returns the newest journaled decision per asset for a
// folder, keyed by asset path. Used to recover a session that never flushed.
func (s *Store) LatestDecisions(ctx context.Context, folder string) (map[string]Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, folder, asset_path, picked, rating, label, recorded_at
         FROM decisions WHERE folder = ? ORDER BY id ASC`, folder)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Decision)
	for rows.Next() {
		var d Decision
		var picked int
		var label, recorded string
		if err := rows.Scan(&d.SessionID, &d.Folder, &d.AssetPath, &picked, &d.Rating, &label, &recorded); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Picked = picked == 1
		d.Label = cullstate.Label(label)
		if ts, parseErr := time.Parse(time.RFC3339Nano, recorded); parseErr == nil {
			d.RecordedAt = ts
		}
		// Later rows win: the journal is append-only in mutation order.
		out[d.AssetPath] = d
	}
	return out, rows.Err()
}

// PruneDecisions drops journal rows older than cutoff, keeping the database
// from growing without bound.
func (s *Store) PruneDecisions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM decisions WHERE recorded_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune decisions: %w", err)
	}
	return res.RowsAffected()
}
