package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/contre95/plexmirror/src/features/downloading"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteHistory records finished runs and their items. It is an audit trail only;
// whether a file needs transferring is always decided from the filesystem.
type SqliteHistory struct {
	db     *sql.DB
	logger *slog.Logger
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID          string
	Status      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Targets     int
	Transferred int
	Existing    int
	Failed      int
}

// ItemRecord is one row of the run_items table.
type ItemRecord struct {
	TargetKind string
	TargetName string
	Kind       string
	Name       string
	Path       string
	Outcome    string
	Size       int64
	Error      string
}

// NewSqliteHistory opens or creates the history database at path.
func NewSqliteHistory(path string, logger *slog.Logger) (*SqliteHistory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteHistory{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			targets INTEGER NOT NULL DEFAULT 0,
			transferred INTEGER NOT NULL DEFAULT 0,
			existing INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS run_items (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			target_kind TEXT NOT NULL,
			target_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			name TEXT,
			path TEXT,
			outcome TEXT NOT NULL,
			size INTEGER,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_run_items_run ON run_items(run_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create history tables: %w", err)
	}
	return nil
}

// SaveRun stores report under runID in a single transaction.
func (h *SqliteHistory) SaveRun(ctx context.Context, runID, status string, report *downloading.RunReport) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, status, started_at, finished_at, targets, transferred, existing, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, status,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		len(report.Targets),
		report.Count(downloading.OutcomeTransferred),
		report.Count(downloading.OutcomeExisting),
		report.Count(downloading.OutcomeFailed),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_items (id, run_id, target_kind, target_name, kind, name, path, outcome, size, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer stmt.Close()

	items := 0
	for _, t := range report.Targets {
		if t.Err != nil {
			if _, err := stmt.ExecContext(ctx, uuid.New().String(), runID, string(t.Target.Kind), t.Target.Name,
				"target", t.Target.Name, "", string(downloading.OutcomeFailed), 0, t.Err.Error()); err != nil {
				return fmt.Errorf("failed to insert target: %w", err)
			}
			items++
		}
		for _, item := range t.Items {
			var errText sql.NullString
			if item.Err != nil {
				errText = sql.NullString{String: item.Err.Error(), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, uuid.New().String(), runID, string(t.Target.Kind), t.Target.Name,
				string(item.Kind), item.Name, item.Path, string(item.Outcome), item.Size, errText); err != nil {
				return fmt.Errorf("failed to insert item: %w", err)
			}
			items++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	h.logger.Debug("Run saved to history", "run", runID, "items", items)
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (h *SqliteHistory) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, status, started_at, finished_at, targets, transferred, existing, failed
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Status, &started, &finished, &r.Targets, &r.Transferred, &r.Existing, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FailedItems returns the failed targets and items of a run.
func (h *SqliteHistory) FailedItems(ctx context.Context, runID string) ([]ItemRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT target_kind, target_name, kind, COALESCE(name, ''), COALESCE(path, ''), outcome, COALESCE(size, 0), COALESCE(error, '')
		FROM run_items WHERE run_id = ? AND outcome = ? ORDER BY rowid`, runID, string(downloading.OutcomeFailed))
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var it ItemRecord
		if err := rows.Scan(&it.TargetKind, &it.TargetName, &it.Kind, &it.Name, &it.Path, &it.Outcome, &it.Size, &it.Error); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Close closes the database.
func (h *SqliteHistory) Close() error {
	return h.db.Close()
}
