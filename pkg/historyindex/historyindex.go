// Package historyindex is a local SQLite cache of previously generated
// plans, backing the additive "apimctl history" CLI verb (not part of
// spec.md's core plan/apply/extract/init/force-unlock surface, but a
// natural companion: operators frequently want to know what the last
// few plans looked like without re-diffing against the remote).
// Grounded on pkg/store/receipt_store_sqlite.go's migrate-then-query
// shape and pkg/store/ledger/file_ledger.go's mutex-guarded single-file
// store idiom, generalized here from an in-memory map to a SQL table
// since concurrent readers/writers across separate CLI invocations need
// real file locking, which SQLite (not a JSON file) provides.
package historyindex

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Mindburn-Labs/apimctl/pkg/planner"
)

// Entry is one recorded plan run.
type Entry struct {
	ID          int64
	GeneratedAt time.Time
	SourceDir   string
	PlanPath    string
	Create      int
	Update      int
	Delete      int
	Noop        int
}

// Index is a SQLite-backed history of plan runs.
type Index struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and runs
// its migration.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("historyindex: open %s: %w", path, err)
	}
	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

// New wraps an already-opened *sql.DB, running its migration.
func New(db *sql.DB) (*Index, error) {
	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS plan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		generated_at DATETIME NOT NULL,
		source_dir TEXT NOT NULL,
		plan_path TEXT NOT NULL,
		create_count INTEGER NOT NULL DEFAULT 0,
		update_count INTEGER NOT NULL DEFAULT 0,
		delete_count INTEGER NOT NULL DEFAULT 0,
		noop_count INTEGER NOT NULL DEFAULT 0
	);`
	_, err := idx.db.ExecContext(context.Background(), query)
	return err
}

// Close releases the underlying database handle.
func (idx *Index) Close() error { return idx.db.Close() }

// Record inserts one entry for a plan that was just saved to planPath.
func (idx *Index) Record(ctx context.Context, plan *planner.Plan, planPath string) (int64, error) {
	query := `
	INSERT INTO plan_history (
		generated_at, source_dir, plan_path, create_count, update_count, delete_count, noop_count
	) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := idx.db.ExecContext(ctx, query,
		plan.GeneratedAt.UTC().Format(time.RFC3339Nano), plan.SourceDir, planPath,
		plan.Summary.Create, plan.Summary.Update, plan.Summary.Delete, plan.Summary.Noop,
	)
	if err != nil {
		return 0, fmt.Errorf("historyindex: insert: %w", err)
	}
	return res.LastInsertId()
}

// List returns the most recent entries, newest first, capped at limit.
func (idx *Index) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `
	SELECT id, generated_at, source_dir, plan_path, create_count, update_count, delete_count, noop_count
	FROM plan_history
	ORDER BY id DESC
	LIMIT ?`
	rows, err := idx.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("historyindex: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns a single entry by id.
func (idx *Index) Get(ctx context.Context, id int64) (*Entry, error) {
	query := `
	SELECT id, generated_at, source_dir, plan_path, create_count, update_count, delete_count, noop_count
	FROM plan_history
	WHERE id = ?`
	row := idx.db.QueryRowContext(ctx, query, id)
	e, err := scanRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("historyindex: no entry with id %d", id)
		}
		return nil, err
	}
	return &e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	return scanRow(rows)
}

func scanRow(s rowScanner) (Entry, error) {
	var (
		e         Entry
		timestamp string
	)
	if err := s.Scan(&e.ID, &timestamp, &e.SourceDir, &e.PlanPath, &e.Create, &e.Update, &e.Delete, &e.Noop); err != nil {
		return Entry{}, err
	}
	e.GeneratedAt = parseTime(timestamp)
	return e, nil
}

func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
