package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitescrape/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "sitescrape.db"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("crawl run not found")

// HistoryDB provides SQLite-based storage for past crawl runs.
//
// Design decision: We keep every run in one database file under the XDG
// data directory rather than next to the output file, so that
// "sitescrape history" works from any directory.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		max_pages INTEGER NOT NULL,
		visited INTEGER NOT NULL,
		fetched INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		pending INTEGER NOT NULL,
		extraction_errors INTEGER NOT NULL,
		output_path TEXT,
		selectors TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON runs(start_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	-- Visited and still-pending URLs of a run, in frontier order
	CREATE TABLE IF NOT EXISTS pages (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (run_id, status, seq)
	);

	-- Extracted records, fields stored as JSON in selector order
	CREATE TABLE IF NOT EXISTS records (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		url TEXT NOT NULL,
		fields TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Page status values stored in the pages table.
const (
	pageVisited = "visited"
	pagePending = "pending"
)

// Run is one stored crawl run.
type Run struct {
	ID         int64
	StartURL   string
	StartedAt  time.Time
	FinishedAt time.Time
	MaxPages   int

	// Visited and Pending list URLs in frontier order.
	Visited []string
	Pending []string

	Fetched          int
	Failed           int
	ExtractionErrors int

	// OutputPath is where the records were written, if anywhere.
	OutputPath string

	Selectors model.SelectorSpec
	Records   []model.Record
}

// RunSummary is a run without its URL lists and records, for listings.
type RunSummary struct {
	ID               int64
	StartURL         string
	StartedAt        time.Time
	FinishedAt       time.Time
	MaxPages         int
	Visited          int
	Fetched          int
	Failed           int
	Pending          int
	ExtractionErrors int
	OutputPath       string
}

// SaveRun stores run with its pages and records in one transaction and
// returns the new run ID.
func (h *HistoryDB) SaveRun(ctx context.Context, run *Run) (int64, error) {
	selectorsJSON, err := json.Marshal(run.Selectors)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize selectors: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (start_url, started_at, finished_at, max_pages, visited, fetched, failed,
		pending, extraction_errors, output_path, selectors)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.StartURL,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.MaxPages,
		len(run.Visited),
		run.Fetched,
		run.Failed,
		len(run.Pending),
		run.ExtractionErrors,
		run.OutputPath,
		string(selectorsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	if err := insertPages(ctx, tx, id, pageVisited, run.Visited); err != nil {
		return 0, err
	}
	if err := insertPages(ctx, tx, id, pagePending, run.Pending); err != nil {
		return 0, err
	}

	for i, rec := range run.Records {
		fieldsJSON, err := json.Marshal(rec.Fields)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize record %s: %w", rec.URL, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO records (run_id, seq, url, fields) VALUES (?, ?, ?, ?)",
			id, i, rec.URL, string(fieldsJSON)); err != nil {
			return 0, fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	return id, nil
}

func insertPages(ctx context.Context, tx *sql.Tx, runID int64, status string, urls []string) error {
	for i, u := range urls {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO pages (run_id, seq, url, status) VALUES (?, ?, ?, ?)",
			runID, i, u, status); err != nil {
			return fmt.Errorf("failed to insert %s page: %w", status, err)
		}
	}
	return nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, start_url, started_at, finished_at, max_pages, visited, fetched, failed,
		pending, extraction_errors, COALESCE(output_path, '')
	FROM runs
	ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			s                  RunSummary
			started, finished string
		)
		if err := rows.Scan(&s.ID, &s.StartURL, &started, &finished, &s.MaxPages, &s.Visited,
			&s.Fetched, &s.Failed, &s.Pending, &s.ExtractionErrors, &s.OutputPath); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.StartedAt = parseTimestamp(started)
		s.FinishedAt = parseTimestamp(finished)
		runs = append(runs, s)
	}

	return runs, rows.Err()
}

// GetRun loads a run with its pages and records.
func (h *HistoryDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	var (
		run               Run
		started, finished string
		selectorsJSON     string
	)
	err := h.db.QueryRowContext(ctx, `
	SELECT id, start_url, started_at, finished_at, max_pages, fetched, failed,
		extraction_errors, COALESCE(output_path, ''), selectors
	FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.StartURL, &started, &finished, &run.MaxPages, &run.Fetched,
		&run.Failed, &run.ExtractionErrors, &run.OutputPath, &selectorsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)
	if err := json.Unmarshal([]byte(selectorsJSON), &run.Selectors); err != nil {
		return nil, fmt.Errorf("failed to parse selectors: %w", err)
	}

	if run.Visited, err = h.pages(ctx, id, pageVisited); err != nil {
		return nil, err
	}
	if run.Pending, err = h.pages(ctx, id, pagePending); err != nil {
		return nil, err
	}
	if run.Records, err = h.GetRunRecords(ctx, id); err != nil {
		return nil, err
	}

	return &run, nil
}

func (h *HistoryDB) pages(ctx context.Context, runID int64, status string) ([]string, error) {
	rows, err := h.db.QueryContext(ctx,
		"SELECT url FROM pages WHERE run_id = ? AND status = ? ORDER BY seq", runID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// GetRunRecords returns the records of a run in visit order.
func (h *HistoryDB) GetRunRecords(ctx context.Context, runID int64) ([]model.Record, error) {
	rows, err := h.db.QueryContext(ctx,
		"SELECT url, fields FROM records WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var pageURL, fieldsJSON string
		if err := rows.Scan(&pageURL, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var fields []model.Field
		if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
			return nil, fmt.Errorf("failed to parse record %s: %w", pageURL, err)
		}
		records = append(records, model.NewRecord(pageURL, fields))
	}
	return records, rows.Err()
}

// DeleteRun removes a run with its pages and records.
func (h *HistoryDB) DeleteRun(ctx context.Context, id int64) error {
	res, err := h.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp tries each known format and returns the zero time if none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
