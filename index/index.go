// Package index records scrape runs and the period tables they flushed in a
// SQLite database.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/rangescrape"
)

// Custom errors for index operations
var (
	ErrRunNotFound   = errors.New("run not found")
	ErrInvalidStatus = errors.New("status must be running, done, or failed")
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

func (s Status) valid() bool {
	return s == StatusRunning || s == StatusDone || s == StatusFailed
}

// Store manages the run index using SQLite.
type Store struct {
	db *sql.DB
}

// RunParams are the inputs a run was started with.
type RunParams struct {
	Keyword     string `json:"keyword"`
	StartDate   string `json:"start_date"`
	Periodicity string `json:"periodicity"`
	Periods     int    `json:"periods"`
	OutputDir   string `json:"output_dir"`
}

// Run is one invocation of the scraper.
type Run struct {
	RunID uuid.UUID `json:"run_id"`
	RunParams
	Status     Status     `json:"status"`
	Articles   int        `json:"articles"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	LastError  *string    `json:"last_error,omitempty"`
}

// PeriodEntry is one period table flushed by a run.
type PeriodEntry struct {
	RunID     uuid.UUID `json:"run_id"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Records   int       `json:"records"`
	Path      string    `json:"path"`
	WrittenAt time.Time `json:"written_at"`
}

// RunFilter represents filtering options for listing runs.
type RunFilter struct {
	Keyword *string // Filter by keyword
	Status  *Status // Filter by status
	Limit   int     // Pagination limit
	Offset  int     // Pagination offset
}

// NewStore creates a new run index with the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the runs and periods tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		keyword TEXT NOT NULL,
		start_date TEXT NOT NULL,
		periodicity TEXT NOT NULL,
		periods INTEGER NOT NULL,
		output_dir TEXT NOT NULL,
		status TEXT NOT NULL,
		articles INTEGER DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		last_error TEXT
	);

	CREATE TABLE IF NOT EXISTS periods (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		records INTEGER NOT NULL,
		path TEXT NOT NULL,
		written_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_periods_run_id ON periods(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun records a new run in the running state.
func (s *Store) CreateRun(params RunParams, startedAt time.Time) (*Run, error) {
	run := &Run{
		RunID:     uuid.New(),
		RunParams: params,
		Status:    StatusRunning,
		StartedAt: startedAt.Truncate(0),
	}

	query := `
		INSERT INTO runs (
			run_id, keyword, start_date, periodicity, periods,
			output_dir, status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.RunID.String(),
		run.Keyword,
		run.StartDate,
		run.Periodicity,
		run.Periods,
		run.OutputDir,
		string(run.Status),
		formatTime(&run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, nil
}

// AddPeriod records a flushed period table for a run.
func (s *Store) AddPeriod(runID uuid.UUID, table rangescrape.PeriodTable, path string, writtenAt time.Time) error {
	if _, err := s.GetRun(runID); err != nil {
		return err
	}

	query := `
		INSERT INTO periods (run_id, period_start, period_end, records, path, written_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		runID.String(),
		table.Period.FormatStart(),
		table.Period.FormatEnd(),
		len(table.Records),
		path,
		formatTime(&writtenAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert period: %w", err)
	}
	return nil
}

// FinishRun moves a run into its final state. runErr, when non-nil, is
// stored as the run's last error.
func (s *Store) FinishRun(runID uuid.UUID, status Status, articles int, runErr error, finishedAt time.Time) error {
	if !status.valid() {
		return ErrInvalidStatus
	}

	var lastError *string
	if runErr != nil {
		msg := runErr.Error()
		lastError = &msg
	}

	query := `
		UPDATE runs
		SET status = ?, articles = ?, finished_at = ?, last_error = ?
		WHERE run_id = ?
	`

	result, err := s.db.Exec(query,
		string(status),
		articles,
		formatTime(&finishedAt),
		lastError,
		runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

const runColumns = `
	run_id, keyword, start_date, periodicity, periods, output_dir,
	status, articles, started_at, finished_at, last_error
`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var runIDStr, status, startedAtStr string
	var finishedAtStr, lastError sql.NullString
	run := &Run{}

	err := row.Scan(
		&runIDStr, &run.Keyword, &run.StartDate, &run.Periodicity,
		&run.Periods, &run.OutputDir, &status, &run.Articles,
		&startedAtStr, &finishedAtStr, &lastError,
	)
	if err != nil {
		return nil, err
	}

	run.RunID, err = uuid.Parse(runIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid run_id: %w", err)
	}
	run.Status = Status(status)
	run.StartedAt = parseTime(startedAtStr)
	if finishedAtStr.Valid {
		t := parseTime(finishedAtStr.String)
		run.FinishedAt = &t
	}
	if lastError.Valid {
		run.LastError = &lastError.String
	}

	return run, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(runID uuid.UUID) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE run_id = ?`

	run, err := scanRun(s.db.QueryRow(query, runID.String()))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs, most recent first.
func (s *Store) ListRuns(filter RunFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`

	var whereClauses []string
	var args []any

	if filter.Keyword != nil {
		whereClauses = append(whereClauses, "keyword = ?")
		args = append(args, *filter.Keyword)
	}
	if filter.Status != nil {
		whereClauses = append(whereClauses, "status = ?")
		args = append(args, string(*filter.Status))
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// ListPeriods returns the period tables flushed by a run in write order.
func (s *Store) ListPeriods(runID uuid.UUID) ([]PeriodEntry, error) {
	query := `
		SELECT period_start, period_end, records, path, written_at
		FROM periods
		WHERE run_id = ?
		ORDER BY rowid
	`

	rows, err := s.db.Query(query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var entries []PeriodEntry
	for rows.Next() {
		entry := PeriodEntry{RunID: runID}
		var writtenAtStr string
		if err := rows.Scan(&entry.Start, &entry.End, &entry.Records, &entry.Path, &writtenAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		entry.WrittenAt = parseTime(writtenAtStr)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
