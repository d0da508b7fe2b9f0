// Package history records completed benchmark runs in a SQLite database
// so MRR movement over time can be inspected with the history subcommands.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Run is one recorded benchmark run. Delta is lifted minus unlifted mean
// MRR, 0 for runs without a treatment pass; CILower/CIUpper are nil for
// runs without a bootstrap interval.
type Run struct {
	ID          int64
	RunID       string
	Timestamp   string
	Binary      string
	Suite       string
	Repos       int
	Queries     int
	UnliftedAt1 int
	UnliftedMRR float64
	LiftedAt1   int
	LiftedMRR   float64
	Delta       float64
	CILower     *float64
	CIUpper     *float64
	ReportPath  string
}

// Stats summarizes the recorded runs. All fields are zero when Count is 0.
type Stats struct {
	Count        int
	First        string
	Last         string
	MeanDelta    float64
	BestDelta    float64
	WorstDelta   float64
	Improvements int
}

// Store manages the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens the history database at dbPath, creating the file and its
// parent directory as needed, and initializes the schema.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so the remaining statements wait on locks instead
	// of failing immediately.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement with exponential backoff on
// "database is locked" errors, which can occur when two runs initialize
// the same database file concurrently.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// RecordRun inserts one run row and fills in its assigned ID.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	query := `INSERT INTO runs
		(run_id, timestamp, binary, suite, repos, queries, unlifted_at1, unlifted_mrr, lifted_at1, lifted_mrr, delta, ci_lower, ci_upper, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.Timestamp,
		run.Binary,
		run.Suite,
		run.Repos,
		run.Queries,
		run.UnliftedAt1,
		run.UnliftedMRR,
		run.LiftedAt1,
		run.LiftedMRR,
		run.Delta,
		run.CILower,
		run.CIUpper,
		run.ReportPath,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// ListRuns returns recorded runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT id, run_id, timestamp, binary, suite, repos, queries,
		unlifted_at1, unlifted_mrr, lifted_at1, lifted_mrr, delta, ci_lower, ci_upper, report_path
		FROM runs
		ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var suite, reportPath sql.NullString
		var ciLower, ciUpper sql.NullFloat64
		if err := rows.Scan(
			&run.ID,
			&run.RunID,
			&run.Timestamp,
			&run.Binary,
			&suite,
			&run.Repos,
			&run.Queries,
			&run.UnliftedAt1,
			&run.UnliftedMRR,
			&run.LiftedAt1,
			&run.LiftedMRR,
			&run.Delta,
			&ciLower,
			&ciUpper,
			&reportPath,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Suite = suite.String
		run.ReportPath = reportPath.String
		if ciLower.Valid {
			v := ciLower.Float64
			run.CILower = &v
		}
		if ciUpper.Valid {
			v := ciUpper.Float64
			run.CIUpper = &v
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Stats summarizes all recorded runs.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	var first, last sql.NullString
	var mean, best, worst sql.NullFloat64

	query := `SELECT COUNT(*), MIN(timestamp), MAX(timestamp),
		AVG(delta), MAX(delta), MIN(delta),
		COALESCE(SUM(CASE WHEN delta > 0 THEN 1 ELSE 0 END), 0)
		FROM runs`
	if err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.Count,
		&first,
		&last,
		&mean,
		&best,
		&worst,
		&stats.Improvements,
	); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	stats.First = first.String
	stats.Last = last.String
	stats.MeanDelta = mean.Float64
	stats.BestDelta = best.Float64
	stats.WorstDelta = worst.Float64
	return stats, nil
}

// Clear deletes every recorded run and returns the number removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs")
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
