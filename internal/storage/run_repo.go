package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_run_store.go -package=mocks ytrag/internal/storage RunStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// timeLayout has a fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// RunStore defines the interface for run history storage operations.
type RunStore interface {
	// SaveRun stores a run and its per-video results in one transaction.
	SaveRun(ctx context.Context, run *RunRecord, results []VideoResultRecord) error
	// LatestRun returns the most recent run with its results in run order.
	// Returns ErrNotFound when no run was saved yet.
	LatestRun(ctx context.Context) (*RunRecord, []VideoResultRecord, error)
	// LatestSucceededRun returns the most recent run with status RunSucceeded.
	// Returns ErrNotFound when there is none.
	LatestSucceededRun(ctx context.Context) (*RunRecord, error)
	// GetTranscript returns the successful result for videoID in runID.
	// Returns ErrNotFound if the video has no transcript in that run.
	GetTranscript(ctx context.Context, runID, videoID string) (*VideoResultRecord, error)
}

// RunRepo provides methods for run history operations.
// It implements the RunStore interface.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// SaveRun stores a run and its per-video results in one transaction.
// A zero CreatedAt is set to the current time.
func (r *RunRepo) SaveRun(ctx context.Context, run *RunRecord, results []VideoResultRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, url, kind, status, error, total, succeeded, failed, chunks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.URL, run.Kind, run.Status, run.Error,
		run.Total, run.Succeeded, run.Failed, run.Chunks,
		run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO video_results (run_id, position, video_id, url, title, status, error, text, word_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range results {
		res := &results[i]
		res.RunID = run.ID
		if _, err := stmt.ExecContext(ctx,
			res.RunID, res.Position, res.VideoID, res.URL, res.Title,
			res.Status, res.Error, res.Text, res.WordCount,
		); err != nil {
			return fmt.Errorf("failed to insert result for video %s: %w", res.VideoID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// LatestRun returns the most recent run with its results in run order.
func (r *RunRepo) LatestRun(ctx context.Context) (*RunRecord, []VideoResultRecord, error) {
	run, err := r.latest(ctx, "")
	if err != nil {
		return nil, nil, err
	}
	results, err := r.listResults(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, results, nil
}

// LatestSucceededRun returns the most recent succeeded run without its results.
func (r *RunRepo) LatestSucceededRun(ctx context.Context) (*RunRecord, error) {
	return r.latest(ctx, RunSucceeded)
}

// latest returns the newest run, restricted to status when it is not empty.
func (r *RunRepo) latest(ctx context.Context, status string) (*RunRecord, error) {
	var run RunRecord
	var createdAtStr string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, url, kind, status, error, total, succeeded, failed, chunks, created_at
		 FROM runs WHERE ? = '' OR status = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		status, status,
	).Scan(&run.ID, &run.URL, &run.Kind, &run.Status, &run.Error,
		&run.Total, &run.Succeeded, &run.Failed, &run.Chunks, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	run.CreatedAt, err = time.Parse(timeLayout, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	return &run, nil
}

func (r *RunRepo) listResults(ctx context.Context, runID string) ([]VideoResultRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, position, video_id, url, title, status, error, text, word_count
		 FROM video_results WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []VideoResultRecord
	for rows.Next() {
		var res VideoResultRecord
		if err := rows.Scan(&res.RunID, &res.Position, &res.VideoID, &res.URL, &res.Title,
			&res.Status, &res.Error, &res.Text, &res.WordCount); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// GetTranscript returns the successful result for videoID in runID.
func (r *RunRepo) GetTranscript(ctx context.Context, runID, videoID string) (*VideoResultRecord, error) {
	var res VideoResultRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id, position, video_id, url, title, status, error, text, word_count
		 FROM video_results WHERE run_id = ? AND video_id = ? AND status = ?
		 ORDER BY position LIMIT 1`,
		runID, videoID, ResultSuccess,
	).Scan(&res.RunID, &res.Position, &res.VideoID, &res.URL, &res.Title,
		&res.Status, &res.Error, &res.Text, &res.WordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	return &res, nil
}
