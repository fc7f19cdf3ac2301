package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tuneport/internal/config"
	"tuneport/internal/services"
)

// ErrJobActive reports an attempt to remove a job that has not finished.
var ErrJobActive = errors.New("job is still active")

// Store persists jobs in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the jobs database under the state dir.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the database at path, creating the schema on first use.
func OpenPath(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer connection keeps claims and whole-record updates serialized.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
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

// Create validates req and inserts a queued job for it.
func (s *Store) Create(ctx context.Context, req Request) (*Job, error) {
	req.SourceURL = strings.TrimSpace(req.SourceURL)
	req.PlaylistID = strings.TrimSpace(req.PlaylistID)
	if req.SourceURL == "" {
		return nil, services.Wrap(services.ErrValidation, "jobs", "create", "source url required", nil)
	}
	if req.PlaylistID == "" {
		return nil, services.Wrap(services.ErrValidation, "jobs", "create", "playlist id required", nil)
	}

	now := s.now().UTC()
	job := &Job{
		ID:          uuid.NewString(),
		Request:     req,
		Status:      StatusQueued,
		Progress:    0,
		CurrentStep: "Queued",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	requestJSON, err := json.Marshal(job.Request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (
            id, source_url, playlist_id, status, progress, current_step, request_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		req.SourceURL,
		req.PlaylistID,
		job.Status,
		job.Progress,
		job.CurrentStep,
		string(requestJSON),
		formatTime(now),
		formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// Get fetches a job by id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update replaces the stored record with job. The stored status must be
// able to move to job.Status.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	requestJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	trackJSON, err := encodeOptional(job.TrackInfo)
	if err != nil {
		return fmt.Errorf("encode track info: %w", err)
	}
	downloadJSON, err := encodeOptional(job.DownloadInfo)
	if err != nil {
		return fmt.Errorf("encode download info: %w", err)
	}
	fallbackJSON, err := encodeOptional(job.FallbackMetadata)
	if err != nil {
		return fmt.Errorf("encode fallback metadata: %w", err)
	}
	segmentsJSON, err := encodeOptional(job.Segments)
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin update tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var current string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, job.ID).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrNotFound, job.ID)
			}
			return fmt.Errorf("read job status: %w", err)
		}
		if err := checkTransition(Status(current), job.Status); err != nil {
			return err
		}

		updated := s.now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs
             SET status = ?, progress = ?, current_step = ?, error_message = ?, request_json = ?,
                 track_json = ?, download_json = ?, fallback_json = ?, segments_json = ?, updated_at = ?
             WHERE id = ?`,
			job.Status,
			job.Progress,
			nullableString(job.CurrentStep),
			nullableString(job.Error),
			string(requestJSON),
			trackJSON,
			downloadJSON,
			fallbackJSON,
			segmentsJSON,
			formatTime(updated),
			job.ID,
		); err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit job update: %w", err)
		}
		job.UpdatedAt = updated
		return nil
	})
}

// List returns jobs filtered by status set (or all jobs when none is given),
// oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNext moves the oldest queued job to searching and returns it. It
// returns nil when nothing is queued. The claim is a single statement, so
// two workers never receive the same job.
func (s *Store) ClaimNext(ctx context.Context, progress int, step string) (*Job, error) {
	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE jobs
             SET status = ?, progress = ?, current_step = ?, updated_at = ?
             WHERE id = (SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1)
               AND status = ?
             RETURNING `+jobColumns,
			StatusSearching,
			progress,
			nullableString(step),
			formatTime(s.now()),
			StatusQueued,
			StatusQueued,
		)
		claimed, err := scanJob(row)
		if err != nil {
			return err
		}
		job = claimed
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}
