package jobs

import (
	"context"
	"fmt"
)

// FailStranded fails jobs left in a processing status by a previous daemon
// run. Jobs awaiting fallback confirmation are kept.
func (s *Store) FailStranded(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, current_step = 'Failed', updated_at = ?
         WHERE status IN (?, ?, ?)`,
		StatusFailed,
		StrandedMessage,
		formatTime(s.now()),
		StatusSearching,
		StatusAdding,
		StatusDownloading,
	)
	if err != nil {
		return 0, fmt.Errorf("fail stranded jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	return s.clearStatus(ctx, StatusCompleted)
}

// ClearFailed removes failed jobs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	return s.clearStatus(ctx, StatusFailed)
}

func (s *Store) clearStatus(ctx context.Context, status Status) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, status)
	if err != nil {
		return 0, fmt.Errorf("clear %s jobs: %w", status, err)
	}
	return res.RowsAffected()
}

// Remove deletes a finished job. Active jobs return ErrJobActive.
func (s *Store) Remove(ctx context.Context, id string) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !job.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobActive, id, job.Status)
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ? AND status IN (?, ?)`, id, StatusCompleted, StatusFailed)
	if err != nil {
		return fmt.Errorf("remove job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s changed state", ErrJobActive, id)
	}
	return nil
}
