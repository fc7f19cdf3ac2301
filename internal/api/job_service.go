package api

import (
	"context"

	"tuneport/internal/jobs"
)

// JobReader abstracts job persistence interactions needed for API queries.
type JobReader interface {
	List(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error)
	Stats(ctx context.Context) (map[jobs.Status]int, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
}

// JobService exposes read-only job operations returning API DTOs.
type JobService struct {
	store JobReader
}

// NewJobService constructs a JobService around the provided reader.
func NewJobService(store JobReader) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store}
}

// List returns jobs filtered by status, oldest first.
func (s *JobService) List(ctx context.Context, statuses ...jobs.Status) ([]JobStatus, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	list, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(list), nil
}

// Stats returns job counts keyed by status string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeJobStats(stats), nil
}

// Describe fetches a single job. Unknown ids return jobs.ErrNotFound.
func (s *JobService) Describe(ctx context.Context, id string) (*JobStatus, error) {
	if s == nil || s.store == nil {
		return nil, jobs.ErrNotFound
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}
