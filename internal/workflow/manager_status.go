package workflow

import (
	"context"

	"tuneport/internal/jobs"
	"tuneport/internal/logging"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running   bool
	Workers   int
	Active    int
	LastError string
	LastJob   *jobs.Job
	JobStats  map[jobs.Status]int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running: m.running,
		Workers: m.workers,
		Active:  len(m.active),
		LastJob: m.lastJob.Clone(),
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_stats_failed"),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
	}
	summary.JobStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *jobs.Job) {
	m.mu.Lock()
	m.lastJob = job.Clone()
	m.mu.Unlock()
}
