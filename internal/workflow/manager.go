package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arunsworld/nursery"

	"tuneport/internal/config"
	"tuneport/internal/jobs"
	"tuneport/internal/logging"
	"tuneport/internal/services"
)

// ErrJobBusy reports a confirm or reject for a job a worker is running.
var ErrJobBusy = errors.New("job is being processed")

// Manager runs the worker pool and the user actions on jobs.
type Manager struct {
	cfg          *config.Config
	store        *jobs.Store
	engine       *Engine
	logger       *slog.Logger
	workers      int
	pollInterval time.Duration
	retryDelay   time.Duration
	wake         chan struct{}

	mu      sync.RWMutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	resumes sync.WaitGroup
	active  map[string]struct{}
	lastErr error
	lastJob *jobs.Job
}

// NewManager constructs a workflow manager over store and engine.
func NewManager(cfg *config.Config, store *jobs.Store, engine *Engine, logger *slog.Logger) *Manager {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	workers := cfg.Jobs.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		engine:       engine,
		logger:       logging.NewComponentLogger(logger, "workflow-manager"),
		workers:      workers,
		pollInterval: secondsOr(cfg.Jobs.PollInterval, 2),
		retryDelay:   secondsOr(cfg.Jobs.ErrorRetryInterval, 10),
		wake:         make(chan struct{}, 1),
		active:       make(map[string]struct{}),
	}
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

// Start fails jobs stranded by a previous run and launches the workers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.engine == nil || m.store == nil {
		m.mu.Unlock()
		return errors.New("workflow engine not configured")
	}

	stranded, err := m.store.FailStranded(ctx)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("fail stranded jobs: %w", err)
	}
	if stranded > 0 {
		logging.WarnWithContext(m.logger, "failed jobs left running by previous daemon", "stranded_jobs_failed",
			logging.Int("count", int(stranded)),
			logging.String(logging.FieldErrorHint, "resubmit the affected jobs"),
			logging.String(logging.FieldImpact, "interrupted jobs will not resume"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.runCtx = runCtx
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true
	done := m.done
	m.mu.Unlock()

	routines := make([]nursery.ConcurrentJob, 0, m.workers)
	for slot := 1; slot <= m.workers; slot++ {
		routines = append(routines, m.worker(runCtx, slot))
	}
	go func() {
		defer close(done)
		if err := nursery.RunConcurrently(routines...); err != nil {
			m.setLastError(err)
		}
	}()

	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_started"),
		logging.Int("workers", m.workers),
		logging.String("fallback_policy", m.cfg.Jobs.FallbackPolicy),
	)
	return nil
}

// Stop cancels in-flight work and waits for every worker to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	<-done
	m.resumes.Wait()
}

func (m *Manager) worker(ctx context.Context, slot int) nursery.ConcurrentJob {
	return func(context.Context, chan error) {
		logger := m.logger.With(logging.Int(logging.FieldWorker, slot))
		ctx := services.WithWorker(ctx, slot)
		for {
			if ctx.Err() != nil {
				return
			}
			job, err := m.store.ClaimNext(ctx, progressSearching, "Fetching video metadata")
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.setLastError(err)
				logger.Error("failed to claim next job",
					logging.Error(err),
					logging.String(logging.FieldEventType, "job_claim_failed"),
					logging.String(logging.FieldErrorHint, "check job database access"),
				)
				m.wait(ctx, m.retryDelay)
				continue
			}
			if job == nil {
				m.wait(ctx, m.pollInterval)
				continue
			}
			m.claim(job.ID)
			m.run(ctx, logger, job, func(ctx context.Context) error {
				return m.engine.Process(ctx, job)
			})
		}
	}
}

// claim marks id active. It reports false when another caller holds it.
func (m *Manager) claim(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.active[id]; busy {
		return false
	}
	m.active[id] = struct{}{}
	return true
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// run executes fn for a claimed job and releases it afterwards.
func (m *Manager) run(ctx context.Context, logger *slog.Logger, job *jobs.Job, fn func(context.Context) error) {
	defer func() {
		m.release(job.ID)
		m.setLastJob(job)
	}()

	if err := fn(ctx); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			logger.Debug("job interrupted by shutdown", logging.String(logging.FieldJobID, job.ID))
			return
		}
		m.setLastError(err)
		logger.Error("failed to persist job state",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_persist_failed"),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
	}
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-m.wake:
	case <-timer.C:
	}
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Submit queues a new job. An empty playlist falls back to the configured
// default playlist.
func (m *Manager) Submit(ctx context.Context, req jobs.Request) (*jobs.Job, error) {
	if strings.TrimSpace(req.PlaylistID) == "" {
		req.PlaylistID = m.cfg.Catalog.DefaultPlaylistID
	}
	job, err := m.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithJobID(ctx, job.ID), m.logger).Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String("source_url", job.SourceURL()),
		logging.Int("segments", len(job.Request.Segments)),
	)
	m.signal()
	return job, nil
}

// Confirm resumes a job parked at awaiting_fallback. edit, when non-nil,
// replaces the proposed metadata. While the manager runs, the search happens
// in the background and the returned job is the parked snapshot.
func (m *Manager) Confirm(ctx context.Context, id string, edit *jobs.FallbackMetadata) (*jobs.Job, error) {
	job, err := m.parked(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot := job.Clone()

	m.mu.Lock()
	running := m.running
	runCtx := m.runCtx
	if running {
		m.resumes.Add(1)
	}
	m.mu.Unlock()

	logger := logging.WithContext(services.WithJobID(ctx, id), m.logger)
	if !running {
		m.run(ctx, logger, job, func(ctx context.Context) error {
			return m.engine.Confirm(ctx, job, edit)
		})
		return job, nil
	}
	go func() {
		defer m.resumes.Done()
		m.run(runCtx, logger, job, func(ctx context.Context) error {
			return m.engine.Confirm(ctx, job, edit)
		})
	}()
	return snapshot, nil
}

// Reject fails a job parked at awaiting_fallback.
func (m *Manager) Reject(ctx context.Context, id string) (*jobs.Job, error) {
	job, err := m.parked(ctx, id)
	if err != nil {
		return nil, err
	}
	defer m.release(id)
	if err := m.engine.Reject(ctx, job); err != nil {
		return nil, err
	}
	m.setLastJob(job)
	return job, nil
}

// parked claims id and loads it, requiring awaiting_fallback. The caller
// releases the claim.
func (m *Manager) parked(ctx context.Context, id string) (*jobs.Job, error) {
	if !m.claim(id) {
		return nil, fmt.Errorf("%w: %s", ErrJobBusy, id)
	}
	job, err := m.store.Get(ctx, id)
	if err != nil {
		m.release(id)
		return nil, err
	}
	if job.Status != jobs.StatusAwaitingFallback {
		m.release(id)
		return nil, fmt.Errorf("%w: job %s is %s, not %s", jobs.ErrInvalidTransition, id, job.Status, jobs.StatusAwaitingFallback)
	}
	return job, nil
}
