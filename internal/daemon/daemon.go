package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"tuneport/internal/catalog"
	"tuneport/internal/config"
	"tuneport/internal/jobs"
	"tuneport/internal/logging"
	"tuneport/internal/services"
	"tuneport/internal/workflow"
)

// PlaylistLibrary lists and creates playlists on the catalog account.
type PlaylistLibrary interface {
	Playlists(ctx context.Context) ([]catalog.Playlist, error)
	CreatePlaylist(ctx context.Context, name, description string, public bool) (catalog.Playlist, error)
}

// Daemon coordinates the background workers and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	workflow *workflow.Manager
	library  PlaylistLibrary
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	JobsDBPath   string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies. library may be nil
// when no catalog account is configured.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger, wf *workflow.Manager, library PlaylistLibrary) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		library:  library,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the workflow manager and starts
// serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tuneport daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("tuneport daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddress()),
	)
	return nil
}

// Stop stops the API and the workers, then releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("tuneport daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// APIAddress returns the address the API listens on, or "" when not serving.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Submit queues a new job.
func (d *Daemon) Submit(ctx context.Context, req jobs.Request) (*jobs.Job, error) {
	return d.workflow.Submit(ctx, req)
}

// Job returns one job.
func (d *Daemon) Job(ctx context.Context, id string) (*jobs.Job, error) {
	return d.store.Get(ctx, id)
}

// ListJobs returns jobs filtered by optional statuses.
func (d *Daemon) ListJobs(ctx context.Context, statuses []jobs.Status) ([]*jobs.Job, error) {
	return d.store.List(ctx, statuses...)
}

// Confirm resumes a parked job.
func (d *Daemon) Confirm(ctx context.Context, id string, edit *jobs.FallbackMetadata) (*jobs.Job, error) {
	return d.workflow.Confirm(ctx, id, edit)
}

// Reject fails a parked job.
func (d *Daemon) Reject(ctx context.Context, id string) (*jobs.Job, error) {
	return d.workflow.Reject(ctx, id)
}

// RemoveJob deletes a finished job.
func (d *Daemon) RemoveJob(ctx context.Context, id string) error {
	return d.store.Remove(ctx, id)
}

// ClearJobs removes every completed or failed job.
func (d *Daemon) ClearJobs(ctx context.Context, status jobs.Status) (int64, error) {
	switch status {
	case jobs.StatusCompleted:
		return d.store.ClearCompleted(ctx)
	case jobs.StatusFailed:
		return d.store.ClearFailed(ctx)
	default:
		return 0, services.Wrap(services.ErrValidation, "daemon", "clear jobs",
			fmt.Sprintf("can only clear completed or failed jobs, not %q", status), nil)
	}
}

// Playlists lists the account's playlists.
func (d *Daemon) Playlists(ctx context.Context) ([]catalog.Playlist, error) {
	if d.library == nil {
		return nil, errNoLibrary
	}
	return d.library.Playlists(ctx)
}

// CreatePlaylist creates a playlist on the account.
func (d *Daemon) CreatePlaylist(ctx context.Context, name, description string, public bool) (catalog.Playlist, error) {
	if d.library == nil {
		return catalog.Playlist{}, errNoLibrary
	}
	if strings.TrimSpace(name) == "" {
		return catalog.Playlist{}, services.Wrap(services.ErrValidation, "daemon", "create playlist", "playlist name is required", nil)
	}
	return d.library.CreatePlaylist(ctx, strings.TrimSpace(name), description, public)
}

var errNoLibrary = services.Wrap(services.ErrConfiguration, "daemon", "playlists", "catalog account not configured", nil)

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		JobsDBPath:   d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
