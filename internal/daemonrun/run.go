package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"tuneport/internal/config"
	"tuneport/internal/daemon"
	"tuneport/internal/jobs"
	"tuneport/internal/logging"
	"tuneport/internal/preflight"
	"tuneport/internal/workflow"
)

// PIDFileName is written inside the state directory while the daemon runs.
const PIDFileName = "tuneportd.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the tuneport daemon and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		runCfg.Logging.Level = level
	}
	if opts.Development {
		runCfg.Logging.Format = "console"
		runCfg.Logging.Level = "debug"
	}
	logger, err := logging.NewFromConfig(&runCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := jobs.Open(&runCfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}

	pidPath := filepath.Join(runCfg.Paths.StateDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		store.Close()
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logDependencySnapshot(signalCtx, logger, &runCfg)

	svc, err := workflow.NewServices(signalCtx, &runCfg, logger)
	if err != nil {
		store.Close()
		logger.Error("initialize services",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_services_failed"),
			logging.String(logging.FieldErrorHint, "check catalog credentials and download settings"),
		)
		return fmt.Errorf("init services: %w", err)
	}
	manager := workflow.NewManager(&runCfg, store, svc.Engine(&runCfg, store, logger), logger)

	var library daemon.PlaylistLibrary
	if svc.Library != nil {
		library = svc.Library
	}
	d, err := daemon.New(&runCfg, store, logger, manager, library)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check the API bind address and whether another daemon holds the lock"),
			logging.String(logging.FieldImpact, "jobs will not be processed"),
		)
		return err
	}
	<-signalCtx.Done()
	logger.Info("tuneport daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the PID recorded under stateDir, or 0 when no daemon has
// written one.
func ReadPID(stateDir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, PIDFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	results := preflight.RunAll(ctx, cfg)
	failed := preflight.Failed(results)
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("downloads_enabled", cfg.Download.Enabled),
		logging.Bool("lossless_enabled", cfg.Lossless.Enabled),
		logging.Bool("local_ytdlp_enabled", cfg.Download.LocalYtDlpEnabled),
		logging.Int("extractor_mirrors", len(cfg.Extractor.Mirrors)),
		logging.String("fallback_policy", cfg.Jobs.FallbackPolicy),
		logging.Int("checks", len(results)),
		logging.Int("checks_failed", len(failed)),
	)
	for _, result := range failed {
		logger.Warn("preflight check failed",
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "jobs depending on this check may fail"),
		)
	}
}
