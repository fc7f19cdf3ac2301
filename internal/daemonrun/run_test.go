package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tuneport/internal/logging"
	"tuneport/internal/testsupport"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	pid, err := ReadPID(dir)
	if err != nil || pid != 0 {
		t.Fatalf("expected no pid, got %d (%v)", pid, err)
	}

	if err := writePIDFile(filepath.Join(dir, PIDFileName)); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	pid, err = ReadPID(dir)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), pid)
	}
}

func TestReadPIDRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, PIDFileName), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPID(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRunFailsWithoutCatalogCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Catalog.AccessToken = ""
	cfg.Download.Enabled = false

	if err := Run(context.Background(), cfg, Options{LogLevel: "error"}); err == nil {
		t.Fatal("expected services error")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.StateDir, PIDFileName)); !os.IsNotExist(err) {
		t.Fatalf("expected pid file to be removed, stat err=%v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Download.Enabled = false

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Options{}) }()

	pidPath := filepath.Join(cfg.Paths.StateDir, PIDFileName)
	waitFor(t, func() bool {
		data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
		return err == nil && strings.Contains(string(data), "daemon_started")
	})
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed after shutdown, stat err=%v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
