package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tuneport/internal/catalog"
	"tuneport/internal/config"
	"tuneport/internal/daemon"
	"tuneport/internal/jobs"
	"tuneport/internal/logging"
	"tuneport/internal/matching"
	"tuneport/internal/testsupport"
	"tuneport/internal/workflow"
)

const testAPIToken = "cli-test-token"

type stubMatcher struct{}

func (stubMatcher) Match(_ context.Context, q matching.TrackQuery) (matching.Result, error) {
	c := &matching.Candidate{URI: "spotify:track:cli", Name: q.Title, ArtistNames: []string{q.Artist}}
	return matching.Result{Candidate: c, Best: c, Score: 0.97, Confidence: matching.ConfidenceHigh, Query: q.Title}, nil
}

type stubPlaylist struct{}

func (stubPlaylist) AddTrack(context.Context, string, string, int) error { return nil }

type stubDuplicates struct{}

func (stubDuplicates) Contains(context.Context, string, string) bool { return false }

type stubLibrary struct{}

func (stubLibrary) Playlists(context.Context) ([]catalog.Playlist, error) {
	return []catalog.Playlist{
		{ID: "pl-cli", Name: "Imports", Owner: "me", Tracks: 3},
		{ID: "pl-other", Name: "Road Trip", Owner: "me", Public: true, Tracks: 12},
	}, nil
}

func (stubLibrary) CreatePlaylist(_ context.Context, name, _ string, public bool) (catalog.Playlist, error) {
	return catalog.Playlist{ID: "pl-new", Name: name, Public: public}, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *jobs.Store
	daemon     *daemon.Daemon
	configPath string
}

// setupCLITestEnv starts a daemon with stub catalog collaborators and
// writes a config file pointing the CLI at its API.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = testAPIToken
	cfg.Catalog.DefaultPlaylistID = "pl-cli"
	cfg.Jobs.PollInterval = 1
	cfg.Download.Enabled = false

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	engine := workflow.NewEngine(cfg, store, workflow.Dependencies{
		Matcher:    stubMatcher{},
		Playlist:   stubPlaylist{},
		Duplicates: stubDuplicates{},
	}, logger)
	mgr := workflow.NewManager(cfg, store, engine, logger)
	d, err := daemon.New(cfg, store, logger, mgr, stubLibrary{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg, d.APIAddress())

	return &cliTestEnv{cfg: cfg, store: store, daemon: d, configPath: configPath}
}

// writeOfflineConfig writes a config whose API address refuses connections.
func writeOfflineConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, path, cfg, "127.0.0.1:1")
	return cfg, path
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config, apiBind string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
api_bind = %q
api_token = %q

[catalog]
access_token = "test"
default_playlist_id = %q

[download]
enabled = false
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		apiBind,
		cfg.Paths.APIToken,
		cfg.Catalog.DefaultPlaylistID,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
