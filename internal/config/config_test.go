package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tuneport/internal/config"
)

func setCatalogEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SPOTIFY_CLIENT_ID", "client")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "refresh")
	t.Setenv("SPOTIFY_ACCESS_TOKEN", "")
}

func TestLoadDefaultsWithEnvCredentials(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	setCatalogEnv(t)

	cfg, path, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected no config file, got %q", path)
	}
	if cfg.Catalog.ClientID != "client" {
		t.Fatalf("unexpected client id: got %q want %q", cfg.Catalog.ClientID, "client")
	}
	wantState := filepath.Join(tempHome, ".local", "share", "tuneport")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Jobs.FallbackPolicy != config.FallbackPolicyAuto {
		t.Fatalf("unexpected fallback policy: got %q", cfg.Jobs.FallbackPolicy)
	}
	if got := cfg.EffectiveThreshold(); got != 0.5 {
		t.Fatalf("unexpected threshold: got %v want 0.5", got)
	}
}

func TestLoadRequiresCatalogCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "")
	t.Setenv("SPOTIFY_ACCESS_TOKEN", "")

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if !strings.Contains(err.Error(), "catalog credentials are required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadFileOverridesAndNormalizes(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	setCatalogEnv(t)

	path := filepath.Join(tempHome, "custom.toml")
	content := `
[paths]
state_dir = "~/state"

[matching]
strict = true

[download]
mode = "MISSING_ONLY"
format = "MP3"

[lossless]
enabled = true
endpoint = "http://lossless.local/"
sources = ["Tidal", "qobuz"]
preferred_source = "qobuz"

[extractor]
url = "http://extractor.local/"
mirrors = ["http://mirror-a.local", "http://extractor.local", "http://mirror-a.local/"]

[jobs]
fallback_policy = "ask"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: path=%q exists=%v", resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if got := cfg.EffectiveThreshold(); got != config.StrictThreshold {
		t.Fatalf("unexpected threshold: got %v want %v", got, config.StrictThreshold)
	}
	if cfg.Download.Mode != config.DownloadModeMissingOnly || cfg.Download.Format != "mp3" {
		t.Fatalf("unexpected download settings: %+v", cfg.Download)
	}
	if cfg.Lossless.Endpoint != "http://lossless.local" {
		t.Fatalf("unexpected lossless endpoint: %q", cfg.Lossless.Endpoint)
	}
	if strings.Join(cfg.Lossless.Sources, ",") != "tidal,qobuz" {
		t.Fatalf("unexpected lossless sources: %v", cfg.Lossless.Sources)
	}
	if len(cfg.Extractor.Mirrors) != 1 || cfg.Extractor.Mirrors[0] != "http://mirror-a.local" {
		t.Fatalf("unexpected mirrors: %v", cfg.Extractor.Mirrors)
	}
	if cfg.Jobs.FallbackPolicy != config.FallbackPolicyAsk {
		t.Fatalf("unexpected fallback policy: %q", cfg.Jobs.FallbackPolicy)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "threshold out of range",
			mutate: func(c *config.Config) { c.Matching.AutoAddThreshold = 1.5 },
			want:   "matching.auto_add_threshold",
		},
		{
			name:   "unknown download mode",
			mutate: func(c *config.Config) { c.Download.Mode = "sometimes" },
			want:   "download.mode",
		},
		{
			name:   "unknown format",
			mutate: func(c *config.Config) { c.Download.Format = "flac" },
			want:   "download.format",
		},
		{
			name:   "unknown policy",
			mutate: func(c *config.Config) { c.Jobs.FallbackPolicy = "maybe" },
			want:   "jobs.fallback_policy",
		},
		{
			name:   "zero workers",
			mutate: func(c *config.Config) { c.Jobs.Workers = 0 },
			want:   "jobs.workers",
		},
		{
			name: "preferred source not listed",
			mutate: func(c *config.Config) {
				c.Lossless.Enabled = true
				c.Lossless.PreferredSource = "napster"
			},
			want: "lossless.preferred_source",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Catalog.AccessToken = "static"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: got %q want fragment %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleGeneratesToken(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	setCatalogEnv(t)

	path := filepath.Join(tempHome, "config", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if strings.Contains(string(data), "REPLACE_WITH_API_TOKEN") {
		t.Fatal("expected placeholder token to be replaced")
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if len(cfg.Paths.APIToken) != 32 {
		t.Fatalf("unexpected api token length: %d", len(cfg.Paths.APIToken))
	}
}
