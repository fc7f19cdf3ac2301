package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tuneport/internal/config"
	"tuneport/internal/deps"
	"tuneport/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_Empty(t *testing.T) {
	if result := CheckDirectoryAccess("test", " "); result.Passed || result.Detail != "not configured" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestCheckExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckExtractor(context.Background(), "Extractor", srv.URL, "")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "healthy") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckExtractor_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := CheckExtractor(context.Background(), "Extractor", srv.URL, "")
	if result.Passed {
		t.Fatal("expected failure for 503")
	}
}

func TestCheckExtractor_MissingURL(t *testing.T) {
	result := CheckExtractor(context.Background(), "Extractor", "", "")
	if result.Passed || result.Detail != "missing url" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestCheckCatalog(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user != "client" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		passed bool
		detail string
	}{
		{
			name:   "static token",
			mutate: func(cfg *config.Config) {},
			passed: true,
			detail: "static access token",
		},
		{
			name:   "no credentials",
			mutate: func(cfg *config.Config) { cfg.Catalog.AccessToken = "" },
			detail: "no credentials configured",
		},
		{
			name: "refresh ok",
			mutate: func(cfg *config.Config) {
				cfg.Catalog.ClientID = "client"
				cfg.Catalog.ClientSecret = "secret"
				cfg.Catalog.RefreshToken = "refresh"
				cfg.Catalog.TokenURL = tokenSrv.URL
			},
			passed: true,
			detail: "token refresh ok",
		},
		{
			name: "refresh rejected",
			mutate: func(cfg *config.Config) {
				cfg.Catalog.ClientID = "other"
				cfg.Catalog.ClientSecret = "secret"
				cfg.Catalog.RefreshToken = "refresh"
				cfg.Catalog.TokenURL = tokenSrv.URL
			},
			detail: "token refresh failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			tt.mutate(cfg)
			result := CheckCatalog(context.Background(), cfg)
			if result.Passed != tt.passed {
				t.Fatalf("passed = %v, want %v (%s)", result.Passed, tt.passed, result.Detail)
			}
			if !strings.Contains(result.Detail, tt.detail) {
				t.Fatalf("detail %q does not contain %q", result.Detail, tt.detail)
			}
		})
	}
}

func TestCheckLossless(t *testing.T) {
	if result := CheckLossless(config.Lossless{Endpoint: "http://lossless", Sources: []string{"qobuz"}}); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result := CheckLossless(config.Lossless{Sources: []string{"qobuz"}}); result.Passed {
		t.Fatal("expected failure without endpoint")
	}
	if result := CheckLossless(config.Lossless{Endpoint: "http://lossless"}); result.Passed {
		t.Fatal("expected failure without sources")
	}
}

func TestFromDependency(t *testing.T) {
	available := FromDependency(deps.Status{Requirement: deps.Requirement{Name: "a"}, Available: true, Path: "/bin/a"})
	if !available.Passed || available.Detail != "/bin/a" {
		t.Fatalf("unexpected available result: %#v", available)
	}
	optional := FromDependency(deps.Status{Requirement: deps.Requirement{Name: "b", Optional: true}, Detail: "missing"})
	if !optional.Passed || !strings.HasSuffix(optional.Detail, "(optional)") {
		t.Fatalf("unexpected optional result: %#v", optional)
	}
	required := FromDependency(deps.Status{Requirement: deps.Requirement{Name: "c"}, Detail: "missing"})
	if required.Passed {
		t.Fatalf("expected required dependency to fail: %#v", required)
	}
}

func TestRunAll(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithExtractor(healthy.URL), testsupport.WithStubbedBinaries("yt-dlp", "ffmpeg"))
	cfg.Download.LocalYtDlpEnabled = true
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := []string{"State directory", "Log directory", "Catalog credentials", "Extractor", "Download directory", "yt-dlp", "FFmpeg"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected checks: %v", names)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %#v", failed)
	}
}

func TestRunAllSkipsDownloadsWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Download.Enabled = false
	results := RunAll(context.Background(), cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 2 {
		t.Fatalf("expected missing state and log directories to fail, got %#v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results")
	}
}
