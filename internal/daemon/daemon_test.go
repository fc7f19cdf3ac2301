package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tuneport/internal/api"
	"tuneport/internal/catalog"
	"tuneport/internal/config"
	"tuneport/internal/testsupport"
	"tuneport/internal/workflow"
)

type libraryStub struct {
	playlists []catalog.Playlist
	created   []string
}

func (l *libraryStub) Playlists(context.Context) ([]catalog.Playlist, error) {
	return l.playlists, nil
}

func (l *libraryStub) CreatePlaylist(_ context.Context, name, _ string, public bool) (catalog.Playlist, error) {
	l.created = append(l.created, name)
	return catalog.Playlist{ID: "new-" + name, Name: name, Public: public}, nil
}

func newTestDaemon(t *testing.T, cfg *config.Config, library PlaylistLibrary) *Daemon {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	engine := workflow.NewEngine(cfg, store, workflow.Dependencies{}, nil)
	mgr := workflow.NewManager(cfg, store, engine, nil)
	d, err := New(cfg, store, nil, mgr, library)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if d.APIAddress() == "" {
		t.Fatal("expected API to be listening")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other := newTestDaemon(t, cfg, nil)
	if err := other.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.APIAddress() != "" {
		t.Fatal("expected API to be closed")
	}
}

func TestAPIJobLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg, nil)
	srv := httptest.NewServer(d.api.server.Handler)
	defer srv.Close()

	var submitted api.JobStatus
	code := doJSON(t, srv, http.MethodPost, "/api/jobs", api.SubmitJobRequest{
		SourceURL:  "https://youtu.be/abc",
		PlaylistID: "pl-1",
		Title:      "Song",
	}, &submitted)
	if code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", code)
	}
	if submitted.JobID == "" || submitted.Status != "queued" || submitted.Progress != 0 {
		t.Fatalf("unexpected submission %+v", submitted)
	}

	var fetched api.JobStatus
	if code := doJSON(t, srv, http.MethodGet, "/api/jobs/"+submitted.JobID, nil, &fetched); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if fetched.JobID != submitted.JobID || fetched.CurrentStep == "" {
		t.Fatalf("unexpected job %+v", fetched)
	}

	var list api.JobListResponse
	if code := doJSON(t, srv, http.MethodGet, "/api/jobs?status=queued,failed", nil, &list); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(list.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(list.Jobs))
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown status filter", http.MethodGet, "/api/jobs?status=bogus", nil, http.StatusBadRequest},
		{"unknown job", http.MethodGet, "/api/jobs/missing", nil, http.StatusNotFound},
		{"missing source", http.MethodPost, "/api/jobs", api.SubmitJobRequest{PlaylistID: "pl-1"}, http.StatusBadRequest},
		{"reject queued job", http.MethodPost, "/api/jobs/" + submitted.JobID + "/reject", nil, http.StatusConflict},
		{"confirm queued job", http.MethodPost, "/api/jobs/" + submitted.JobID + "/confirm", api.ConfirmRequest{}, http.StatusConflict},
		{"remove active job", http.MethodDelete, "/api/jobs/" + submitted.JobID, nil, http.StatusConflict},
		{"clear queued jobs", http.MethodDelete, "/api/jobs?status=queued", nil, http.StatusBadRequest},
		{"clear completed jobs", http.MethodDelete, "/api/jobs?status=completed", nil, http.StatusOK},
		{"wrong method", http.MethodPut, "/api/status", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := doJSON(t, srv, tt.method, tt.path, tt.body, nil); code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, code)
			}
		})
	}

	var status api.DaemonStatus
	if code := doJSON(t, srv, http.MethodGet, "/api/status", nil, &status); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if status.Workflow.JobStats["queued"] != 1 {
		t.Fatalf("unexpected job stats %v", status.Workflow.JobStats)
	}
	if status.JobsDBPath != cfg.DatabasePath() {
		t.Fatalf("unexpected db path %q", status.JobsDBPath)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret"
	d := newTestDaemon(t, cfg, nil)
	srv := httptest.NewServer(d.api.server.Handler)
	defer srv.Close()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			if resp.Header.Get("X-Request-ID") == "" {
				t.Fatal("expected a request id header")
			}
		})
	}
}

func TestAPIPlaylists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	library := &libraryStub{playlists: []catalog.Playlist{{ID: "pl-1", Name: "Favorites", Tracks: 12}}}
	d := newTestDaemon(t, cfg, library)
	srv := httptest.NewServer(d.api.server.Handler)
	defer srv.Close()

	var list api.PlaylistListResponse
	if code := doJSON(t, srv, http.MethodGet, "/api/playlists", nil, &list); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(list.Playlists) != 1 || list.Playlists[0].Tracks != 12 {
		t.Fatalf("unexpected playlists %+v", list.Playlists)
	}

	var created catalog.Playlist
	code := doJSON(t, srv, http.MethodPost, "/api/playlists", api.CreatePlaylistRequest{Name: "Road Trip", Public: true}, &created)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if created.ID != "new-Road Trip" || !created.Public {
		t.Fatalf("unexpected playlist %+v", created)
	}
	if code := doJSON(t, srv, http.MethodPost, "/api/playlists", api.CreatePlaylistRequest{Name: "  "}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", code)
	}
	if len(library.created) != 1 {
		t.Fatalf("expected one create call, got %v", library.created)
	}
}

func TestAPIPlaylistsWithoutLibrary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg, nil)
	srv := httptest.NewServer(d.api.server.Handler)
	defer srv.Close()

	if code := doJSON(t, srv, http.MethodGet, "/api/playlists", nil, nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
}
