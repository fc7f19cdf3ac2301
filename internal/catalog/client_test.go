package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"tuneport/internal/catalog"
	"tuneport/internal/config"
	"tuneport/internal/matching"
	"tuneport/internal/services"
)

func newClient(t *testing.T, url string, opts ...catalog.Option) *catalog.Client {
	t.Helper()
	client, err := catalog.New(url, opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := catalog.New("  "); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestSearchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("q") != "track:Bohemian Rhapsody artist:Queen" || query.Get("type") != "track" || query.Get("limit") != "5" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if query.Get("market") != "GB" {
			t.Errorf("expected market GB, got %q", query.Get("market"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tracks":{"items":[
			{"id":"abc","uri":"spotify:track:abc","name":"Bohemian Rhapsody","artists":[{"name":"Queen"}],"duration_ms":354000},
			{"id":"","uri":"","name":"broken"}
		]}}`))
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server.URL+"/", catalog.WithMarket("gb"))
	results, err := client.Search(context.Background(), "track:Bohemian Rhapsody artist:Queen", 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(results))
	}
	got := results[0]
	if got.URI != "spotify:track:abc" || got.Name != "Bohemian Rhapsody" || got.DurationMs != 354000 {
		t.Fatalf("unexpected candidate: %#v", got)
	}
	if len(got.ArtistNames) != 1 || got.ArtistNames[0] != "Queen" {
		t.Fatalf("unexpected artists: %v", got.ArtistNames)
	}
}

func TestSearchRetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"tracks":{"items":[{"id":"x","uri":"spotify:track:x","name":"Song","artists":[]}]}}`))
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server.URL)
	results, err := client.Search(context.Background(), "Song", 10)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected result after retry, got %d", len(results))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSearchGivesUpAfterRetryBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server.URL, catalog.WithMaxRateLimitRetries(2))
	_, err := client.Search(context.Background(), "Song", 10)
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected initial call plus 2 retries, got %d", calls.Load())
	}
}

func TestSearchClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: services.ErrAuthExpired},
		{name: "server error", status: http.StatusBadGateway, want: services.ErrTransport},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"status":0,"message":"nope"}}`))
			}))
			t.Cleanup(server.Close)

			client := newClient(t, server.URL)
			_, err := client.Search(context.Background(), "Song", 10)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	client := newClient(t, "https://example.com")
	if _, err := client.Search(context.Background(), "  ", 10); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestPlaylistTracksSkipsNullTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/playlists/pl1/tracks" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("offset") != "100" || query.Get("limit") != "100" || query.Get("fields") != "items(track(uri)),total" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"items":[{"track":{"uri":"spotify:track:a"}},{"track":null}],"total":150}`))
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server.URL)
	page, err := client.PlaylistTracks(context.Background(), "pl1", 100, 100)
	if err != nil {
		t.Fatalf("PlaylistTracks returned error: %v", err)
	}
	if page.Total != 150 || len(page.URIs) != 1 || page.URIs[0] != "spotify:track:a" {
		t.Fatalf("unexpected page: %#v", page)
	}
}

func TestAddTrackPostsAtTop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/playlists/pl1/tracks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			URIs     []string `json:"uris"`
			Position int      `json:"position"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body.URIs) != 1 || body.URIs[0] != "spotify:track:abc" || body.Position != 0 {
			t.Errorf("unexpected body: %#v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"snapshot_id":"snap"}`))
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server.URL)
	if err := client.AddTrack(context.Background(), "pl1", "spotify:track:abc", 0); err != nil {
		t.Fatalf("AddTrack returned error: %v", err)
	}
}

func TestAddTrackFailureMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"status":400,"message":"Invalid base62 id"}}`))
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server.URL)
	err := client.AddTrack(context.Background(), "pl1", "spotify:track:bad", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := services.UserMessage(err); got != "Failed to add track: Invalid base62 id" {
		t.Fatalf("unexpected user message: %q", got)
	}
}

func TestNewTokenSourcePrefersRefreshToken(t *testing.T) {
	var refreshed atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshed.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "refresh" {
			t.Errorf("unexpected token request: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokenServer.Close)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fresh" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_, _ = w.Write([]byte(`{"tracks":{"items":[]}}`))
	}))
	t.Cleanup(api.Close)

	cfg := config.Default()
	cfg.Catalog.BaseURL = api.URL
	cfg.Catalog.TokenURL = tokenServer.URL
	cfg.Catalog.ClientID = "client"
	cfg.Catalog.ClientSecret = "secret"
	cfg.Catalog.RefreshToken = "refresh"
	cfg.Catalog.AccessToken = "stale"

	client, _, err := catalog.NewFromConfig(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := client.Search(context.Background(), "song", 1); err != nil {
			t.Fatalf("Search returned error: %v", err)
		}
	}
	if refreshed.Load() != 1 {
		t.Fatalf("expected a single token refresh, got %d", refreshed.Load())
	}
}

func TestNewTokenSourceRefreshFailureIsAuthExpired(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	t.Cleanup(tokenServer.Close)

	cfg := config.Default()
	cfg.Catalog.BaseURL = "http://127.0.0.1:1"
	cfg.Catalog.TokenURL = tokenServer.URL
	cfg.Catalog.ClientID = "client"
	cfg.Catalog.ClientSecret = "secret"
	cfg.Catalog.RefreshToken = "revoked"

	client, _, err := catalog.NewFromConfig(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	_, err = client.Search(context.Background(), "song", 1)
	if !errors.Is(err, services.ErrAuthExpired) {
		t.Fatalf("expected auth expired, got %v", err)
	}
}

func TestNewTokenSourceRequiresCredentials(t *testing.T) {
	if _, err := catalog.NewTokenSource(context.Background(), config.Catalog{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[int]string{
		0:      "0:00",
		59000:  "0:59",
		354000: "5:54",
		605999: "10:05",
	}
	for ms, want := range tests {
		if got := catalog.FormatDuration(ms); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", ms, got, want)
		}
	}
}

func TestLibraryPlaylistsAndCreate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "50" {
			t.Errorf("expected limit=50, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"pl1","name":"Road Trip","public":true,"owner":{"display_name":"sam"},"tracks":{"total":12}}],"total":1}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"user-1","display_name":"sam"}`))
	})
	mux.HandleFunc("/users/user-1/playlists", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["name"] != "Fresh Finds" {
			t.Errorf("unexpected body: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pl2","name":"Fresh Finds","public":false,"owner":{"display_name":"sam"},"tracks":{"total":0}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	library := catalog.NewLibrary(server.Client(), server.URL)
	playlists, err := library.Playlists(context.Background())
	if err != nil {
		t.Fatalf("Playlists returned error: %v", err)
	}
	if len(playlists) != 1 || playlists[0].ID != "pl1" || playlists[0].Tracks != 12 || playlists[0].Owner != "sam" {
		t.Fatalf("unexpected playlists: %#v", playlists)
	}

	created, err := library.CreatePlaylist(context.Background(), "Fresh Finds", "added by tuneport", false)
	if err != nil {
		t.Fatalf("CreatePlaylist returned error: %v", err)
	}
	if created.ID != "pl2" || created.Public {
		t.Fatalf("unexpected playlist: %#v", created)
	}

	if _, err := library.CreatePlaylist(context.Background(), " ", "", false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	got := catalog.DisplayName(matching.Candidate{Name: "Stay", ArtistNames: []string{"The Kid LAROI", "Justin Bieber"}})
	if got != "The Kid LAROI, Justin Bieber - Stay" {
		t.Fatalf("unexpected display name %q", got)
	}
}
