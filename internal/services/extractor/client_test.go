package extractor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tuneport/internal/services"
	"tuneport/internal/services/extractor"
)

func newClient(t *testing.T, handler http.HandlerFunc, opts ...extractor.Option) *extractor.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := extractor.New(server.URL, time.Second, opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestDownloadSendsSegmentsAndToken(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		var req extractor.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Format != "mp3" || len(req.Segments) != 1 || req.Segments[0].Start != 90 || req.Segments[0].End == nil || *req.Segments[0].End != 200 {
			t.Errorf("unexpected request: %#v", req)
		}
		_, _ = w.Write([]byte(`{"status":"ok","url":"https://x/file/abc","filename":"abc.mp3","quality":"MP3"}`))
	}, extractor.WithToken("secret"))

	end := 200
	resp, err := client.Download(context.Background(), extractor.Request{
		URL:      "https://www.youtube.com/watch?v=abc",
		Format:   "mp3",
		Segments: []extractor.Segment{{Start: 90, End: &end, Title: "Track 2"}},
	})
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if resp.URL != "https://x/file/abc" || resp.Filename != "abc.mp3" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestDownloadClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"detail":"Invalid token"}`, want: services.ErrAuthExpired},
		{name: "forbidden", status: http.StatusForbidden, want: services.ErrAuthExpired},
		{name: "throttled", status: http.StatusTooManyRequests, want: services.ErrRateLimited},
		{name: "bad format", status: http.StatusBadRequest, body: `{"detail":"Unsupported format"}`, want: services.ErrSourceUnavailable, message: "Unsupported format"},
		{name: "extraction error", status: http.StatusOK, body: `{"status":"error","error":"Video unavailable"}`, want: services.ErrSourceUnavailable, message: "Video unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.Download(context.Background(), extractor.Request{URL: "https://youtu.be/abc"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.message != "" {
				if got := services.UserMessage(err); got != tc.message {
					t.Fatalf("unexpected message: got %q want %q", got, tc.message)
				}
			}
		})
	}
}

func TestDownloadRequiresURL(t *testing.T) {
	client, err := extractor.New("http://127.0.0.1:1", time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Download(context.Background(), extractor.Request{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health returned error: %v", err)
	}
}
