package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tuneport/internal/config"
	"tuneport/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "job completed",
			event: notifications.EventJobCompleted,
			payload: notifications.Payload{
				"title":    "Bohemian Rhapsody",
				"artist":   "Queen",
				"playlist": "Road Trip",
				"quality":  "FLAC 24-bit/96kHz",
			},
			expectTitle:   "tuneport - Track Added",
			expectMessage: "Added: Queen - Bohemian Rhapsody\nPlaylist: Road Trip\nDownloaded: FLAC 24-bit/96kHz",
			expectTags:    "tuneport,completed",
		},
		{
			name:  "fallback required",
			event: notifications.EventFallbackRequired,
			payload: notifications.Payload{
				"title": "Mystery Jam",
				"jobId": "job-1",
			},
			expectTitle:    "tuneport - Confirm Match",
			expectMessage:  "No catalog match for Mystery Jam\nConfirm or reject job job-1",
			expectTags:     "tuneport,fallback,review",
			expectPriority: "high",
		},
		{
			name:  "job failed",
			event: notifications.EventJobFailed,
			payload: notifications.Payload{
				"title": "Song",
				"error": "Not authenticated with Spotify",
			},
			expectTitle:    "tuneport - Job Failed",
			expectMessage:  "Failed: Song\nNot authenticated with Spotify",
			expectTags:     "tuneport,error,alert",
			expectPriority: "high",
		},
		{
			name:          "download failed without detail",
			event:         notifications.EventDownloadFailed,
			payload:       notifications.Payload{},
			expectTitle:   "tuneport - Download Failed",
			expectMessage: "Added without download: Unknown track\nunknown error",
			expectTags:    "tuneport,download,error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for disabled event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobCompleted = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	disabled := []notifications.Event{
		notifications.EventJobCompleted,
		notifications.EventJobFailed,
		notifications.EventDownloadFailed,
		notifications.Event("unknown"),
	}
	for _, event := range disabled {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"title": "ignored"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error from rejected notification")
	}
}
