package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tuneport/internal/config"
)

const userAgent = "tuneport/0.1.0"

// Event names a workflow milestone.
type Event string

const (
	EventJobCompleted     Event = "job_completed"
	EventFallbackRequired Event = "fallback_required"
	EventJobFailed        Event = "job_failed"
	EventDownloadFailed   Event = "download_failed"
	EventTest             Event = "test"
)

// Payload carries event fields. Keys used: title, artist, playlist, jobId,
// error, quality.
type Payload map[string]string

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted:     cfg.Notifications.JobCompleted,
			EventFallbackRequired: cfg.Notifications.FallbackRequest,
			EventJobFailed:        cfg.Notifications.Errors,
			EventDownloadFailed:   cfg.Notifications.Errors,
			EventTest:             true,
		},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, fields Payload) error {
	if !n.enabled[event] {
		return nil
	}
	data, ok := format(event, fields)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func format(event Event, fields Payload) (payload, bool) {
	get := func(key string) string { return strings.TrimSpace(fields[key]) }
	track := get("title")
	if artist := get("artist"); artist != "" && track != "" {
		track = artist + " - " + track
	}
	if track == "" {
		track = "Unknown track"
	}

	switch event {
	case EventJobCompleted:
		message := "Added: " + track
		if playlist := get("playlist"); playlist != "" {
			message += "\nPlaylist: " + playlist
		}
		if quality := get("quality"); quality != "" {
			message += "\nDownloaded: " + quality
		}
		return payload{
			title:   "tuneport - Track Added",
			message: message,
			tags:    []string{"tuneport", "completed"},
		}, true
	case EventFallbackRequired:
		return payload{
			title:    "tuneport - Confirm Match",
			message:  fmt.Sprintf("No catalog match for %s\nConfirm or reject job %s", track, get("jobId")),
			tags:     []string{"tuneport", "fallback", "review"},
			priority: "high",
		}, true
	case EventJobFailed:
		return payload{
			title:    "tuneport - Job Failed",
			message:  fmt.Sprintf("Failed: %s\n%s", track, errorText(get("error"))),
			tags:     []string{"tuneport", "error", "alert"},
			priority: "high",
		}, true
	case EventDownloadFailed:
		return payload{
			title:   "tuneport - Download Failed",
			message: fmt.Sprintf("Added without download: %s\n%s", track, errorText(get("error"))),
			tags:    []string{"tuneport", "download", "error"},
		}, true
	case EventTest:
		return payload{
			title:    "tuneport - Test",
			message:  "Notification system test",
			tags:     []string{"tuneport", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func errorText(value string) string {
	if value == "" {
		return "unknown error"
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
