package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tuneport/internal/catalog"
)

// ErrAPIUnavailable reports that no daemon API is configured or reachable.
var ErrAPIUnavailable = errors.New("daemon API unavailable")

// StatusError is a non-2xx daemon response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned status %d", e.Status)
	}
	return fmt.Sprintf("daemon returned status %d: %s", e.Status, e.Message)
}

// Client talks to the daemon HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for bind ("host:port" or a URL). An empty bind
// returns a nil client whose methods report ErrAPIUnavailable.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Status fetches daemon and workflow status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// ListJobs returns jobs, optionally filtered by status.
func (c *Client) ListJobs(ctx context.Context, statuses ...string) ([]JobStatus, error) {
	values := url.Values{}
	for _, status := range statuses {
		if s := strings.TrimSpace(status); s != "" {
			values.Add("status", s)
		}
	}
	var out JobListResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs", values, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Submit queues a job.
func (c *Client) Submit(ctx context.Context, req SubmitJobRequest) (JobStatus, error) {
	var out JobStatus
	err := c.do(ctx, http.MethodPost, "/api/jobs", nil, req, &out)
	return out, err
}

// Job fetches one job's status.
func (c *Client) Job(ctx context.Context, id string) (JobStatus, error) {
	var out JobStatus
	err := c.do(ctx, http.MethodGet, jobPath(id), nil, nil, &out)
	return out, err
}

// Confirm resumes a job parked at the fallback checkpoint.
func (c *Client) Confirm(ctx context.Context, id string, req ConfirmRequest) (JobStatus, error) {
	var out JobStatus
	err := c.do(ctx, http.MethodPost, jobPath(id)+"/confirm", nil, req, &out)
	return out, err
}

// Reject fails a job parked at the fallback checkpoint.
func (c *Client) Reject(ctx context.Context, id string) (JobStatus, error) {
	var out JobStatus
	err := c.do(ctx, http.MethodPost, jobPath(id)+"/reject", nil, nil, &out)
	return out, err
}

// RemoveJob deletes a finished job.
func (c *Client) RemoveJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, jobPath(id), nil, nil, nil)
}

// ClearJobs removes every job in status (completed or failed).
func (c *Client) ClearJobs(ctx context.Context, status string) (int64, error) {
	values := url.Values{}
	values.Set("status", status)
	var out ClearResponse
	if err := c.do(ctx, http.MethodDelete, "/api/jobs", values, nil, &out); err != nil {
		return 0, err
	}
	return out.Removed, nil
}

// Playlists lists the account's playlists.
func (c *Client) Playlists(ctx context.Context) ([]catalog.Playlist, error) {
	var out PlaylistListResponse
	if err := c.do(ctx, http.MethodGet, "/api/playlists", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Playlists, nil
}

// CreatePlaylist creates a playlist on the account.
func (c *Client) CreatePlaylist(ctx context.Context, req CreatePlaylistRequest) (catalog.Playlist, error) {
	var out catalog.Playlist
	err := c.do(ctx, http.MethodPost, "/api/playlists", nil, req, &out)
	return out, err
}

func jobPath(id string) string {
	return "/api/jobs/" + url.PathEscape(strings.TrimSpace(id))
}

func (c *Client) do(ctx context.Context, method, path string, values url.Values, body, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: values.Encode()})

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
		return &StatusError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
