package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tuneport/internal/services"
)

const (
	extractorStage    = "extractor"
	statusOK          = "ok"
	maxErrorBodyBytes = 4096
)

// Segment is a time range of the source, in seconds. A nil End runs to the
// end of the media.
type Segment struct {
	Start int    `json:"start"`
	End   *int   `json:"end,omitempty"`
	Title string `json:"title,omitempty"`
}

// Request describes one extraction.
type Request struct {
	URL         string    `json:"url"`
	Format      string    `json:"format"`
	Segments    []Segment `json:"segments,omitempty"`
	SegmentMode string    `json:"segment_mode,omitempty"`
	Title       string    `json:"title,omitempty"`
	Artist      string    `json:"artist,omitempty"`
}

// Response is the extractor reply.
type Response struct {
	Status   string `json:"status"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Quality  string `json:"quality,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Downloader is the extraction call used by the download chain.
type Downloader interface {
	Download(ctx context.Context, req Request) (*Response, error)
	BaseURL() string
}

// Client talks to one extractor instance.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Downloader = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent with each request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New creates a client for the extractor at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("extractor base url required")
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL returns the instance root, used to label attempts in logs.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Download requests an extraction. A reply with status "error" is returned
// as ErrSourceUnavailable carrying the service's message.
func (c *Client) Download(ctx context.Context, req Request) (*Response, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return nil, services.Wrap(services.ErrValidation, extractorStage, "download", "source url required", nil)
	}
	if req.Format == "" {
		req.Format = "best"
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode extractor request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/download", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	latency := time.Since(requestStart)
	if err != nil {
		marker := services.ErrTransport
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, extractorStage, "download", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, extractorStage, "download", "read response", err)
	}
	var payload Response
	decodeErr := json.Unmarshal(data, &payload)

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrAuthExpired, extractorStage, "download",
			fmt.Sprintf("extractor rejected credentials (%d)", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, services.Wrap(services.ErrRateLimited, extractorStage, "download",
			fmt.Sprintf("extractor returned %d (latency=%v)", resp.StatusCode, latency), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.WithMessage(
			services.Wrap(services.ErrSourceUnavailable, extractorStage, "download",
				fmt.Sprintf("extractor returned %d (latency=%v)", resp.StatusCode, latency), nil),
			failureMessage(payload, data, resp.StatusCode))
	case decodeErr != nil:
		return nil, services.Wrap(services.ErrTransport, extractorStage, "download", "decode extractor response", decodeErr)
	case payload.Status != statusOK || strings.TrimSpace(payload.URL) == "":
		return nil, services.WithMessage(
			services.Wrap(services.ErrSourceUnavailable, extractorStage, "download", "extraction failed", nil),
			failureMessage(payload, data, resp.StatusCode))
	}
	return &payload, nil
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, extractorStage, "health", "execute request", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrSourceUnavailable, extractorStage, "health", fmt.Sprintf("extractor health returned %d", resp.StatusCode), nil)
	}
	return nil
}

func failureMessage(payload Response, raw []byte, status int) string {
	if msg := strings.TrimSpace(payload.Error); msg != "" {
		return msg
	}
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &detail) == nil && strings.TrimSpace(detail.Detail) != "" {
		return strings.TrimSpace(detail.Detail)
	}
	return fmt.Sprintf("yt-dlp request failed: %d", status)
}
