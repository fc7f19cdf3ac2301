package lossless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tuneport/internal/services"
)

const losslessStage = "lossless"

// SearchRequest asks one source for a track.
type SearchRequest struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Source string `json:"source"`
}

// SearchResponse is the service reply. Title and Artist describe what the
// source actually found and may differ from the request.
type SearchResponse struct {
	Found      bool   `json:"found"`
	URL        string `json:"url,omitempty"`
	Filename   string `json:"filename,omitempty"`
	Quality    string `json:"quality,omitempty"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	BitDepth   int    `json:"bitDepth,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
}

// Searcher is the lossless lookup used by the download chain.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// Client talks to the lossless search service.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

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

// New creates a lossless search client.
func New(endpoint string, timeout time.Duration, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("lossless endpoint required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search asks the service for a track on one source.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Artist = strings.TrimSpace(req.Artist)
	req.Source = strings.ToLower(strings.TrimSpace(req.Source))
	if req.Title == "" || req.Source == "" {
		return nil, services.Wrap(services.ErrValidation, losslessStage, "search", "title and source required", nil)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode lossless request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, losslessStage, req.Source, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrSourceUnavailable
		if resp.StatusCode == http.StatusTooManyRequests {
			marker = services.ErrRateLimited
		}
		return nil, services.Wrap(marker, losslessStage, req.Source, fmt.Sprintf("lossless search returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransport, losslessStage, req.Source, "decode lossless response", err)
	}
	return &payload, nil
}
