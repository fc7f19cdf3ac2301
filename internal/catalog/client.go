package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tuneport/internal/logging"
	"tuneport/internal/matching"
	"tuneport/internal/services"
)

const (
	defaultRetryAfter        = time.Second
	defaultRateLimitRetries  = 3
	playlistPageFields       = "items(track(uri)),total"
	maxErrorBodyBytes        = 4096
	addTrackFailureMessage   = "Failed to add track"
	catalogStage             = "catalog"
	defaultSearchResultLimit = 10
)

// TrackPage is one page of a playlist's track URIs. Returned counts the raw
// items on the page, including entries without a playable track.
type TrackPage struct {
	URIs     []string
	Total    int
	Returned int
}

// Client provides access to the Spotify Web API endpoints used by jobs.
type Client struct {
	baseURL    string
	market     string
	maxRetries int
	httpClient *http.Client
	logger     *slog.Logger
}

var _ matching.Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. The client is expected
// to attach authorization, e.g. one built with NewHTTPClient.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMarket restricts searches to an ISO 3166-1 market.
func WithMarket(market string) Option {
	return func(c *Client) {
		c.market = strings.ToUpper(strings.TrimSpace(market))
	}
}

// WithMaxRateLimitRetries bounds how many times a throttled request is repeated.
func WithMaxRateLimitRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithLogger sets the logger used for throttling diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "catalog")
	}
}

// New creates a catalog client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: defaultRateLimitRetries,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logging.NewComponentLogger(nil, "catalog"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type searchResponse struct {
	Tracks struct {
		Items []trackObject `json:"items"`
	} `json:"tracks"`
}

type trackObject struct {
	ID      string `json:"id"`
	URI     string `json:"uri"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	DurationMs int `json:"duration_ms"`
}

func (t trackObject) candidate() matching.Candidate {
	names := make([]string, 0, len(t.Artists))
	for _, artist := range t.Artists {
		names = append(names, artist.Name)
	}
	return matching.Candidate{
		ExternalID:  t.ID,
		URI:         t.URI,
		Name:        t.Name,
		ArtistNames: names,
		DurationMs:  t.DurationMs,
	}
}

// Search runs a track search and returns the hits in catalog order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]matching.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if limit <= 0 {
		limit = defaultSearchResultLimit
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))
	if c.market != "" {
		params.Set("market", c.market)
	}

	var payload searchResponse
	if err := c.doJSON(ctx, "search", http.MethodGet, "/search", params, nil, &payload); err != nil {
		return nil, err
	}
	candidates := make([]matching.Candidate, 0, len(payload.Tracks.Items))
	for _, item := range payload.Tracks.Items {
		if item.URI == "" {
			continue
		}
		candidates = append(candidates, item.candidate())
	}
	return candidates, nil
}

type playlistTracksResponse struct {
	Items []struct {
		Track *struct {
			URI string `json:"uri"`
		} `json:"track"`
	} `json:"items"`
	Total int `json:"total"`
}

// PlaylistTracks reads one page of track URIs from a playlist.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, offset, limit int) (TrackPage, error) {
	playlistID = strings.TrimSpace(playlistID)
	if playlistID == "" {
		return TrackPage{}, errors.New("playlist id must not be empty")
	}
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", playlistPageFields)

	var payload playlistTracksResponse
	path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	if err := c.doJSON(ctx, "playlist tracks", http.MethodGet, path, params, nil, &payload); err != nil {
		return TrackPage{}, err
	}
	page := TrackPage{
		URIs:     make([]string, 0, len(payload.Items)),
		Total:    payload.Total,
		Returned: len(payload.Items),
	}
	for _, item := range payload.Items {
		// Local files and removed tracks come back with a null track.
		if item.Track == nil || item.Track.URI == "" {
			continue
		}
		page.URIs = append(page.URIs, item.Track.URI)
	}
	return page, nil
}

type addTracksRequest struct {
	URIs     []string `json:"uris"`
	Position int      `json:"position"`
}

// AddTrack inserts uri into the playlist at position (0 is the top).
func (c *Client) AddTrack(ctx context.Context, playlistID, uri string, position int) error {
	playlistID = strings.TrimSpace(playlistID)
	uri = strings.TrimSpace(uri)
	if playlistID == "" || uri == "" {
		return errors.New("playlist id and track uri required")
	}
	body, err := json.Marshal(addTracksRequest{URIs: []string{uri}, Position: position})
	if err != nil {
		return fmt.Errorf("encode add track request: %w", err)
	}
	path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	err = c.doJSON(ctx, "add track", http.MethodPost, path, nil, body, nil)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && !errors.Is(err, services.ErrAuthExpired) {
		return services.WithMessage(err, fmt.Sprintf("%s: %s", addTrackFailureMessage, apiErr.Message))
	}
	return err
}

// APIError is a non-success response from the Web API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

func (c *Client) doJSON(ctx context.Context, operation, method, path string, params url.Values, body []byte, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse catalog url: %w", err)
	}
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}

	for attempt := 0; ; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		requestStart := time.Now()
		resp, err := c.httpClient.Do(req)
		latency := time.Since(requestStart)
		if err != nil {
			return classifyTransportError(operation, latency, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			drain(resp)
			if attempt >= c.maxRetries {
				return services.Wrap(services.ErrRateLimited, catalogStage, operation,
					fmt.Sprintf("throttled after %d retries (latency=%v)", attempt, latency), nil)
			}
			logging.WithContext(ctx, c.logger).Debug("catalog throttled, waiting",
				logging.String(logging.FieldEventType, "catalog_rate_limited"),
				logging.String("operation", operation),
				logging.Duration("retry_after", wait),
				logging.Int("attempt", attempt+1),
			)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		err = c.decode(operation, resp, latency, out)
		resp.Body.Close()
		return err
	}
}

func (c *Client) decode(operation string, resp *http.Response, latency time.Duration, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(resp)}
		marker := services.ErrTransport
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			marker = services.ErrAuthExpired
		case http.StatusNotFound:
			marker = services.ErrNotFound
		case http.StatusBadRequest, http.StatusForbidden:
			marker = services.ErrValidation
		}
		return services.Wrap(marker, catalogStage, operation,
			fmt.Sprintf("catalog returned %d (latency=%v)", resp.StatusCode, latency), apiErr)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransport, catalogStage, operation, "decode catalog response", err)
	}
	return nil
}

func classifyTransportError(operation string, latency time.Duration, err error) error {
	msg := fmt.Sprintf("execute request (latency=%v)", latency)
	switch {
	case isTokenError(err):
		return services.Wrap(services.ErrAuthExpired, catalogStage, operation, "refresh access token", err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, catalogStage, operation, msg, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, catalogStage, operation, msg, err)
	}
	return services.Wrap(services.ErrTransport, catalogStage, operation, msg, err)
}

func errorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return http.StatusText(resp.StatusCode)
	}
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && strings.TrimSpace(payload.Error.Message) != "" {
		return strings.TrimSpace(payload.Error.Message)
	}
	return http.StatusText(resp.StatusCode)
}

func retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	resp.Body.Close()
}
