package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"tuneport/internal/services"
	"tuneport/internal/textutil"
)

const metadataStage = "metadata"

// Confidence grades how the artist/title split was obtained.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Track is resolved artist/title metadata for a source.
type Track struct {
	Title           string     `json:"title"`
	Artist          string     `json:"artist"`
	DurationSeconds int        `json:"durationSeconds,omitempty"`
	Source          string     `json:"source"`
	Confidence      Confidence `json:"confidence"`
}

// OEmbed is the subset of an oEmbed reply used here.
type OEmbed struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// OEmbedClient queries an oEmbed endpoint.
type OEmbedClient struct {
	endpoint   string
	httpClient *http.Client
}

// OEmbedOption configures an OEmbedClient.
type OEmbedOption func(*OEmbedClient)

// WithOEmbedHTTPClient overrides the default HTTP client.
func WithOEmbedHTTPClient(client *http.Client) OEmbedOption {
	return func(c *OEmbedClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewOEmbedClient builds a client for endpoint, e.g. https://www.youtube.com/oembed.
func NewOEmbedClient(endpoint string, timeout time.Duration, opts ...OEmbedOption) (*OEmbedClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("oembed endpoint required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &OEmbedClient{endpoint: endpoint, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Lookup fetches oEmbed data for sourceURL. A 404 or 401 reply (removed or
// private video) is returned as ErrNotFound.
func (c *OEmbedClient) Lookup(ctx context.Context, sourceURL string) (*OEmbed, error) {
	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse oembed endpoint: %w", err)
	}
	params := endpoint.Query()
	params.Set("url", sourceURL)
	params.Set("format", "json")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, metadataStage, "oembed", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, services.Wrap(services.ErrNotFound, metadataStage, "oembed", fmt.Sprintf("oembed returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, services.Wrap(services.ErrTransport, metadataStage, "oembed", fmt.Sprintf("oembed returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	var payload OEmbed
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransport, metadataStage, "oembed", "decode oembed response", err)
	}
	return &payload, nil
}

var (
	topicSuffix = regexp.MustCompile(`(?i)\s*-\s*topic$`)
	vevoSuffix  = regexp.MustCompile(`(?i)\s*vevo$`)
)

// CleanChannel strips auto-generated " - Topic" and "VEVO" channel
// suffixes, so "AdeleVEVO" becomes "Adele".
func CleanChannel(name string) string {
	name = topicSuffix.ReplaceAllString(strings.TrimSpace(name), "")
	name = vevoSuffix.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// FromOEmbed derives artist/title from an oEmbed reply. An "Artist - Title"
// video title wins; otherwise the cleaned channel name is the artist.
func FromOEmbed(o *OEmbed, source string) (Track, bool) {
	if o == nil {
		return Track{}, false
	}
	title := textutil.SanitizeTitle(o.Title)
	if title == "" {
		return Track{}, false
	}
	if parsed, ok := textutil.ParseArtistTitle(title); ok {
		return Track{Title: parsed.Title, Artist: parsed.Artist, Source: source, Confidence: ConfidenceHigh}, true
	}
	channel := CleanChannel(o.AuthorName)
	if channel == "" || strings.Contains(strings.ToLower(channel), "official") {
		return Track{}, false
	}
	confidence := ConfidenceLow
	if topicSuffix.MatchString(strings.TrimSpace(o.AuthorName)) {
		confidence = ConfidenceMedium
	}
	return Track{Title: title, Artist: channel, Source: source, Confidence: confidence}, true
}
