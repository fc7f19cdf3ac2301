package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tuneport/internal/services"
)

// Page is the metadata published in a watch page's meta tags.
type Page struct {
	Title           string `json:"title"`
	Channel         string `json:"channel"`
	DurationSeconds int    `json:"durationSeconds"`
	Description     string `json:"description"`
}

// PageScraper reads watch-page meta tags.
type PageScraper struct {
	httpClient *http.Client
	userAgent  string
	watchBase  string
}

// ScraperOption configures a PageScraper.
type ScraperOption func(*PageScraper)

// WithWatchBase overrides the URL prefix video ids are appended to.
func WithWatchBase(base string) ScraperOption {
	return func(s *PageScraper) {
		if base = strings.TrimSpace(base); base != "" {
			s.watchBase = base
		}
	}
}

// NewPageScraper builds a scraper. A nil client gets one bounded by timeout.
func NewPageScraper(client *http.Client, timeout time.Duration, opts ...ScraperOption) *PageScraper {
	if client == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	scraper := &PageScraper{
		httpClient: client,
		userAgent:  "Mozilla/5.0 (compatible; tuneport)",
		watchBase:  "https://www.youtube.com/watch?v=",
	}
	for _, opt := range opts {
		opt(scraper)
	}
	return scraper
}

// ScrapeVideo scrapes the watch page of video id.
func (s *PageScraper) ScrapeVideo(ctx context.Context, id string) (*Page, error) {
	return s.Scrape(ctx, s.watchBase+url.QueryEscape(id))
}

// Scrape fetches pageURL and extracts title, channel, duration and
// description.
func (s *PageScraper) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "en")

	requestStart := time.Now()
	resp, err := s.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, metadataStage, "scrape", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, services.Wrap(services.ErrNotFound, metadataStage, "scrape", "page not found", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransport, metadataStage, "scrape", fmt.Sprintf("page returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	return ParsePage(io.LimitReader(resp.Body, 4<<20))
}

// ParsePage extracts Page fields from watch-page HTML.
func ParsePage(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, metadataStage, "scrape", "parse page", err)
	}
	page := &Page{
		Title: firstContent(doc,
			`meta[name="title"]`,
			`meta[property="og:title"]`,
		),
		Channel: firstContent(doc,
			`span[itemprop="author"] link[itemprop="name"]`,
			`link[itemprop="name"]`,
			`meta[name="author"]`,
		),
		DurationSeconds: ParseDuration(firstContent(doc, `meta[itemprop="duration"]`)),
		Description: firstContent(doc,
			`meta[name="description"]`,
			`meta[property="og:description"]`,
		),
	}
	if page.Title == "" {
		page.Title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(doc.Find("title").First().Text()), "- YouTube"))
	}
	return page, nil
}

func firstContent(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if value := strings.TrimSpace(doc.Find(selector).First().AttrOr("content", "")); value != "" {
			return value
		}
	}
	return ""
}
