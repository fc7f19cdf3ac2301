package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	if err := c.normalizeDownload(); err != nil {
		return err
	}
	c.normalizeLossless()
	c.normalizeExtractor()
	c.normalizeJobs()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("TUNEPORT_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	lookup := func(field *string, env string) {
		*field = strings.TrimSpace(*field)
		if *field != "" {
			return
		}
		if value, ok := os.LookupEnv(env); ok {
			*field = strings.TrimSpace(value)
		}
	}
	lookup(&c.Catalog.ClientID, "SPOTIFY_CLIENT_ID")
	lookup(&c.Catalog.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	lookup(&c.Catalog.RefreshToken, "SPOTIFY_REFRESH_TOKEN")
	lookup(&c.Catalog.AccessToken, "SPOTIFY_ACCESS_TOKEN")

	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	c.Catalog.TokenURL = strings.TrimSpace(c.Catalog.TokenURL)
	if c.Catalog.TokenURL == "" {
		c.Catalog.TokenURL = defaultCatalogTokenURL
	}
	c.Catalog.Market = strings.ToUpper(strings.TrimSpace(c.Catalog.Market))
	c.Catalog.DefaultPlaylistID = strings.TrimSpace(c.Catalog.DefaultPlaylistID)
	if c.Catalog.SearchLimit <= 0 {
		c.Catalog.SearchLimit = defaultCatalogSearchLimit
	}
	if c.Catalog.MaxRateLimitRetries < 0 {
		c.Catalog.MaxRateLimitRetries = 0
	}
}

func (c *Config) normalizeDownload() error {
	c.Download.Mode = strings.ToLower(strings.TrimSpace(c.Download.Mode))
	if c.Download.Mode == "" {
		c.Download.Mode = defaultDownloadMode
	}
	c.Download.Format = strings.ToLower(strings.TrimSpace(c.Download.Format))
	if c.Download.Format == "" {
		c.Download.Format = defaultDownloadFormat
	}
	c.Download.SegmentMode = strings.ToLower(strings.TrimSpace(c.Download.SegmentMode))
	if c.Download.SegmentMode == "" {
		c.Download.SegmentMode = defaultSegmentMode
	}
	if strings.TrimSpace(c.Download.Dir) == "" {
		c.Download.Dir = defaultDownloadDir()
	}
	var err error
	if c.Download.Dir, err = expandPath(c.Download.Dir); err != nil {
		return fmt.Errorf("download.dir: %w", err)
	}
	if strings.TrimSpace(c.Download.LocalYtDlpBinary) == "" {
		c.Download.LocalYtDlpBinary = defaultYtDlpBinary
	}
	if c.Download.RetryAttempts <= 0 {
		c.Download.RetryAttempts = 1
	}
	if c.Download.RetryBackoffMillis < 0 {
		c.Download.RetryBackoffMillis = 0
	}
	return nil
}

func (c *Config) normalizeLossless() {
	c.Lossless.Endpoint = strings.TrimRight(strings.TrimSpace(c.Lossless.Endpoint), "/")
	c.Lossless.PreferredSource = strings.ToLower(strings.TrimSpace(c.Lossless.PreferredSource))
	sources := make([]string, 0, len(c.Lossless.Sources))
	for _, source := range c.Lossless.Sources {
		source = strings.ToLower(strings.TrimSpace(source))
		if source != "" {
			sources = append(sources, source)
		}
	}
	if len(sources) == 0 {
		sources = append(sources, DefaultLosslessSources...)
	}
	c.Lossless.Sources = sources
}

func (c *Config) normalizeExtractor() {
	c.Extractor.URL = strings.TrimRight(strings.TrimSpace(c.Extractor.URL), "/")
	c.Extractor.Token = strings.TrimSpace(c.Extractor.Token)
	if c.Extractor.Token == "" {
		if value, ok := os.LookupEnv("TUNEPORT_EXTRACTOR_TOKEN"); ok {
			c.Extractor.Token = strings.TrimSpace(value)
		}
	}
	mirrors := make([]string, 0, len(c.Extractor.Mirrors))
	seen := map[string]struct{}{c.Extractor.URL: {}}
	for _, mirror := range c.Extractor.Mirrors {
		mirror = strings.TrimRight(strings.TrimSpace(mirror), "/")
		if mirror == "" {
			continue
		}
		if _, ok := seen[mirror]; ok {
			continue
		}
		seen[mirror] = struct{}{}
		mirrors = append(mirrors, mirror)
	}
	c.Extractor.Mirrors = mirrors
}

func (c *Config) normalizeJobs() {
	c.Jobs.FallbackPolicy = strings.ToLower(strings.TrimSpace(c.Jobs.FallbackPolicy))
	if c.Jobs.FallbackPolicy == "" {
		c.Jobs.FallbackPolicy = defaultFallbackPolicy
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
