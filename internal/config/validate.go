package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateLossless(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be non-negative")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	hasStatic := c.Catalog.AccessToken != ""
	hasRefresh := c.Catalog.ClientID != "" && c.Catalog.ClientSecret != "" && c.Catalog.RefreshToken != ""
	if !hasStatic && !hasRefresh {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("catalog credentials are required. Set SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and SPOTIFY_REFRESH_TOKEN or edit %s (create with 'tuneport config init')", defaultPath)
	}
	if err := validateURL("catalog.base_url", c.Catalog.BaseURL); err != nil {
		return err
	}
	if hasRefresh {
		if err := validateURL("catalog.token_url", c.Catalog.TokenURL); err != nil {
			return err
		}
	}
	if c.Catalog.SearchLimit > 50 {
		return errors.New("catalog.search_limit must be between 1 and 50")
	}
	if c.Catalog.RequestTimeoutSeconds <= 0 {
		return errors.New("catalog.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.AutoAddThreshold < 0 || c.Matching.AutoAddThreshold > 1 {
		return errors.New("matching.auto_add_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateDownload() error {
	switch c.Download.Mode {
	case DownloadModeAlways, DownloadModeMissingOnly:
	default:
		return fmt.Errorf("download.mode must be %q or %q", DownloadModeAlways, DownloadModeMissingOnly)
	}
	switch c.Download.Format {
	case "best", "mp3", "ogg", "wav":
	default:
		return errors.New("download.format must be one of best, mp3, ogg, wav")
	}
	switch c.Download.SegmentMode {
	case SegmentModeSeparate, SegmentModeSingle:
	default:
		return fmt.Errorf("download.segment_mode must be %q or %q", SegmentModeSeparate, SegmentModeSingle)
	}
	if !c.Download.Enabled {
		return nil
	}
	if c.Extractor.URL != "" {
		if err := validateURL("extractor.url", c.Extractor.URL); err != nil {
			return err
		}
	}
	for _, mirror := range c.Extractor.Mirrors {
		if err := validateURL("extractor.mirrors", mirror); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLossless() error {
	if !c.Lossless.Enabled {
		return nil
	}
	if err := validateURL("lossless.endpoint", c.Lossless.Endpoint); err != nil {
		return err
	}
	if c.Lossless.PreferredSource == "" {
		return nil
	}
	for _, source := range c.Lossless.Sources {
		if source == c.Lossless.PreferredSource {
			return nil
		}
	}
	return fmt.Errorf("lossless.preferred_source %q is not listed in lossless.sources", c.Lossless.PreferredSource)
}

func (c *Config) validateJobs() error {
	switch c.Jobs.FallbackPolicy {
	case FallbackPolicyNever, FallbackPolicyAuto, FallbackPolicyAsk:
	default:
		return fmt.Errorf("jobs.fallback_policy must be one of %s, %s, %s", FallbackPolicyNever, FallbackPolicyAuto, FallbackPolicyAsk)
	}
	return ensurePositiveMap(map[string]int{
		"jobs.workers":              c.Jobs.Workers,
		"jobs.poll_interval":        c.Jobs.PollInterval,
		"jobs.error_retry_interval": c.Jobs.ErrorRetryInterval,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func validateURL(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, value)
	}
	return nil
}
