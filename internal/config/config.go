package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/thanhpk/randstr"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Catalog contains configuration for the Spotify Web API.
type Catalog struct {
	BaseURL               string `toml:"base_url"`
	TokenURL              string `toml:"token_url"`
	ClientID              string `toml:"client_id"`
	ClientSecret          string `toml:"client_secret"`
	RefreshToken          string `toml:"refresh_token"`
	AccessToken           string `toml:"access_token"`
	Market                string `toml:"market"`
	DefaultPlaylistID     string `toml:"default_playlist_id"`
	SearchLimit           int    `toml:"search_limit"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	MaxRateLimitRetries   int    `toml:"max_rate_limit_retries"`
}

// Matching contains the match acceptance policy.
type Matching struct {
	// AutoAddThreshold is the minimum score for a candidate to be added
	// without confirmation.
	AutoAddThreshold float64 `toml:"auto_add_threshold"`
	// Strict raises the threshold to StrictThreshold when set.
	Strict bool `toml:"strict"`
}

// Download contains configuration for the download source chain.
type Download struct {
	Enabled               bool   `toml:"enabled"`
	Mode                  string `toml:"mode"`
	Format                string `toml:"format"`
	Dir                   string `toml:"dir"`
	SegmentMode           string `toml:"segment_mode"`
	PreferLossless        bool   `toml:"prefer_lossless"`
	RetryAttempts         int    `toml:"retry_attempts"`
	RetryBackoffMillis    int    `toml:"retry_backoff_ms"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	LocalYtDlpEnabled     bool   `toml:"local_ytdlp_enabled"`
	LocalYtDlpBinary      string `toml:"local_ytdlp_binary"`
}

// Lossless contains configuration for the lossless search service.
type Lossless struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	PreferredSource string   `toml:"preferred_source"`
	Sources         []string `toml:"sources"`
}

// Extractor contains configuration for the primary extractor and its mirrors.
type Extractor struct {
	URL     string   `toml:"url"`
	Token   string   `toml:"token"`
	Mirrors []string `toml:"mirrors"`
}

// Metadata contains configuration for source page metadata lookups.
type Metadata struct {
	OEmbedURL             string `toml:"oembed_url"`
	ScrapePages           bool   `toml:"scrape_pages"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Jobs contains configuration for the job orchestrator.
type Jobs struct {
	FallbackPolicy     string `toml:"fallback_policy"`
	Workers            int    `toml:"workers"`
	PollInterval       int    `toml:"poll_interval"`
	ErrorRetryInterval int    `toml:"error_retry_interval"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic"`
	RequestTimeout  int    `toml:"request_timeout"`
	JobCompleted    bool   `toml:"job_completed"`
	FallbackRequest bool   `toml:"fallback_required"`
	Errors          bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tuneport.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Catalog: Spotify credentials and search behaviour
//   - Matching: auto-add threshold
//   - Download: download chain toggles, formats and retry policy
//   - Lossless: lossless search service
//   - Extractor: primary extractor and mirror pool
//   - Metadata: oEmbed and watch page lookups
//   - Jobs: fallback policy and worker pool
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Catalog       Catalog       `toml:"catalog"`
	Matching      Matching      `toml:"matching"`
	Download      Download      `toml:"download"`
	Lossless      Lossless      `toml:"lossless"`
	Extractor     Extractor     `toml:"extractor"`
	Metadata      Metadata      `toml:"metadata"`
	Jobs          Jobs          `toml:"jobs"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tuneport.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The download directory is only created when downloads are enabled.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Download.Enabled && c.Download.LocalYtDlpEnabled && strings.TrimSpace(c.Download.Dir) != "" {
		if err := os.MkdirAll(c.Download.Dir, 0o755); err != nil {
			return fmt.Errorf("create download directory %q: %w", c.Download.Dir, err)
		}
	}
	return nil
}

// EffectiveThreshold returns the auto-add threshold after applying strict mode.
func (c *Config) EffectiveThreshold() float64 {
	if c.Matching.Strict {
		return StrictThreshold
	}
	return c.Matching.AutoAddThreshold
}

// CatalogTimeout returns the per-request catalog timeout.
func (c *Config) CatalogTimeout() time.Duration {
	return secondsOrDefault(c.Catalog.RequestTimeoutSeconds, defaultCatalogRequestTimeout)
}

// DownloadTimeout returns the per-request download service timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return secondsOrDefault(c.Download.RequestTimeoutSeconds, defaultDownloadRequestTimeout)
}

// MetadataTimeout returns the per-request metadata lookup timeout.
func (c *Config) MetadataTimeout() time.Duration {
	return secondsOrDefault(c.Metadata.RequestTimeoutSeconds, defaultMetadataRequestTimeout)
}

// DatabasePath returns the location of the job store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "tuneportd.lock")
}

func secondsOrDefault(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
// The sample receives a freshly generated API token.
func CreateSample(path string) error {
	sample := strings.Replace(sampleConfig, sampleTokenPlaceholder, randstr.Hex(32), 1)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
