package config

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const (
	defaultConfigPath              = "~/.config/tuneport/config.toml"
	defaultStateDir                = "~/.local/share/tuneport"
	defaultLogDir                  = "~/.local/share/tuneport/logs"
	defaultAPIBind                 = "127.0.0.1:7495"
	defaultCatalogBaseURL          = "https://api.spotify.com/v1"
	defaultCatalogTokenURL         = "https://accounts.spotify.com/api/token"
	defaultCatalogSearchLimit      = 10
	defaultCatalogRequestTimeout   = 15
	defaultMaxRateLimitRetries     = 3
	defaultAutoAddThreshold        = 0.5
	defaultDownloadMode            = DownloadModeAlways
	defaultDownloadFormat          = "best"
	defaultSegmentMode             = SegmentModeSeparate
	defaultRetryAttempts           = 3
	defaultRetryBackoffMillis      = 1000
	defaultDownloadRequestTimeout  = 120
	defaultYtDlpBinary             = "yt-dlp"
	defaultLosslessEndpoint        = "http://127.0.0.1:8788"
	defaultExtractorURL            = "http://127.0.0.1:8787"
	defaultOEmbedURL               = "https://www.youtube.com/oembed"
	defaultMetadataRequestTimeout  = 10
	defaultFallbackPolicy          = FallbackPolicyAuto
	defaultJobWorkers              = 2
	defaultJobPollInterval         = 2
	defaultJobErrorRetryInterval   = 10
	defaultNotifyRequestTimeout    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	sampleTokenPlaceholder         = "REPLACE_WITH_API_TOKEN"
	downloadSubdir                 = "tuneport"
	defaultMusicDirFallback        = "~/Music"
)

// StrictThreshold is the auto-add threshold used when matching.strict is set.
const StrictThreshold = 0.7

// Download modes.
const (
	DownloadModeAlways      = "always"
	DownloadModeMissingOnly = "missing_only"
)

// Segment modes for multi-segment extractor requests.
const (
	SegmentModeSeparate = "separate"
	SegmentModeSingle   = "single"
)

// Fallback policies applied when the primary catalog search finds nothing.
const (
	FallbackPolicyNever = "never"
	FallbackPolicyAuto  = "auto"
	FallbackPolicyAsk   = "ask"
)

// DefaultLosslessSources is the provider priority used by the lossless search.
var DefaultLosslessSources = []string{"qobuz", "tidal", "deezer"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Catalog: Catalog{
			BaseURL:               defaultCatalogBaseURL,
			TokenURL:              defaultCatalogTokenURL,
			SearchLimit:           defaultCatalogSearchLimit,
			RequestTimeoutSeconds: defaultCatalogRequestTimeout,
			MaxRateLimitRetries:   defaultMaxRateLimitRetries,
		},
		Matching: Matching{
			AutoAddThreshold: defaultAutoAddThreshold,
		},
		Download: Download{
			Enabled:               true,
			Mode:                  defaultDownloadMode,
			Format:                defaultDownloadFormat,
			Dir:                   defaultDownloadDir(),
			SegmentMode:           defaultSegmentMode,
			PreferLossless:        true,
			RetryAttempts:         defaultRetryAttempts,
			RetryBackoffMillis:    defaultRetryBackoffMillis,
			RequestTimeoutSeconds: defaultDownloadRequestTimeout,
			LocalYtDlpBinary:      defaultYtDlpBinary,
		},
		Lossless: Lossless{
			Endpoint: defaultLosslessEndpoint,
			Sources:  append([]string(nil), DefaultLosslessSources...),
		},
		Extractor: Extractor{
			URL: defaultExtractorURL,
		},
		Metadata: Metadata{
			OEmbedURL:             defaultOEmbedURL,
			ScrapePages:           true,
			RequestTimeoutSeconds: defaultMetadataRequestTimeout,
		},
		Jobs: Jobs{
			FallbackPolicy:     defaultFallbackPolicy,
			Workers:            defaultJobWorkers,
			PollInterval:       defaultJobPollInterval,
			ErrorRetryInterval: defaultJobErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyRequestTimeout,
			JobCompleted:    true,
			FallbackRequest: true,
			Errors:          true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultDownloadDir() string {
	music := strings.TrimSpace(xdg.UserDirs.Music)
	if music == "" {
		music = defaultMusicDirFallback
	}
	return filepath.Join(music, downloadSubdir)
}
