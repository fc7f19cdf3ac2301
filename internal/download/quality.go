package download

import (
	"fmt"
	"strings"

	"tuneport/internal/config"
	"tuneport/internal/textutil"
)

// LosslessWarning is shown when a lossy asset was delivered while lossless
// sources were enabled.
const LosslessWarning = "From YouTube (Opus ~128k). Enable lossless sources for lossless."

const maxFilenameLength = 200

// Quality labels a lossy download, e.g. "MP3 320kbps" or "Best Quality".
func Quality(format, bitrate string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == "best" {
		return "Best Quality"
	}
	label := strings.ToUpper(format)
	if bitrate = strings.TrimSpace(bitrate); bitrate != "" {
		label += " " + bitrate + "kbps"
	}
	return label
}

// LosslessQuality labels a lossless hit, e.g. "FLAC 24-bit/96kHz".
func LosslessQuality(quality string, bitDepth, sampleRate int) string {
	quality = strings.ToLower(strings.TrimSpace(quality))
	if quality == "" || quality == "flac" {
		if bitDepth > 0 && sampleRate > 0 {
			return fmt.Sprintf("FLAC %d-bit/%skHz", bitDepth, khz(sampleRate))
		}
		return "FLAC"
	}
	return strings.ToUpper(quality)
}

func khz(sampleRate int) string {
	if sampleRate%1000 == 0 {
		return fmt.Sprintf("%d", sampleRate/1000)
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", float64(sampleRate)/1000), "0"), ".")
}

// Extension picks the file extension implied by a quality label.
func Extension(quality string) string {
	lower := strings.ToLower(quality)
	switch {
	case strings.Contains(lower, "flac"):
		return "flac"
	case strings.Contains(lower, "opus"):
		return "opus"
	case strings.Contains(lower, "ogg"):
		return "ogg"
	case strings.Contains(lower, "wav"):
		return "wav"
	default:
		return "mp3"
	}
}

// Filename builds "Artist - Title.ext" with filesystem-unsafe characters
// removed. The artist part is dropped when empty.
func Filename(artist, title, quality string) string {
	base := textutil.SanitizeFileName(title)
	if a := textutil.SanitizeFileName(artist); a != "" {
		base = a + " - " + base
	}
	if base == "" {
		base = "download"
	}
	if runes := []rune(base); len(runes) > maxFilenameLength {
		base = strings.TrimSpace(string(runes[:maxFilenameLength]))
	}
	return base + "." + Extension(quality)
}

// ShouldWarnLossless reports whether a lossy result deserves the
// LosslessWarning.
func ShouldWarnLossless(result Result, losslessEnabled bool) bool {
	return result.Success && !result.IsLossless && losslessEnabled
}

// ResolveMode returns the per-request override when set, else the configured mode.
func ResolveMode(setting, override string) string {
	if o := strings.ToLower(strings.TrimSpace(override)); o == config.DownloadModeAlways || o == config.DownloadModeMissingOnly {
		return o
	}
	if setting == config.DownloadModeMissingOnly {
		return setting
	}
	return config.DownloadModeAlways
}

// ShouldDownload applies the download mode to a track that may already be
// in the playlist.
func ShouldDownload(mode string, duplicate bool) bool {
	return !(mode == config.DownloadModeMissingOnly && duplicate)
}
