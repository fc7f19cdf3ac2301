package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultYtDlpBinary is used when no local binary is configured.
const DefaultYtDlpBinary = "yt-dlp"

// LocalRequirements lists the binaries the local yt-dlp strategy needs.
// FFmpeg is resolved the way yt-dlp resolves it: a copy next to the yt-dlp
// executable wins over PATH.
func LocalRequirements(ytdlpBinary string) []Requirement {
	binary := strings.TrimSpace(ytdlpBinary)
	if binary == "" {
		binary = DefaultYtDlpBinary
	}
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     binary,
			Description: "Required for local downloads",
		},
		{
			Name:        "FFmpeg",
			Command:     ResolveFFmpeg(binary),
			Description: "Used by yt-dlp for audio extraction and segment cuts",
		},
	}
}

// ResolveFFmpeg returns the ffmpeg command yt-dlp at ytdlpBinary will run.
func ResolveFFmpeg(ytdlpBinary string) string {
	if resolved, err := exec.LookPath(strings.TrimSpace(ytdlpBinary)); err == nil {
		candidate := filepath.Join(filepath.Dir(resolved), executableName("ffmpeg"))
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			return candidate
		}
	}
	return "ffmpeg"
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
