package metadata

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)

// VideoID extracts the video id from watch, short, embed, /v/ and music
// URLs. It reports false when raw is not a recognised video URL.
func VideoID(raw string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(parsed.Path, "/")
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		path := strings.Trim(parsed.Path, "/")
		switch {
		case path == "watch":
			id = parsed.Query().Get("v")
		case strings.HasPrefix(path, "embed/"), strings.HasPrefix(path, "v/"), strings.HasPrefix(path, "shorts/"):
			id = path[strings.Index(path, "/")+1:]
		}
	default:
		return "", false
	}
	if i := strings.IndexAny(id, "/?&#"); i >= 0 {
		id = id[:i]
	}
	if !videoIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

// WatchURL returns the canonical watch URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}

// MusicURL returns the music.youtube.com watch URL for id.
func MusicURL(id string) string {
	return "https://music.youtube.com/watch?v=" + url.QueryEscape(id)
}
