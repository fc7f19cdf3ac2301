package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"

	"tuneport/internal/services"
)

const playlistListLimit = 50

// Playlist summarizes one of the user's playlists.
type Playlist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Owner  string `json:"owner,omitempty"`
	Public bool   `json:"public"`
	Tracks int    `json:"tracks"`
}

// Library exposes account-level playlist operations.
type Library struct {
	client *spotify.Client
}

// NewLibrary builds a Library on top of an authorized HTTP client.
func NewLibrary(httpClient *http.Client, baseURL string) *Library {
	opts := []spotify.ClientOption{spotify.WithRetry(true)}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	return &Library{client: spotify.New(httpClient, opts...)}
}

// Playlists lists the current user's playlists, first page only.
func (l *Library) Playlists(ctx context.Context) ([]Playlist, error) {
	page, err := l.client.CurrentUsersPlaylists(ctx, spotify.Limit(playlistListLimit))
	if err != nil {
		return nil, classifyLibraryError("list playlists", err)
	}
	playlists := make([]Playlist, 0, len(page.Playlists))
	for _, p := range page.Playlists {
		playlists = append(playlists, fromSimple(p))
	}
	return playlists, nil
}

// CreatePlaylist creates a playlist owned by the current user.
func (l *Library) CreatePlaylist(ctx context.Context, name, description string, public bool) (Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Playlist{}, services.Wrap(services.ErrValidation, catalogStage, "create playlist", "playlist name required", nil)
	}
	user, err := l.client.CurrentUser(ctx)
	if err != nil {
		return Playlist{}, classifyLibraryError("current user", err)
	}
	created, err := l.client.CreatePlaylistForUser(ctx, user.ID, name, strings.TrimSpace(description), public, false)
	if err != nil {
		return Playlist{}, classifyLibraryError("create playlist", err)
	}
	return fromSimple(created.SimplePlaylist), nil
}

func fromSimple(p spotify.SimplePlaylist) Playlist {
	return Playlist{
		ID:     p.ID.String(),
		Name:   p.Name,
		Owner:  p.Owner.DisplayName,
		Public: p.IsPublic,
		Tracks: int(p.Tracks.Total),
	}
}

func classifyLibraryError(operation string, err error) error {
	if isTokenError(err) {
		return services.Wrap(services.ErrAuthExpired, catalogStage, operation, "refresh access token", err)
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		marker := services.ErrTransport
		switch apiErr.Status {
		case http.StatusUnauthorized:
			marker = services.ErrAuthExpired
		case http.StatusTooManyRequests:
			marker = services.ErrRateLimited
		case http.StatusNotFound:
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, catalogStage, operation, fmt.Sprintf("catalog returned %d", apiErr.Status), err)
	}
	return services.Wrap(services.ErrTransport, catalogStage, operation, "request failed", err)
}
