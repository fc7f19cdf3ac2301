package main

import (
	"encoding/json"
	"testing"

	"tuneport/internal/catalog"
)

func TestPlaylistsList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "playlists", "list")
	if err != nil {
		t.Fatalf("playlists list: %v", err)
	}
	requireContains(t, out, "Road Trip")
	requireContains(t, out, "pl-cli")
}

func TestPlaylistsCreate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "--json", "playlists", "create", "New Mix", "--public")
	if err != nil {
		t.Fatalf("playlists create: %v", err)
	}
	var playlist catalog.Playlist
	if err := json.Unmarshal([]byte(out), &playlist); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if playlist.ID != "pl-new" || playlist.Name != "New Mix" || !playlist.Public {
		t.Fatalf("unexpected playlist: %#v", playlist)
	}
}

func TestBuildPlaylistRowsMarksDefault(t *testing.T) {
	rows := buildPlaylistRows([]catalog.Playlist{{ID: "a"}, {ID: "b"}}, "b")
	if rows[0][5] != "" || rows[1][5] != "*" {
		t.Fatalf("unexpected default markers: %#v", rows)
	}
}
