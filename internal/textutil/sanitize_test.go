package textutil

import "testing"

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"official video", "Queen - Bohemian Rhapsody (Official Video)", "Queen - Bohemian Rhapsody"},
		{"official music video brackets", "Adele - Hello [Official Music Video]", "Adele - Hello"},
		{"quality and pipe suffix", "Daft Punk - Get Lucky [HD] | Lyrics", "Daft Punk - Get Lucky"},
		{"double slash suffix", "Song Title // Live at Wembley", "Song Title"},
		{"lyric video", "Artist - Track (Lyric Video)", "Artist - Track"},
		{"audio only", "Artist - Track (Audio Only)", "Artist - Track"},
		{"radio edit and explicit", "Artist - Track (Radio Edit) [Explicit]", "Artist - Track"},
		{"extended mix", "Artist - Track (Extended Mix)", "Artist - Track"},
		{"4k visualizer", "Artist - Track 4K Visualizer", "Artist - Track"},
		{"whitespace", "  Artist   -  Track  ", "Artist - Track"},
		{"words containing markers", "Audioslave - Shadow on the Sun", "Audioslave - Shadow on the Sun"},
		{"nothing to strip", "Plain Title", "Plain Title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.in); got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeTitleIdempotent(t *testing.T) {
	inputs := []string{
		"Queen - Bohemian Rhapsody (Official Video)",
		"Artist - Song (Remastered 2011) [HD]",
		"(Official (HD) Video)",
		"Artist - Song [Clean Version] (Official Audio) | Label // extra",
		"Official Official Official",
		"",
	}
	for _, in := range inputs {
		once := SanitizeTitle(in)
		if twice := SanitizeTitle(once); twice != once {
			t.Errorf("SanitizeTitle not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestParseArtistTitle(t *testing.T) {
	tests := []struct {
		in     string
		want   ArtistTitle
		wantOK bool
	}{
		{"Queen - Bohemian Rhapsody", ArtistTitle{"Queen", "Bohemian Rhapsody"}, true},
		{"Sigur Rós – Hoppípolla", ArtistTitle{"Sigur Rós", "Hoppípolla"}, true},
		{"Artist — Title", ArtistTitle{"Artist", "Title"}, true},
		{"Artist | Title", ArtistTitle{"Artist", "Title"}, true},
		{"A - B - C", ArtistTitle{"A", "B - C"}, true},
		{" - Missing Artist", ArtistTitle{}, false},
		{"No Separator", ArtistTitle{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseArtistTitle(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseArtistTitle(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSanitizeThenParse(t *testing.T) {
	got, ok := ParseArtistTitle(SanitizeTitle("Queen - Bohemian Rhapsody (Official Video)"))
	if !ok || got.Artist != "Queen" || got.Title != "Bohemian Rhapsody" {
		t.Fatalf("unexpected parse: %+v %v", got, ok)
	}
}

func TestFeaturing(t *testing.T) {
	normalize := map[string]string{
		"Artist ft. Other":       "Artist feat. Other",
		"Artist featuring Other": "Artist feat. Other",
		"Artist with Other":      "Artist feat. Other",
		"Artist x Other":         "Artist & Other",
		"Artist Feat Other ":     "Artist feat. Other",
		"Solo":                   "Solo",
	}
	for in, want := range normalize {
		if got := NormalizeFeaturing(in); got != want {
			t.Errorf("NormalizeFeaturing(%q) = %q, want %q", in, got, want)
		}
	}

	remove := map[string]string{
		"Song (feat. Artist B)":     "Song",
		"Song [ft. Artist B] Remix": "Song Remix",
		"Song featuring Artist B":   "Song",
		"Song feat. B & C":          "Song",
		"Featherweight":             "Featherweight",
	}
	for in, want := range remove {
		if got := RemoveFeaturing(in); got != want {
			t.Errorf("RemoveFeaturing(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`AC/DC: Back in Black?`); got != "AC-DC- Back in Black" {
		t.Fatalf("unexpected file name: %q", got)
	}
	if got := SanitizeFileName("   "); got != "" {
		t.Fatalf("expected empty name, got %q", got)
	}
}
