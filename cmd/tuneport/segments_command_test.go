package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tuneport/internal/download"
)

func TestSegmentsParseDescription(t *testing.T) {
	file := filepath.Join(t.TempDir(), "description.txt")
	text := "Tracklist:\n0:00 Artist - Intro\n3:15 Artist - Song Two\n"
	if err := os.WriteFile(file, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, "", "segments", "parse", "--description", file)
	if err != nil {
		t.Fatalf("segments parse: %v", err)
	}
	requireContains(t, out, "Artist - Intro")
	requireContains(t, out, "3:15")
	requireContains(t, out, "end")
}

func TestSegmentsParseStdinJSON(t *testing.T) {
	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("1:00-2:30 First\n"))
	cmd.SetArgs([]string{"--json", "segments", "parse"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("segments parse: %v", err)
	}

	var segments []download.Segment
	if err := json.Unmarshal(stdout.Bytes(), &segments); err != nil {
		t.Fatalf("decode %q: %v", stdout.String(), err)
	}
	if len(segments) != 1 || segments[0].Start != 60 || segments[0].End == nil || *segments[0].End != 150 {
		t.Fatalf("unexpected segments: %#v", segments)
	}
}

func TestSegmentsParseEmpty(t *testing.T) {
	out, _, err := runCLI(t, "", "segments", "parse")
	if err != nil {
		t.Fatalf("segments parse: %v", err)
	}
	requireContains(t, out, "No segments found")
}

func TestBuildSegmentRows(t *testing.T) {
	end := 190
	rows := buildSegmentRows([]download.Segment{{Start: 10, End: &end, Title: "A"}, {Start: 190, Title: "B"}})
	if rows[0][3] != "3:00" {
		t.Fatalf("unexpected length %q", rows[0][3])
	}
	if rows[1][2] != "end" || rows[1][3] != "-" {
		t.Fatalf("unexpected open-ended row %#v", rows[1])
	}
}
