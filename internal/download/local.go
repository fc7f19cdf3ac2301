package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/gosimple/slug"
	"github.com/lrstanley/go-ytdlp"

	"tuneport/internal/logging"
	"tuneport/internal/services"
)

// LocalProvider labels results produced by the local yt-dlp binary.
const LocalProvider = "yt-dlp (local)"

// LocalFetch describes one local yt-dlp invocation.
type LocalFetch struct {
	URL         string
	AudioFormat string
	// Sections are yt-dlp --download-sections ranges. Several ranges are
	// cut from one run into a single file.
	Sections []string
	// Output is the yt-dlp output template, ending in ".%(ext)s".
	Output string
}

// Runner executes a LocalFetch.
type Runner interface {
	Fetch(ctx context.Context, fetch LocalFetch) error
}

// ytdlpRunner drives the yt-dlp binary through go-ytdlp.
type ytdlpRunner struct {
	binary string
}

func (r ytdlpRunner) Fetch(ctx context.Context, fetch LocalFetch) error {
	cmd := ytdlp.New().
		NoPlaylist().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat(fetch.AudioFormat).
		AudioQuality("0").
		Output(fetch.Output)
	if r.binary != "" {
		cmd = cmd.SetExecutable(r.binary)
	}
	for _, section := range fetch.Sections {
		cmd = cmd.DownloadSections(section)
	}
	if len(fetch.Sections) > 0 {
		cmd = cmd.ForceKeyframesAtCuts()
	}
	if _, err := cmd.Run(ctx, fetch.URL); err != nil {
		return fmt.Errorf("yt-dlp: %w", err)
	}
	return nil
}

// LocalSource downloads with a yt-dlp binary into a directory. MP3 output
// is tagged with the resolved title and artist.
type LocalSource struct {
	dir    string
	runner Runner
	logger *slog.Logger
}

// NewLocalSource builds the local strategy. An empty binary uses yt-dlp
// from PATH.
func NewLocalSource(dir, binary string, logger *slog.Logger) *LocalSource {
	return NewLocalSourceWithRunner(dir, ytdlpRunner{binary: strings.TrimSpace(binary)}, logger)
}

// NewLocalSourceWithRunner builds the local strategy around runner.
func NewLocalSourceWithRunner(dir string, runner Runner, logger *slog.Logger) *LocalSource {
	return &LocalSource{
		dir:    strings.TrimSpace(dir),
		runner: runner,
		logger: logging.NewComponentLogger(logger, "download.local"),
	}
}

// Name implements Source.
func (s *LocalSource) Name() string { return "local" }

// Attempt implements Source. In per-segment mode each segment is fetched
// with its own run and lands in its own file; in single mode every section
// goes to one run that yields one file.
func (s *LocalSource) Attempt(ctx context.Context, req Request) Result {
	format := req.format()
	quality := Quality(format, "")
	if s.dir == "" || s.runner == nil {
		return failure(KindExtractor, LocalProvider, quality, services.ErrConfiguration, "Local download directory not configured")
	}
	if strings.TrimSpace(req.SourceURL) == "" {
		return failure(KindExtractor, LocalProvider, quality, services.ErrValidation, "Source URL required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return failure(KindExtractor, LocalProvider, quality, services.ErrConfiguration, fmt.Sprintf("create download directory: %v", err))
	}

	type job struct {
		meta     SegmentMetadata
		sections []string
		index    int
	}
	var jobs []job
	if req.perSegment() {
		for i, seg := range req.Segments {
			meta, ok := ResolveSegmentMetadata(seg, req.Artist)
			if !ok {
				meta = SegmentMetadata{Title: req.Title + " " + strconv.Itoa(i+1), Artist: req.Artist}
			}
			jobs = append(jobs, job{meta: meta, sections: []string{seg.Section()}, index: i + 1})
		}
	} else {
		single := job{meta: SegmentMetadata{Title: req.Title, Artist: req.Artist}}
		for _, seg := range req.Segments {
			single.sections = append(single.sections, seg.Section())
		}
		if single.meta.Title == "" && len(req.Segments) == 1 {
			if meta, ok := ResolveSegmentMetadata(req.Segments[0], req.Artist); ok {
				single.meta = meta
			}
		}
		jobs = append(jobs, single)
	}

	logger := logging.WithContext(ctx, s.logger)
	assets := make([]Asset, 0, len(jobs))
	for _, j := range jobs {
		prefix := filePrefix(j.meta, j.index)
		fetch := LocalFetch{
			URL:         req.SourceURL,
			AudioFormat: audioFormat(format),
			Sections:    j.sections,
			Output:      filepath.Join(s.dir, prefix+".%(ext)s"),
		}
		if err := removeOutputs(s.dir, prefix); err != nil {
			return failure(KindExtractor, LocalProvider, quality, services.ErrConfiguration,
				fmt.Sprintf("clear previous download: %v", err))
		}
		if err := s.runner.Fetch(ctx, fetch); err != nil {
			return failure(KindExtractor, LocalProvider, quality, err, localMessage(err))
		}
		path, err := findOutput(s.dir, prefix, outputExtension(fetch.AudioFormat))
		if err != nil {
			return failure(KindExtractor, LocalProvider, quality, err, "yt-dlp produced no file")
		}
		if strings.EqualFold(filepath.Ext(path), ".mp3") {
			if err := tagMP3(path, j.meta); err != nil {
				logging.WarnWithContext(logger, "mp3 tagging failed", "local_tag_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the file is a valid mp3"),
					logging.String(logging.FieldImpact, "file kept without title and artist tags"),
				)
			}
		}
		assets = append(assets, Asset{Filename: filepath.Base(path), Path: path, Segment: j.index})
	}

	return Result{
		Success:  true,
		Source:   KindExtractor,
		Provider: LocalProvider,
		Filename: assets[0].Filename,
		Path:     assets[0].Path,
		Quality:  quality,
		Assets:   assets,
	}
}

func filePrefix(meta SegmentMetadata, index int) string {
	base := slug.Make(strings.TrimSpace(meta.Artist + " " + meta.Title))
	if base == "" {
		base = "download"
	}
	if index > 0 {
		base = fmt.Sprintf("%s-%02d", base, index)
	}
	return base
}

// audioFormat maps a requested format onto a yt-dlp --audio-format value.
func audioFormat(format string) string {
	switch format {
	case "ogg":
		return "vorbis"
	case "mp3", "wav", "opus", "flac":
		return format
	default:
		return "best"
	}
}

// outputExtension is the file extension yt-dlp writes for an audio format.
// "best" keeps the source container, so no extension is known up front.
func outputExtension(audioFormat string) string {
	switch audioFormat {
	case "vorbis":
		return ".ogg"
	case "best":
		return ""
	default:
		return "." + audioFormat
	}
}

func outputFiles(dir, prefix string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, prefix+".*"))
}

// removeOutputs deletes files left by an earlier download with the same
// prefix so findOutput only sees what the next run writes.
func removeOutputs(dir, prefix string) error {
	matches, err := outputFiles(dir, prefix)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// findOutput returns the file written for prefix, preferring ext when set.
func findOutput(dir, prefix, ext string) (string, error) {
	if ext != "" {
		path := filepath.Join(dir, prefix+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	matches, err := outputFiles(dir, prefix)
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		switch filepath.Ext(m) {
		case ".part", ".ytdl", ".tmp":
			continue
		}
		return m, nil
	}
	return "", errors.New("no output file for " + prefix)
}

func tagMP3(path string, meta SegmentMetadata) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()
	tag.SetTitle(meta.Title)
	if meta.Artist != "" {
		tag.SetArtist(meta.Artist)
	}
	return tag.Save()
}

func localMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Download cancelled"
	}
	return "yt-dlp failed: " + err.Error()
}
